package amp

import (
	"fmt"
	"math"
)

// Port names one field of a converter stage.
type Port struct {
	Stage string
	Field string
}

func (p Port) String() string {
	return p.Stage + "." + p.Field
}

// Link feeds the output From into the input To before the consuming stage runs.
type Link struct {
	From Port
	To   Port
}

// Converter is one stage of a propulsor. Every input and output is a one column array of
// the stage record: inputs under `inputs`, outputs under `outputs`.
type Converter interface {
	Tag() string
	Inputs() []string
	Outputs() []string
	ComputePerformance(in, out *Record, c *Conditions) error
}

// stageGraph is a validated, ordered list of stages with the links between them. External
// inputs are written by the owning propulsor rather than by a link.
type stageGraph struct {
	stages   []Converter
	links    []Link
	external []Port
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// newStageGraph checks that every link goes from an earlier stage output to a later stage
// input and that every input is fed exactly once.
func newStageGraph(owner string, stages []Converter, links []Link, external []Port) (*stageGraph, error) {
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if s == nil {
			return nil, configErrorf(owner, "stage %d is not set", i)
		}
		if s.Tag() == "" {
			return nil, configErrorf(owner, "stage %d has no tag", i)
		}
		if _, dup := index[s.Tag()]; dup {
			return nil, configErrorf(owner+"."+s.Tag(), "duplicate tag")
		}
		index[s.Tag()] = i
	}
	fed := make(map[Port]string)
	for _, l := range links {
		from, ok := index[l.From.Stage]
		if !ok {
			return nil, configErrorf(owner+"."+l.From.String(), "links from an unknown stage")
		}
		to, ok := index[l.To.Stage]
		if !ok {
			return nil, configErrorf(owner+"."+l.To.String(), "links into an unknown stage")
		}
		if !contains(stages[from].Outputs(), l.From.Field) {
			return nil, configErrorf(owner+"."+l.From.String(), "is not an output")
		}
		if !contains(stages[to].Inputs(), l.To.Field) {
			return nil, configErrorf(owner+"."+l.To.String(), "is not an input")
		}
		if from >= to {
			return nil, configErrorf(owner+"."+l.To.String(), "is fed by %s which runs later", l.From)
		}
		if prev, dup := fed[l.To]; dup {
			return nil, configErrorf(owner+"."+l.To.String(), "fed by both %s and %s", prev, l.From)
		}
		fed[l.To] = l.From.String()
	}
	for _, p := range external {
		i, ok := index[p.Stage]
		if !ok || !contains(stages[i].Inputs(), p.Field) {
			return nil, configErrorf(owner+"."+p.String(), "external port is not an input")
		}
		if prev, dup := fed[p]; dup {
			return nil, configErrorf(owner+"."+p.String(), "external port is also fed by %s", prev)
		}
		fed[p] = "external"
	}
	for _, s := range stages {
		for _, in := range s.Inputs() {
			if _, ok := fed[Port{s.Tag(), in}]; !ok {
				return nil, configErrorf(owner+"."+s.Tag()+"."+in, "input is never fed")
			}
		}
	}
	return &stageGraph{stages: stages, links: links, external: external}, nil
}

// appendConditions creates the stage records under r.
func (g *stageGraph) appendConditions(r *Record) {
	for _, s := range g.stages {
		sr := r.EnsureChild(s.Tag())
		in := sr.EnsureChild("inputs")
		for _, name := range s.Inputs() {
			in.Add(name, 1)
		}
		out := sr.EnsureChild("outputs")
		for _, name := range s.Outputs() {
			out.Add(name, 1)
		}
	}
}

func (g *stageGraph) input(r *Record, p Port) *Array {
	return r.Child(p.Stage).Child("inputs").Array(p.Field)
}

func (g *stageGraph) output(r *Record, p Port) *Array {
	return r.Child(p.Stage).Child("outputs").Array(p.Field)
}

// run evaluates the stages in order. Links into a stage are copied right before it runs;
// after is called once each stage is done.
func (g *stageGraph) run(r *Record, c *Conditions, after func(stage string) error) error {
	for _, s := range g.stages {
		for _, l := range g.links {
			if l.To.Stage == s.Tag() {
				g.input(r, l.To).CopyFrom(g.output(r, l.From))
			}
		}
		sr := r.Child(s.Tag())
		if err := s.ComputePerformance(sr.Child("inputs"), sr.Child("outputs"), c); err != nil {
			return fmt.Errorf("%s: %w", s.Tag(), err)
		}
		if after != nil {
			if err := after(s.Tag()); err != nil {
				return err
			}
		}
	}
	return nil
}

// gasLinks chains the stagnation state from one gas path stage to the next.
func gasLinks(from, to string) []Link {
	return []Link{
		{Port{from, "stagnation_temperature"}, Port{to, "entering_stagnation_temperature"}},
		{Port{from, "stagnation_pressure"}, Port{to, "entering_stagnation_pressure"}},
	}
}

var (
	gasInputs  = []string{"entering_stagnation_temperature", "entering_stagnation_pressure"}
	gasOutputs = []string{"stagnation_temperature", "stagnation_pressure"}
)

type gas struct {
	γ, cp, R float64
}

func gasAt(c *Conditions, i int) gas {
	fs := c.Freestream
	return gas{fs.IsentropicExpansionFactor.At(i, 0), fs.SpecificHeatAtConstantPressure.At(i, 0), fs.GasSpecificConstant.At(i, 0)}
}

// Ram brings the freestream to rest.
type Ram struct {
	Name string
}

// Tag implements the Converter interface.
func (s *Ram) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *Ram) Inputs() []string { return nil }

// Outputs implements the Converter interface.
func (s *Ram) Outputs() []string { return gasOutputs }

// ComputePerformance implements the Converter interface.
func (s *Ram) ComputePerformance(in, out *Record, c *Conditions) error {
	fs := c.Freestream
	Tt, Pt := out.Array("stagnation_temperature"), out.Array("stagnation_pressure")
	for i := 0; i < c.Rows(); i++ {
		g := gasAt(c, i)
		M := fs.MachNumber.At(i, 0)
		ratio := 1 + (g.γ-1)/2*M*M
		Tt.Set(i, 0, fs.Temperature.At(i, 0)*ratio)
		Pt.Set(i, 0, fs.Pressure.At(i, 0)*math.Pow(ratio, g.γ/(g.γ-1)))
	}
	return nil
}

// CompressionNozzle is an adiabatic inlet diffuser.
type CompressionNozzle struct {
	Name          string
	PressureRatio float64
}

// Tag implements the Converter interface.
func (s *CompressionNozzle) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *CompressionNozzle) Inputs() []string { return gasInputs }

// Outputs implements the Converter interface.
func (s *CompressionNozzle) Outputs() []string { return gasOutputs }

// ComputePerformance implements the Converter interface.
func (s *CompressionNozzle) ComputePerformance(in, out *Record, c *Conditions) error {
	out.Array("stagnation_temperature").CopyFrom(in.Array("entering_stagnation_temperature"))
	Pt, Pin := out.Array("stagnation_pressure"), in.Array("entering_stagnation_pressure")
	for i := 0; i < Pin.Rows; i++ {
		Pt.Set(i, 0, Pin.At(i, 0)*s.PressureRatio)
	}
	return nil
}

// Compressor raises the stagnation pressure by PressureRatio. Its specific work is what the
// turbine driving it must supply.
type Compressor struct {
	Name                 string
	PressureRatio        float64
	PolytropicEfficiency float64
}

// Tag implements the Converter interface.
func (s *Compressor) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *Compressor) Inputs() []string { return gasInputs }

// Outputs implements the Converter interface.
func (s *Compressor) Outputs() []string {
	return append(append([]string(nil), gasOutputs...), "work")
}

// ComputePerformance implements the Converter interface.
func (s *Compressor) ComputePerformance(in, out *Record, c *Conditions) error {
	Tin, Pin := in.Array("entering_stagnation_temperature"), in.Array("entering_stagnation_pressure")
	Tt, Pt, w := out.Array("stagnation_temperature"), out.Array("stagnation_pressure"), out.Array("work")
	for i := 0; i < Tin.Rows; i++ {
		g := gasAt(c, i)
		T := Tin.At(i, 0) * math.Pow(s.PressureRatio, (g.γ-1)/(g.γ*s.PolytropicEfficiency))
		Tt.Set(i, 0, T)
		Pt.Set(i, 0, Pin.At(i, 0)*s.PressureRatio)
		w.Set(i, 0, g.cp*(T-Tin.At(i, 0)))
	}
	return nil
}

// Combustor burns fuel up to the turbine inlet temperature.
type Combustor struct {
	Name                    string
	TurbineInletTemperature float64 // K
	Efficiency              float64
	FuelLowerHeatingValue   float64 // J/kg
	PressureRatio           float64
}

// Tag implements the Converter interface.
func (s *Combustor) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *Combustor) Inputs() []string { return gasInputs }

// Outputs implements the Converter interface.
func (s *Combustor) Outputs() []string {
	return append(append([]string(nil), gasOutputs...), "fuel_to_air_ratio")
}

// ComputePerformance implements the Converter interface.
func (s *Combustor) ComputePerformance(in, out *Record, c *Conditions) error {
	Tin, Pin := in.Array("entering_stagnation_temperature"), in.Array("entering_stagnation_pressure")
	Tt, Pt, f := out.Array("stagnation_temperature"), out.Array("stagnation_pressure"), out.Array("fuel_to_air_ratio")
	for i := 0; i < Tin.Rows; i++ {
		g := gasAt(c, i)
		T4 := s.TurbineInletTemperature
		denominator := s.Efficiency*s.FuelLowerHeatingValue/g.cp - T4
		if denominator <= 0 {
			return fmt.Errorf("turbine inlet temperature %g K is out of reach of the fuel", T4)
		}
		Tt.Set(i, 0, T4)
		Pt.Set(i, 0, Pin.At(i, 0)*s.PressureRatio)
		f.Set(i, 0, math.Max(0, (T4-Tin.At(i, 0))/denominator))
	}
	return nil
}

// Turbine supplies the work of the compressor linked to it, plus the shaft power offtake
// when ShaftOfftake is set.
type Turbine struct {
	Name                 string
	MechanicalEfficiency float64
	PolytropicEfficiency float64
	ShaftOfftake         bool
}

// Tag implements the Converter interface.
func (s *Turbine) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *Turbine) Inputs() []string {
	in := append(append([]string(nil), gasInputs...), "compressor_work", "fuel_to_air_ratio")
	if s.ShaftOfftake {
		in = append(in, "shaft_offtake_work")
	}
	return in
}

// Outputs implements the Converter interface.
func (s *Turbine) Outputs() []string {
	return append(append([]string(nil), gasOutputs...), "pressure_ratio")
}

// ComputePerformance implements the Converter interface.
func (s *Turbine) ComputePerformance(in, out *Record, c *Conditions) error {
	Tin, Pin := in.Array("entering_stagnation_temperature"), in.Array("entering_stagnation_pressure")
	work, f := in.Array("compressor_work"), in.Array("fuel_to_air_ratio")
	Tt, Pt, π := out.Array("stagnation_temperature"), out.Array("stagnation_pressure"), out.Array("pressure_ratio")
	for i := 0; i < Tin.Rows; i++ {
		g := gasAt(c, i)
		w := work.At(i, 0)
		if s.ShaftOfftake {
			w += in.Array("shaft_offtake_work").At(i, 0)
		}
		Δh := w / ((1 + f.At(i, 0)) * s.MechanicalEfficiency)
		T := Tin.At(i, 0) - Δh/g.cp
		if T <= 0 {
			return fmt.Errorf("cannot extract %g J/kg from %g K", Δh, Tin.At(i, 0))
		}
		ratio := math.Pow(T/Tin.At(i, 0), g.γ/((g.γ-1)*s.PolytropicEfficiency))
		Tt.Set(i, 0, T)
		Pt.Set(i, 0, Pin.At(i, 0)*ratio)
		π.Set(i, 0, ratio)
	}
	return nil
}

// PowerTurbine expands the core flow by PressureRatio into shaft work.
type PowerTurbine struct {
	Name                 string
	PressureRatio        float64
	PolytropicEfficiency float64
	MechanicalEfficiency float64
}

// Tag implements the Converter interface.
func (s *PowerTurbine) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *PowerTurbine) Inputs() []string {
	return append(append([]string(nil), gasInputs...), "fuel_to_air_ratio")
}

// Outputs implements the Converter interface.
func (s *PowerTurbine) Outputs() []string {
	return append(append([]string(nil), gasOutputs...), "shaft_work")
}

// ComputePerformance implements the Converter interface. The shaft work is per unit core
// air mass flow.
func (s *PowerTurbine) ComputePerformance(in, out *Record, c *Conditions) error {
	Tin, Pin, f := in.Array("entering_stagnation_temperature"), in.Array("entering_stagnation_pressure"), in.Array("fuel_to_air_ratio")
	Tt, Pt, w := out.Array("stagnation_temperature"), out.Array("stagnation_pressure"), out.Array("shaft_work")
	for i := 0; i < Tin.Rows; i++ {
		g := gasAt(c, i)
		T := Tin.At(i, 0) * math.Pow(s.PressureRatio, (g.γ-1)*s.PolytropicEfficiency/g.γ)
		Tt.Set(i, 0, T)
		Pt.Set(i, 0, Pin.At(i, 0)*s.PressureRatio)
		w.Set(i, 0, (1+f.At(i, 0))*g.cp*(Tin.At(i, 0)-T)*s.MechanicalEfficiency)
	}
	return nil
}

// ExpansionNozzle is a converging nozzle: it chokes when the available pressure ratio
// would take the flow past Mach 1, otherwise it expands to the freestream pressure.
type ExpansionNozzle struct {
	Name                 string
	PressureRatio        float64
	PolytropicEfficiency float64
}

// Tag implements the Converter interface.
func (s *ExpansionNozzle) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *ExpansionNozzle) Inputs() []string { return gasInputs }

// Outputs implements the Converter interface.
func (s *ExpansionNozzle) Outputs() []string {
	return append(append([]string(nil), gasOutputs...),
		"exit_mach_number", "exit_static_temperature", "exit_static_pressure", "exit_velocity")
}

// ComputePerformance implements the Converter interface.
func (s *ExpansionNozzle) ComputePerformance(in, out *Record, c *Conditions) error {
	Tin, Pin := in.Array("entering_stagnation_temperature"), in.Array("entering_stagnation_pressure")
	Tt, Pt := out.Array("stagnation_temperature"), out.Array("stagnation_pressure")
	Me, Te, Pe, Ue := out.Array("exit_mach_number"), out.Array("exit_static_temperature"), out.Array("exit_static_pressure"), out.Array("exit_velocity")
	for i := 0; i < Tin.Rows; i++ {
		g := gasAt(c, i)
		p0 := c.Freestream.Pressure.At(i, 0)
		T := Tin.At(i, 0) * math.Pow(s.PressureRatio, (g.γ-1)*s.PolytropicEfficiency/g.γ)
		P := Pin.At(i, 0) * s.PressureRatio
		M, p := 0., p0
		if P > p0 {
			M = math.Sqrt(2 / (g.γ - 1) * (math.Pow(P/p0, (g.γ-1)/g.γ) - 1))
			if M > 1 {
				M = 1
				p = P / math.Pow(1+(g.γ-1)/2, g.γ/(g.γ-1))
			}
		}
		Ts := T / (1 + (g.γ-1)/2*M*M)
		Tt.Set(i, 0, T)
		Pt.Set(i, 0, P)
		Me.Set(i, 0, M)
		Te.Set(i, 0, Ts)
		Pe.Set(i, 0, p)
		Ue.Set(i, 0, M*math.Sqrt(g.γ*g.R*Ts))
	}
	return nil
}

// ESC scales the bus voltage by the throttle.
type ESC struct {
	Name       string
	Efficiency float64
}

// Tag implements the Converter interface.
func (s *ESC) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *ESC) Inputs() []string { return []string{"bus_voltage", "throttle"} }

// Outputs implements the Converter interface.
func (s *ESC) Outputs() []string { return []string{"voltage"} }

// ComputePerformance implements the Converter interface.
func (s *ESC) ComputePerformance(in, out *Record, c *Conditions) error {
	v, thr, vout := in.Array("bus_voltage"), in.Array("throttle"), out.Array("voltage")
	for i := 0; i < v.Rows; i++ {
		vout.Set(i, 0, v.At(i, 0)*thr.At(i, 0))
	}
	return nil
}

// DCMotor is a permanent magnet motor driving a rotor directly. Given the rotor power
// coefficient it solves for the speed at which motor and rotor torque agree.
type DCMotor struct {
	Name          string
	SpeedConstant float64 // Kv, rad/s/V
	Resistance    float64 // Ω
	NoLoadCurrent float64 // A
	rotorDiameter float64
}

// Tag implements the Converter interface.
func (s *DCMotor) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *DCMotor) Inputs() []string { return []string{"voltage", "power_coefficient"} }

// Outputs implements the Converter interface.
func (s *DCMotor) Outputs() []string { return []string{"omega", "current", "torque"} }

// ComputePerformance implements the Converter interface.
func (s *DCMotor) ComputePerformance(in, out *Record, c *Conditions) error {
	v, Cp := in.Array("voltage"), in.Array("power_coefficient")
	ω, cur, Q := out.Array("omega"), out.Array("current"), out.Array("torque")
	D5 := math.Pow(s.rotorDiameter, 5)
	for i := 0; i < v.Rows; i++ {
		ρ := c.Freestream.Density.At(i, 0)
		// Rotor torque is k·ω².
		k := Cp.At(i, 0) * ρ * D5 / (8 * math.Pi * math.Pi * math.Pi)
		a := k * s.Resistance * s.SpeedConstant
		b := 1 / s.SpeedConstant
		cc := v.At(i, 0) - s.NoLoadCurrent*s.Resistance
		w := 0.
		if cc > 0 {
			disc := b*b + 4*a*cc
			if disc < 0 {
				disc = 0
			}
			w = 2 * cc / (b + math.Sqrt(disc))
		}
		i0 := (v.At(i, 0) - w/s.SpeedConstant) / s.Resistance
		ω.Set(i, 0, w)
		cur.Set(i, 0, i0)
		Q.Set(i, 0, (i0-s.NoLoadCurrent)/s.SpeedConstant)
	}
	return nil
}

// Rotor is a fixed pitch rotor or propeller. Thrust and power coefficients fall off
// quadratically and rise linearly with the advance ratio.
type Rotor struct {
	Name                    string
	Radius                  float64 // m
	Blades                  int
	ThrustAngle             float64 // rad, from body x toward body -z
	StaticThrustCoefficient float64
	StaticPowerCoefficient  float64
	MaximumAdvanceRatio     float64
	DesignTorque            float64 // N·m, scales the torque residual
}

// Tag implements the Converter interface.
func (s *Rotor) Tag() string { return s.Name }

// Inputs implements the Converter interface.
func (s *Rotor) Inputs() []string { return []string{"omega"} }

// Outputs implements the Converter interface.
func (s *Rotor) Outputs() []string {
	return []string{"thrust", "torque", "power", "thrust_coefficient", "power_coefficient", "advance_ratio", "tip_mach"}
}

// axis is the thrust direction in the body frame.
func (s *Rotor) axis() []float64 {
	sa, ca := math.Sincos(s.ThrustAngle)
	return []float64{ca, 0, -sa}
}

// ComputePerformance implements the Converter interface.
func (s *Rotor) ComputePerformance(in, out *Record, c *Conditions) error {
	ω := in.Array("omega")
	T, Q, P := out.Array("thrust"), out.Array("torque"), out.Array("power")
	CT, CP, J, Mt := out.Array("thrust_coefficient"), out.Array("power_coefficient"), out.Array("advance_ratio"), out.Array("tip_mach")
	D := 2 * s.Radius
	axis := s.axis()
	for i := 0; i < ω.Rows; i++ {
		ρ := c.Freestream.Density.At(i, 0)
		w := math.Max(0, ω.At(i, 0))
		n := w / (2 * math.Pi)
		vBody := MxV33(transformAt(c.Frames.Body.TransformToInertial, i).T(), c.Frames.Inertial.VelocityVector.Row(i))
		j := 0.
		if n > 0 {
			j = math.Max(0, dot(vBody, axis)) / (n * D)
		}
		x := j / s.MaximumAdvanceRatio
		ct := math.Max(0, s.StaticThrustCoefficient*(1-x*x))
		cp := s.StaticPowerCoefficient * (1 + 0.5*x)
		q := cp * ρ * n * n * math.Pow(D, 5) / (2 * math.Pi)
		T.Set(i, 0, ct*ρ*n*n*math.Pow(D, 4))
		Q.Set(i, 0, q)
		P.Set(i, 0, q*w)
		CT.Set(i, 0, ct)
		CP.Set(i, 0, cp)
		J.Set(i, 0, j)
		if a := c.Freestream.SpeedOfSound.At(i, 0); a > 0 {
			Mt.Set(i, 0, w*s.Radius/a)
		}
	}
	return nil
}
