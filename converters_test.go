package amp

import (
	"errors"
	"math"
	"testing"
)

// gain multiplies its input by K.
type gain struct {
	name string
	K    float64
}

func (s *gain) Tag() string       { return s.name }
func (s *gain) Inputs() []string  { return []string{"in"} }
func (s *gain) Outputs() []string { return []string{"out"} }
func (s *gain) ComputePerformance(in, out *Record, c *Conditions) error {
	x, y := in.Array("in"), out.Array("out")
	for i := 0; i < x.Rows; i++ {
		y.Set(i, 0, s.K*x.At(i, 0))
	}
	return nil
}

func TestStageGraphRun(t *testing.T) {
	a, b := &gain{"a", 2}, &gain{"b", 3}
	g, err := newStageGraph("chain", []Converter{a, b},
		[]Link{{Port{"a", "out"}, Port{"b", "in"}}}, []Port{{"a", "in"}})
	if err != nil {
		t.Fatal(err)
	}
	r := NewRecord("chain", 2)
	g.appendConditions(r)
	g.input(r, Port{"a", "in"}).SetCol(0, []float64{1, 5})
	var order []string
	if err := g.run(r, NewConditions(2), func(stage string) error {
		order = append(order, stage)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if !vectorsEqual(g.output(r, Port{"b", "out"}).Col(0), []float64{6, 30}) {
		t.Fatalf("chain output %v", g.output(r, Port{"b", "out"}).Col(0))
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("stages ran as %v", order)
	}
}

func TestStageGraphValidation(t *testing.T) {
	a, b := &gain{"a", 1}, &gain{"b", 1}
	feedA := []Port{{"a", "in"}}
	ab := Link{Port{"a", "out"}, Port{"b", "in"}}
	for _, tc := range []struct {
		name     string
		stages   []Converter
		links    []Link
		external []Port
	}{
		{"duplicate tag", []Converter{a, &gain{"a", 2}}, nil, feedA},
		{"nil stage", []Converter{a, nil}, nil, feedA},
		{"backward link", []Converter{a, b}, []Link{{Port{"b", "out"}, Port{"a", "in"}}}, []Port{{"b", "in"}}},
		{"self link", []Converter{a, b}, []Link{ab, {Port{"b", "out"}, Port{"b", "in"}}}, feedA},
		{"unfed input", []Converter{a, b}, nil, feedA},
		{"fed twice", []Converter{a, b}, []Link{ab}, []Port{{"a", "in"}, {"b", "in"}}},
		{"not an output", []Converter{a, b}, []Link{{Port{"a", "in"}, Port{"b", "in"}}}, feedA},
		{"unknown stage", []Converter{a, b}, []Link{ab, {Port{"c", "out"}, Port{"b", "in"}}}, feedA},
		{"external not an input", []Converter{a, b}, []Link{ab}, []Port{{"a", "in"}, {"a", "out"}}},
	} {
		if _, err := newStageGraph("graph", tc.stages, tc.links, tc.external); !errors.Is(err, ErrConfig) {
			t.Errorf("%s: expected a configuration error, got %v", tc.name, err)
		}
	}
}

func TestTurbojetValidates(t *testing.T) {
	p := NewTurbojet("engine", 20)
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	p.Offtake = &ShaftPowerOfftake{Power: 50e3}
	if err := p.Validate(); err != nil {
		t.Fatalf("offtake: %s", err)
	}
	p.Combustor = nil
	if err := p.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("missing combustor: %v", err)
	}
}

func TestTurbojetOfftakeAtPartThrottle(t *testing.T) {
	a := jetAnalyses()
	line := a.Energy.Distributors[0].(*FuelLine)
	engine := line.Propulsors[0].(*Turbojet)
	engine.Offtake = &ShaftPowerOfftake{Power: 60e3}
	s := NewCruiseConstantSpeedConstantAltitude("cruise", a)
	s.Altitude = Float(8000)
	s.AirSpeed, s.Distance = 250, 500e3
	s.Controls.Throttle = Fixed(0.5)
	initialized(t, s.Segment)
	if err := s.Iterate(); err != nil {
		t.Fatal(err)
	}
	r := s.State.Conditions.Energy.Child("fuel_line").Child("starboard_engine")
	w := engine.graph.input(r, Port{engine.HighPressureTurbine.Name, "shaft_offtake_work"})
	mdot := r.Array("core_mass_flow_rate")
	for i := 0; i < r.Rows(); i++ {
		if th := r.Array("throttle").At(i, 0); th != 0.5 {
			t.Fatalf("row %d: throttle %f", i, th)
		}
		// Specific work on the core flow that actually passes the turbine.
		delivered := w.At(i, 0) * mdot.At(i, 0) * 0.5
		if relativeError(delivered, 60e3) > 1e-12 || relativeError(r.Array("offtake_power").At(i, 0), 60e3) > 1e-12 {
			t.Fatalf("row %d: accessories get %f W of 60 kW", i, delivered)
		}
	}

	// No flow, no accessories.
	s.Controls.Throttle = Fixed(0)
	if err := s.Iterate(); err != nil {
		t.Fatal(err)
	}
	if w.At(0, 0) != 0 || r.Array("offtake_power").At(0, 0) != 0 {
		t.Fatal("an engine without core flow drives its accessories")
	}
}

func TestElectricRotorValidates(t *testing.T) {
	p := NewElectricRotor("rotor", 0.6, 0.6, 0.73)
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	p.Motor.Resistance = 0
	if err := p.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("zero resistance: %v", err)
	}
}

func TestDCMotorTorqueBalance(t *testing.T) {
	m := &DCMotor{Name: "motor", SpeedConstant: 0.6, Resistance: 0.73, NoLoadCurrent: 2, rotorDiameter: 1.2}
	c := NewConditions(1)
	c.Freestream.Density.Set(0, 0, 1.225)
	in, out := NewRecord("inputs", 1), NewRecord("outputs", 1)
	in.Add("voltage", 1).Set(0, 0, 400)
	in.Add("power_coefficient", 1).Set(0, 0, 0.04)
	for _, name := range m.Outputs() {
		out.Add(name, 1)
	}
	if err := m.ComputePerformance(in, out, c); err != nil {
		t.Fatal(err)
	}
	ω := out.Array("omega").At(0, 0)
	Q := out.Array("torque").At(0, 0)
	// The rotor torque of that power coefficient at ω matches the motor torque.
	n := ω / (2 * math.Pi)
	rotor := 0.04 * 1.225 * n * n * math.Pow(1.2, 5) / (2 * math.Pi)
	if ω <= 0 || relativeError(Q, rotor) > 1e-9 {
		t.Fatalf("ω=%f motor torque %f rotor torque %f", ω, Q, rotor)
	}
	// Back EMF below the supply.
	if out.Array("current").At(0, 0) <= m.NoLoadCurrent {
		t.Fatal("a loaded motor draws more than its no load current")
	}
}

// designThrust is the thrust of p at its design point.
func designThrust(t *testing.T, p Propulsor, altitude, mach float64) float64 {
	t.Helper()
	r, c, err := designPoint(p, altitude, mach)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ComputePerformance(r, c); err != nil {
		t.Fatal(err)
	}
	return r.Array("thrust").At(0, 0)
}

func TestSizeCore(t *testing.T) {
	jet := NewTurbojet("engine", 10)
	if err := jet.SizeCore(30e3, 10000, 0.8); err != nil {
		t.Fatal(err)
	}
	if T := designThrust(t, jet, 10000, 0.8); relativeError(T, 30e3) > 1e-9 {
		t.Fatalf("sized turbojet delivers %f N", T)
	}
	bare := jet.DesignMassFlowRate

	// Accessories take turbine work, so the same thrust needs more air.
	loaded := NewTurbojet("engine", 10)
	loaded.Offtake = &ShaftPowerOfftake{Power: 100e3}
	if err := loaded.SizeCore(30e3, 10000, 0.8); err != nil {
		t.Fatal(err)
	}
	if T := designThrust(t, loaded, 10000, 0.8); relativeError(T, 30e3) > 1e-9 {
		t.Fatalf("sized turbojet with offtake delivers %f N", T)
	}
	if loaded.DesignMassFlowRate <= bare {
		t.Fatalf("offtake sized %f kg/s, bare %f kg/s", loaded.DesignMassFlowRate, bare)
	}

	prop := NewTurboprop("engine", 0)
	if err := prop.SizeCore(15e3, 6000, 0.45); err != nil {
		t.Fatal(err)
	}
	if T := designThrust(t, prop, 6000, 0.45); relativeError(T, 15e3) > 1e-9 {
		t.Fatalf("sized turboprop delivers %f N", T)
	}

	// Twice the thrust, twice the air.
	big := NewTurboprop("engine", 0)
	if err := big.SizeCore(30e3, 6000, 0.45); err != nil {
		t.Fatal(err)
	}
	if relativeError(big.DesignMassFlowRate, 2*prop.DesignMassFlowRate) > 1e-9 {
		t.Fatalf("core flow %f for twice %f", big.DesignMassFlowRate, prop.DesignMassFlowRate)
	}

	if err := NewTurbojet("engine", 10).SizeCore(0, 10000, 0.8); !errors.Is(err, ErrConfig) {
		t.Fatalf("zero design thrust: %v", err)
	}
	if err := NewTurbojet("engine", 10).SizeCore(30e3, 200e3, 0.8); err == nil {
		t.Fatal("sized above the atmosphere")
	}
}
