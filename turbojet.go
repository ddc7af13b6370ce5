package amp

import (
	"math"
)

// Turbojet is a two spool turbojet. The core mass flow follows the inlet stagnation state
// from its design value; throttle scales mass flow, thrust and fuel flow.
type Turbojet struct {
	Name            string
	Inactive        bool
	Origin          [3]float64
	ThrustAngle     float64 // rad
	ActiveFuelTanks []string

	DesignMassFlowRate   float64 // kg/s, at the reference state
	ReferenceTemperature float64 // K
	ReferencePressure    float64 // Pa

	Ram                    *Ram
	Inlet                  *CompressionNozzle
	LowPressureCompressor  *Compressor
	HighPressureCompressor *Compressor
	Combustor              *Combustor
	HighPressureTurbine    *Turbine
	LowPressureTurbine     *Turbine
	Nozzle                 *ExpansionNozzle
	// Offtake is nil when the engine drives no accessories.
	Offtake *ShaftPowerOfftake

	graph *stageGraph
}

// NewTurbojet returns a turbojet with typical component performance.
func NewTurbojet(name string, designMassFlow float64) *Turbojet {
	return &Turbojet{
		Name:                   name,
		DesignMassFlowRate:     designMassFlow,
		ReferenceTemperature:   288.15,
		ReferencePressure:      101325,
		Ram:                    &Ram{Name: "ram"},
		Inlet:                  &CompressionNozzle{Name: "inlet_nozzle", PressureRatio: 0.98},
		LowPressureCompressor:  &Compressor{Name: "low_pressure_compressor", PressureRatio: 3, PolytropicEfficiency: 0.91},
		HighPressureCompressor: &Compressor{Name: "high_pressure_compressor", PressureRatio: 4, PolytropicEfficiency: 0.91},
		Combustor: &Combustor{Name: "combustor", TurbineInletTemperature: 1400, Efficiency: 0.99,
			FuelLowerHeatingValue: 43e6, PressureRatio: 0.95},
		HighPressureTurbine: &Turbine{Name: "high_pressure_turbine", MechanicalEfficiency: 0.99, PolytropicEfficiency: 0.93},
		LowPressureTurbine:  &Turbine{Name: "low_pressure_turbine", MechanicalEfficiency: 0.99, PolytropicEfficiency: 0.93},
		Nozzle:              &ExpansionNozzle{Name: "core_nozzle", PressureRatio: 0.99, PolytropicEfficiency: 0.95},
	}
}

// Tag implements the Propulsor interface.
func (p *Turbojet) Tag() string { return p.Name }

// IsActive implements the Propulsor interface.
func (p *Turbojet) IsActive() bool { return !p.Inactive }

// Location implements the Propulsor interface.
func (p *Turbojet) Location() [3]float64 { return p.Origin }

// FuelTanks implements the FuelPropulsor interface.
func (p *Turbojet) FuelTanks() []string { return p.ActiveFuelTanks }

func (p *Turbojet) stages() []Converter {
	return []Converter{p.Ram, p.Inlet, p.LowPressureCompressor, p.HighPressureCompressor,
		p.Combustor, p.HighPressureTurbine, p.LowPressureTurbine, p.Nozzle}
}

// Validate implements the Propulsor interface.
func (p *Turbojet) Validate() error {
	if p.Ram == nil || p.Inlet == nil || p.LowPressureCompressor == nil || p.HighPressureCompressor == nil ||
		p.Combustor == nil || p.HighPressureTurbine == nil || p.LowPressureTurbine == nil || p.Nozzle == nil {
		return configErrorf(p.Name, "every stage of a turbojet must be set")
	}
	stages := p.stages()
	p.HighPressureTurbine.ShaftOfftake = p.Offtake != nil
	var external []Port
	if p.Offtake != nil {
		external = []Port{{p.HighPressureTurbine.Name, "shaft_offtake_work"}}
	}
	var links []Link
	links = append(links, gasLinks(p.Ram.Name, p.Inlet.Name)...)
	links = append(links, gasLinks(p.Inlet.Name, p.LowPressureCompressor.Name)...)
	links = append(links, gasLinks(p.LowPressureCompressor.Name, p.HighPressureCompressor.Name)...)
	links = append(links, gasLinks(p.HighPressureCompressor.Name, p.Combustor.Name)...)
	links = append(links, gasLinks(p.Combustor.Name, p.HighPressureTurbine.Name)...)
	links = append(links, gasLinks(p.HighPressureTurbine.Name, p.LowPressureTurbine.Name)...)
	links = append(links, gasLinks(p.LowPressureTurbine.Name, p.Nozzle.Name)...)
	links = append(links,
		Link{Port{p.HighPressureCompressor.Name, "work"}, Port{p.HighPressureTurbine.Name, "compressor_work"}},
		Link{Port{p.LowPressureCompressor.Name, "work"}, Port{p.LowPressureTurbine.Name, "compressor_work"}},
		Link{Port{p.Combustor.Name, "fuel_to_air_ratio"}, Port{p.HighPressureTurbine.Name, "fuel_to_air_ratio"}},
		Link{Port{p.Combustor.Name, "fuel_to_air_ratio"}, Port{p.LowPressureTurbine.Name, "fuel_to_air_ratio"}},
	)
	g, err := newStageGraph(p.Name, stages, links, external)
	if err != nil {
		return err
	}
	p.graph = g
	return nil
}

// AppendConditions implements the Propulsor interface.
func (p *Turbojet) AppendConditions(r *Record) {
	appendPropulsorConditions(r)
	r.Add("core_mass_flow_rate", 1)
	r.Add("thrust_specific_fuel_consumption", 1)
	if p.Offtake != nil {
		r.Add("offtake_power", 1)
	}
	p.graph.appendConditions(r)
}

// minimumCoreFlow is the throttled core flow, kg/s, below which a turbojet drives no
// accessories.
const minimumCoreFlow = 1e-6

// coreMassFlow is the unthrottled core mass flow at the inlet exit state.
func coreMassFlow(design, Tref, Pref, Tt, Pt float64) float64 {
	return design * math.Sqrt(Tref/Tt) * Pt / Pref
}

// ComputePerformance implements the Propulsor interface.
func (p *Turbojet) ComputePerformance(r *Record, c *Conditions) error {
	mdot := r.Array("core_mass_flow_rate")
	err := p.graph.run(r, c, func(stage string) error {
		if stage != p.Inlet.Name {
			return nil
		}
		inlet := r.Child(p.Inlet.Name).Child("outputs")
		Tt, Pt := inlet.Array("stagnation_temperature"), inlet.Array("stagnation_pressure")
		for i := 0; i < Tt.Rows; i++ {
			mdot.Set(i, 0, coreMassFlow(p.DesignMassFlowRate, p.ReferenceTemperature, p.ReferencePressure, Tt.At(i, 0), Pt.At(i, 0)))
		}
		if p.Offtake != nil {
			// The accessories load the throttled core flow; an engine without flow drives none.
			w := p.graph.input(r, Port{p.HighPressureTurbine.Name, "shaft_offtake_work"})
			P := r.Array("offtake_power")
			for i := 0; i < w.Rows; i++ {
				m := mdot.At(i, 0) * throttleAt(r, i)
				if m < minimumCoreFlow {
					w.Set(i, 0, 0)
					P.Set(i, 0, 0)
					continue
				}
				w.Set(i, 0, p.Offtake.Power/m)
				P.Set(i, 0, w.At(i, 0)*m)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	out := r.Child(p.Nozzle.Name).Child("outputs")
	f := r.Child(p.Combustor.Name).Child("outputs").Array("fuel_to_air_ratio")
	for i := 0; i < r.Rows(); i++ {
		Fsp := jetSpecificThrust(c, i, f.At(i, 0), out.Array("exit_velocity").At(i, 0),
			out.Array("exit_static_temperature").At(i, 0), out.Array("exit_static_pressure").At(i, 0))
		thr := throttleAt(r, i)
		m := mdot.At(i, 0) * thr
		T := Fsp * m
		fuel := math.Max(0, f.At(i, 0)*m)
		setThrust(r, i, T, p.ThrustAngle)
		r.Array("fuel_flow_rate").Set(i, 0, fuel)
		r.Array("power").Set(i, 0, T*c.Freestream.Velocity.At(i, 0))
		if T > 0 {
			r.Array("thrust_specific_fuel_consumption").Set(i, 0, fuel/T)
		} else {
			r.Array("thrust_specific_fuel_consumption").Set(i, 0, 0)
		}
	}
	return nil
}

// jetSpecificThrust is the thrust per unit core air mass flow of a nozzle exhausting at
// (Ue, Te, Pe), including the pressure thrust of a choked nozzle.
func jetSpecificThrust(c *Conditions, i int, f, Ue, Te, Pe float64) float64 {
	U0 := c.Freestream.Velocity.At(i, 0)
	p0 := c.Freestream.Pressure.At(i, 0)
	R := c.Freestream.GasSpecificConstant.At(i, 0)
	Fsp := (1+f)*Ue - U0
	if Ue > 0 && Pe > 0 {
		Fsp += (1 + f) * R * Te / Ue * (1 - p0/Pe)
	}
	return Fsp
}

// CombustorInlet implements the CombustionSource interface.
func (p *Turbojet) CombustorInlet(r *Record) (Tt, Pt *Array) {
	in := r.Child(p.Combustor.Name).Child("inputs")
	return in.Array("entering_stagnation_temperature"), in.Array("entering_stagnation_pressure")
}

// JetExhaust implements the JetNoiseSource interface.
func (p *Turbojet) JetExhaust(r *Record, i int) (mdot, Ue, ρe float64) {
	return jetExhaust(r, p.Nozzle.Name, p.Combustor.Name, i)
}

func jetExhaust(r *Record, nozzle, combustor string, i int) (mdot, Ue, ρe float64) {
	out := r.Child(nozzle).Child("outputs")
	f := r.Child(combustor).Child("outputs").Array("fuel_to_air_ratio").At(i, 0)
	mdot = r.Array("core_mass_flow_rate").At(i, 0) * throttleAt(r, i) * (1 + f)
	Ue = out.Array("exit_velocity").At(i, 0)
	if Te := out.Array("exit_static_temperature").At(i, 0); Te > 0 {
		ρe = out.Array("exit_static_pressure").At(i, 0) / (airGasConstant * Te)
	}
	return
}
