package amp

import "math"

// Turboprop drives a propeller from a free power turbine. The residual core flow adds
// jet thrust.
type Turboprop struct {
	Name            string
	Inactive        bool
	Origin          [3]float64
	ThrustAngle     float64 // rad
	ActiveFuelTanks []string

	DesignMassFlowRate   float64 // kg/s, at the reference state
	ReferenceTemperature float64 // K
	ReferencePressure    float64 // Pa
	PropellerEfficiency  float64
	GearboxEfficiency    float64
	// MinimumPropellerSpeed bounds the propeller thrust at low flight speed, m/s.
	MinimumPropellerSpeed float64

	Ram          *Ram
	Inlet        *CompressionNozzle
	Compressor   *Compressor
	Combustor    *Combustor
	Turbine      *Turbine
	PowerTurbine *PowerTurbine
	Nozzle       *ExpansionNozzle

	graph *stageGraph
}

// NewTurboprop returns a single spool turboprop with typical component performance.
func NewTurboprop(name string, designMassFlow float64) *Turboprop {
	return &Turboprop{
		Name:                  name,
		DesignMassFlowRate:    designMassFlow,
		ReferenceTemperature:  288.15,
		ReferencePressure:     101325,
		PropellerEfficiency:   0.8,
		GearboxEfficiency:     0.98,
		MinimumPropellerSpeed: 15,
		Ram:                   &Ram{Name: "ram"},
		Inlet:                 &CompressionNozzle{Name: "inlet_nozzle", PressureRatio: 0.98},
		Compressor:            &Compressor{Name: "compressor", PressureRatio: 10, PolytropicEfficiency: 0.9},
		Combustor: &Combustor{Name: "combustor", TurbineInletTemperature: 1370, Efficiency: 0.99,
			FuelLowerHeatingValue: 43e6, PressureRatio: 0.96},
		Turbine:      &Turbine{Name: "turbine", MechanicalEfficiency: 0.99, PolytropicEfficiency: 0.92},
		PowerTurbine: &PowerTurbine{Name: "power_turbine", PressureRatio: 0.3, PolytropicEfficiency: 0.92, MechanicalEfficiency: 0.99},
		Nozzle:       &ExpansionNozzle{Name: "core_nozzle", PressureRatio: 0.99, PolytropicEfficiency: 0.95},
	}
}

// Tag implements the Propulsor interface.
func (p *Turboprop) Tag() string { return p.Name }

// IsActive implements the Propulsor interface.
func (p *Turboprop) IsActive() bool { return !p.Inactive }

// Location implements the Propulsor interface.
func (p *Turboprop) Location() [3]float64 { return p.Origin }

// FuelTanks implements the FuelPropulsor interface.
func (p *Turboprop) FuelTanks() []string { return p.ActiveFuelTanks }

// Validate implements the Propulsor interface.
func (p *Turboprop) Validate() error {
	if p.Ram == nil || p.Inlet == nil || p.Compressor == nil || p.Combustor == nil ||
		p.Turbine == nil || p.PowerTurbine == nil || p.Nozzle == nil {
		return configErrorf(p.Name, "every stage of a turboprop must be set")
	}
	stages := []Converter{p.Ram, p.Inlet, p.Compressor, p.Combustor, p.Turbine, p.PowerTurbine, p.Nozzle}
	var links []Link
	for i := 1; i < len(stages); i++ {
		links = append(links, gasLinks(stages[i-1].Tag(), stages[i].Tag())...)
	}
	links = append(links,
		Link{Port{p.Compressor.Name, "work"}, Port{p.Turbine.Name, "compressor_work"}},
		Link{Port{p.Combustor.Name, "fuel_to_air_ratio"}, Port{p.Turbine.Name, "fuel_to_air_ratio"}},
		Link{Port{p.Combustor.Name, "fuel_to_air_ratio"}, Port{p.PowerTurbine.Name, "fuel_to_air_ratio"}},
	)
	p.Turbine.ShaftOfftake = false
	g, err := newStageGraph(p.Name, stages, links, nil)
	if err != nil {
		return err
	}
	p.graph = g
	return nil
}

// AppendConditions implements the Propulsor interface.
func (p *Turboprop) AppendConditions(r *Record) {
	appendPropulsorConditions(r)
	for _, name := range []string{"core_mass_flow_rate", "shaft_power", "propeller_thrust", "core_thrust",
		"power_specific_fuel_consumption"} {
		r.Add(name, 1)
	}
	p.graph.appendConditions(r)
}

// ComputePerformance implements the Propulsor interface.
func (p *Turboprop) ComputePerformance(r *Record, c *Conditions) error {
	if err := p.graph.run(r, c, nil); err != nil {
		return err
	}
	inlet := r.Child(p.Inlet.Name).Child("outputs")
	f := r.Child(p.Combustor.Name).Child("outputs").Array("fuel_to_air_ratio")
	work := r.Child(p.PowerTurbine.Name).Child("outputs").Array("shaft_work")
	nozzle := r.Child(p.Nozzle.Name).Child("outputs")
	for i := 0; i < r.Rows(); i++ {
		mdot := coreMassFlow(p.DesignMassFlowRate, p.ReferenceTemperature, p.ReferencePressure,
			inlet.Array("stagnation_temperature").At(i, 0), inlet.Array("stagnation_pressure").At(i, 0))
		thr := throttleAt(r, i)
		m := mdot * thr
		U0 := c.Freestream.Velocity.At(i, 0)
		P := work.At(i, 0) * m * p.GearboxEfficiency
		Tprop := p.PropellerEfficiency * P / math.Max(U0, p.MinimumPropellerSpeed)
		Tcore := m * ((1+f.At(i, 0))*nozzle.Array("exit_velocity").At(i, 0) - U0)
		fuel := math.Max(0, f.At(i, 0)*m)

		r.Array("core_mass_flow_rate").Set(i, 0, mdot)
		r.Array("shaft_power").Set(i, 0, P)
		r.Array("propeller_thrust").Set(i, 0, Tprop)
		r.Array("core_thrust").Set(i, 0, Tcore)
		setThrust(r, i, Tprop+Tcore, p.ThrustAngle)
		r.Array("power").Set(i, 0, P)
		r.Array("fuel_flow_rate").Set(i, 0, fuel)
		if P > 0 {
			r.Array("power_specific_fuel_consumption").Set(i, 0, fuel/P)
		} else {
			r.Array("power_specific_fuel_consumption").Set(i, 0, 0)
		}
	}
	return nil
}

// CombustorInlet implements the CombustionSource interface.
func (p *Turboprop) CombustorInlet(r *Record) (Tt, Pt *Array) {
	in := r.Child(p.Combustor.Name).Child("inputs")
	return in.Array("entering_stagnation_temperature"), in.Array("entering_stagnation_pressure")
}

// JetExhaust implements the JetNoiseSource interface.
func (p *Turboprop) JetExhaust(r *Record, i int) (mdot, Ue, ρe float64) {
	return jetExhaust(r, p.Nozzle.Name, p.Combustor.Name, i)
}
