package amp

// ElectricRotor is an ESC, a DC motor and a rotor on a bus. The rotor power coefficient
// is an unknown of the segment: the motor turns at the speed where it balances the torque
// of that coefficient, and the torque residual drives it to the rotor's own.
type ElectricRotor struct {
	Name     string
	Inactive bool
	Origin   [3]float64

	ESC   *ESC
	Motor *DCMotor
	Rotor *Rotor

	graph *stageGraph
}

// NewElectricRotor returns a rotor of the given radius with its motor and ESC.
func NewElectricRotor(name string, radius, speedConstant, resistance float64) *ElectricRotor {
	return &ElectricRotor{
		Name:  name,
		ESC:   &ESC{Name: "esc", Efficiency: 0.95},
		Motor: &DCMotor{Name: "motor", SpeedConstant: speedConstant, Resistance: resistance, NoLoadCurrent: 2},
		Rotor: &Rotor{Name: "rotor", Radius: radius, Blades: 3, ThrustAngle: Deg2rad(90),
			StaticThrustCoefficient: 0.1, StaticPowerCoefficient: 0.04, MaximumAdvanceRatio: 1.2, DesignTorque: 20},
	}
}

// Tag implements the Propulsor interface.
func (p *ElectricRotor) Tag() string { return p.Name }

// IsActive implements the Propulsor interface.
func (p *ElectricRotor) IsActive() bool { return !p.Inactive }

// Location implements the Propulsor interface.
func (p *ElectricRotor) Location() [3]float64 { return p.Origin }

// Validate implements the Propulsor interface.
func (p *ElectricRotor) Validate() error {
	if p.ESC == nil || p.Motor == nil || p.Rotor == nil {
		return configErrorf(p.Name, "an electric rotor needs an ESC, a motor and a rotor")
	}
	if p.Rotor.Radius <= 0 || p.Rotor.DesignTorque <= 0 || p.Rotor.MaximumAdvanceRatio <= 0 {
		return configErrorf(p.Name+"."+p.Rotor.Name, "radius, design torque and maximum advance ratio must be positive")
	}
	if p.Motor.SpeedConstant <= 0 || p.Motor.Resistance <= 0 {
		return configErrorf(p.Name+"."+p.Motor.Name, "speed constant and resistance must be positive")
	}
	if p.ESC.Efficiency <= 0 {
		return configErrorf(p.Name+"."+p.ESC.Name, "efficiency must be positive")
	}
	p.Motor.rotorDiameter = 2 * p.Rotor.Radius
	stages := []Converter{p.ESC, p.Motor, p.Rotor}
	links := []Link{
		{Port{p.ESC.Name, "voltage"}, Port{p.Motor.Name, "voltage"}},
		{Port{p.Motor.Name, "omega"}, Port{p.Rotor.Name, "omega"}},
	}
	external := []Port{
		{p.ESC.Name, "bus_voltage"},
		{p.ESC.Name, "throttle"},
		{p.Motor.Name, "power_coefficient"},
	}
	g, err := newStageGraph(p.Name, stages, links, external)
	if err != nil {
		return err
	}
	p.graph = g
	return nil
}

// AppendConditions implements the Propulsor interface. The bus writes `voltage` and the
// `power_coefficient` unknown.
func (p *ElectricRotor) AppendConditions(r *Record) {
	appendPropulsorConditions(r)
	for _, name := range []string{"voltage", "power_coefficient", "current", "omega", "torque"} {
		r.Add(name, 1)
	}
	p.graph.appendConditions(r)
}

// ComputePerformance implements the Propulsor interface.
func (p *ElectricRotor) ComputePerformance(r *Record, c *Conditions) error {
	thr := p.graph.input(r, Port{p.ESC.Name, "throttle"})
	for i := 0; i < thr.Rows; i++ {
		thr.Set(i, 0, throttleAt(r, i))
	}
	p.graph.input(r, Port{p.ESC.Name, "bus_voltage"}).CopyFrom(r.Array("voltage"))
	p.graph.input(r, Port{p.Motor.Name, "power_coefficient"}).CopyFrom(r.Array("power_coefficient"))
	if err := p.graph.run(r, c, nil); err != nil {
		return err
	}
	motor := r.Child(p.Motor.Name).Child("outputs")
	rotor := r.Child(p.Rotor.Name).Child("outputs")
	v := r.Array("voltage")
	for i := 0; i < r.Rows(); i++ {
		current := motor.Array("current").At(i, 0) * thr.At(i, 0) / p.ESC.Efficiency
		setThrust(r, i, rotor.Array("thrust").At(i, 0), p.Rotor.ThrustAngle)
		r.Array("current").Set(i, 0, current)
		r.Array("power").Set(i, 0, current*v.At(i, 0))
		r.Array("omega").Set(i, 0, motor.Array("omega").At(i, 0))
		r.Array("torque").Set(i, 0, rotor.Array("torque").At(i, 0))
		r.Array("fuel_flow_rate").Set(i, 0, 0)
	}
	return nil
}

// torqueResidual is the motor torque in excess of the rotor torque, per design torque.
func (p *ElectricRotor) torqueResidual(r *Record, i int) float64 {
	Qm := r.Child(p.Motor.Name).Child("outputs").Array("torque").At(i, 0)
	Qr := r.Child(p.Rotor.Name).Child("outputs").Array("torque").At(i, 0)
	return (Qm - Qr) / p.Rotor.DesignTorque
}

// RotorSource implements the RotorNoiseSource interface.
func (p *ElectricRotor) RotorSource(r *Record, i int) (power, diameter, tipMach float64, blades int) {
	out := r.Child(p.Rotor.Name).Child("outputs")
	return out.Array("power").At(i, 0), 2 * p.Rotor.Radius, out.Array("tip_mach").At(i, 0), p.Rotor.Blades
}
