package amp

// Freestream holds the air state seen by the vehicle.
type Freestream struct {
	*Record
	Altitude                       *Array
	Velocity                       *Array
	MachNumber                     *Array
	Density                        *Array
	Pressure                       *Array
	Temperature                    *Array
	SpeedOfSound                   *Array
	DynamicViscosity               *Array
	DynamicPressure                *Array
	Gravity                        *Array
	ReynoldsNumber                 *Array // per unit length
	IsentropicExpansionFactor      *Array
	SpecificHeatAtConstantPressure *Array
	GasSpecificConstant            *Array
}

func bindFreestream(r *Record) *Freestream {
	return &Freestream{
		Record:                         r,
		Altitude:                       r.Add("altitude", 1),
		Velocity:                       r.Add("velocity", 1),
		MachNumber:                     r.Add("mach_number", 1),
		Density:                        r.Add("density", 1),
		Pressure:                       r.Add("pressure", 1),
		Temperature:                    r.Add("temperature", 1),
		SpeedOfSound:                   r.Add("speed_of_sound", 1),
		DynamicViscosity:               r.Add("dynamic_viscosity", 1),
		DynamicPressure:                r.Add("dynamic_pressure", 1),
		Gravity:                        r.Add("gravity", 1),
		ReynoldsNumber:                 r.Add("reynolds_number", 1),
		IsentropicExpansionFactor:      r.Add("isentropic_expansion_factor", 1),
		SpecificHeatAtConstantPressure: r.Add("specific_heat_at_constant_pressure", 1),
		GasSpecificConstant:            r.Add("gas_specific_constant", 1),
	}
}

// InertialFrame is the earth-fixed frame: x forward, y right, z down.
type InertialFrame struct {
	*Record
	PositionVector     *Array
	VelocityVector     *Array
	AccelerationVector *Array
	TotalForceVector   *Array
	GravityForceVector *Array
	Time               *Array
	AircraftRange      *Array
}

// BodyFrame is attached to the airframe.
type BodyFrame struct {
	*Record
	InertialRotations   *Array // roll, pitch, yaw
	ThrustForceVector   *Array
	TransformToInertial *Array // 3x3 per row, row-major
}

// WindFrame is aligned with the air-relative velocity.
type WindFrame struct {
	*Record
	BodyRotations       *Array
	ForceVector         *Array // -drag, side, -lift
	TransformToInertial *Array
}

// Frames groups the reference frames.
type Frames struct {
	*Record
	Inertial *InertialFrame
	Body     *BodyFrame
	Wind     *WindFrame
}

func bindFrames(r *Record) *Frames {
	in := r.EnsureChild("inertial")
	body := r.EnsureChild("body")
	wind := r.EnsureChild("wind")
	return &Frames{
		Record: r,
		Inertial: &InertialFrame{
			Record:             in,
			PositionVector:     in.Add("position_vector", 3),
			VelocityVector:     in.Add("velocity_vector", 3),
			AccelerationVector: in.Add("acceleration_vector", 3),
			TotalForceVector:   in.Add("total_force_vector", 3),
			GravityForceVector: in.Add("gravity_force_vector", 3),
			Time:               in.Add("time", 1),
			AircraftRange:      in.Add("aircraft_range", 1),
		},
		Body: &BodyFrame{
			Record:              body,
			InertialRotations:   body.Add("inertial_rotations", 3),
			ThrustForceVector:   body.Add("thrust_force_vector", 3),
			TransformToInertial: body.Add("transform_to_inertial", 9),
		},
		Wind: &WindFrame{
			Record:              wind,
			BodyRotations:       wind.Add("body_rotations", 3),
			ForceVector:         wind.Add("force_vector", 3),
			TransformToInertial: wind.Add("transform_to_inertial", 9),
		},
	}
}

// Weights holds the vehicle mass history.
type Weights struct {
	*Record
	TotalMass       *Array
	VehicleMassRate *Array
}

// Aerodynamics holds the aerodynamic state.
type Aerodynamics struct {
	*Record
	AngleOfAttack   *Array
	LiftCoefficient *Array
	DragCoefficient *Array
	LiftToDragRatio *Array
}

// EnergyConditions holds the network totals; each distributor owns the child record
// named by its tag.
type EnergyConditions struct {
	*Record
	ThrustForceVector  *Array
	ThrustMomentVector *Array
	Power              *Array
	VehicleMassRate    *Array
}

// NoiseConditions holds the total sound pressure level at the observer; each distributor
// owns the child record named by its tag.
type NoiseConditions struct {
	*Record
	TotalSPL *Array
}

// Conditions is the condition store of a segment: typed views over one record tree.
type Conditions struct {
	Root         *Record
	Freestream   *Freestream
	Frames       *Frames
	Weights      *Weights
	Aerodynamics *Aerodynamics
	Energy       *EnergyConditions
	Noise        *NoiseConditions
	Emissions    *Record
}

// NewConditions returns a zeroed condition store with rows control points.
func NewConditions(rows int) *Conditions {
	return bindConditions(NewRecord("conditions", rows))
}

func bindConditions(root *Record) *Conditions {
	w := root.EnsureChild("weights")
	aero := root.EnsureChild("aerodynamics")
	en := root.EnsureChild("energy")
	ns := root.EnsureChild("noise")
	return &Conditions{
		Root:       root,
		Freestream: bindFreestream(root.EnsureChild("freestream")),
		Frames:     bindFrames(root.EnsureChild("frames")),
		Weights: &Weights{
			Record:          w,
			TotalMass:       w.Add("total_mass", 1),
			VehicleMassRate: w.Add("vehicle_mass_rate", 1),
		},
		Aerodynamics: &Aerodynamics{
			Record:          aero,
			AngleOfAttack:   aero.Add("angle_of_attack", 1),
			LiftCoefficient: aero.Add("lift_coefficient", 1),
			DragCoefficient: aero.Add("drag_coefficient", 1),
			LiftToDragRatio: aero.Add("lift_to_drag_ratio", 1),
		},
		Energy: &EnergyConditions{
			Record:             en,
			ThrustForceVector:  en.Add("thrust_force_vector", 3),
			ThrustMomentVector: en.Add("thrust_moment_vector", 3),
			Power:              en.Add("power", 1),
			VehicleMassRate:    en.Add("vehicle_mass_rate", 1),
		},
		Noise: &NoiseConditions{
			Record:   ns,
			TotalSPL: ns.Add("total_SPL", 1),
		},
		Emissions: root.EnsureChild("emissions"),
	}
}

// Rows returns the number of control points.
func (c *Conditions) Rows() int {
	return c.Root.Rows()
}

// ExpandRows resizes every leaf to n rows, zero-filling new rows. Idempotent.
func (c *Conditions) ExpandRows(n int) {
	if n == c.Root.Rows() {
		return
	}
	c.Root.ExpandRows(n)
}

// LastRow returns a one-row deep copy of the store, used as the next segment's initials.
func (c *Conditions) LastRow() *Conditions {
	return bindConditions(c.Root.LastRow())
}

// Walk visits every leaf with its dotted path.
func (c *Conditions) Walk(fn func(path string, a *Array)) {
	c.Root.Walk(fn)
}
