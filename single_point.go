package amp

// SetSpeedSetThrottle trims the vehicle at one flight condition: the speed, altitude and
// throttle are given and the solver finds the body angle and the longitudinal acceleration
// that balance the forces.
type SetSpeedSetThrottle struct {
	*Segment
	// Altitude is nil to fly at the altitude the previous segment ends at.
	Altitude *float64
	AirSpeed float64 // m/s
	ZAccel   float64 // m/s², inertial, positive down
}

// NewSetSpeedSetThrottle returns a single point segment at 10 km/h and full throttle.
func NewSetSpeedSetThrottle(tag string, analyses *Analyses) *SetSpeedSetThrottle {
	s := &SetSpeedSetThrottle{Segment: NewSegment(tag, analyses), AirSpeed: 10 / 3.6}
	s.State.Numerics.NumberOfControlPoints = 1
	s.Controls.Throttle = Fixed(1)
	s.State.Unknowns.Add("x_accel", 1)
	s.State.Unknowns.Add("body_angle", 1).Fill(0.5)
	s.State.Residuals.Add("forces", 2)

	p := s.Process
	p.Set("initialize.expand_state", Skip)
	p.Set("initialize.differentials", Skip)
	p.Set("initialize.conditions", StageFunc(s.initializeConditions))
	p.Set("iterate.unknowns.mission", StageFunc(s.unpackUnknowns))
	p.Set("iterate.conditions.acceleration", Skip)
	p.Set("iterate.conditions.weights", Skip)
	p.Set("iterate.residuals.total_forces", StageFunc(climbDescentForces))
	p.Set("post_process.inertial_position", Skip)
	return s
}

func (s *SetSpeedSetThrottle) initializeConditions(*Segment) error {
	alt, err := s.requireInherited("altitude", s.Altitude, inheritAltitude)
	if err != nil {
		return err
	}
	c := s.State.Conditions
	c.Frames.Inertial.PositionVector.FillCol(2, -alt)
	c.Freestream.Altitude.Fill(alt)
	c.Frames.Inertial.VelocityVector.FillCol(0, s.AirSpeed)
	return nil
}

func (s *SetSpeedSetThrottle) unpackUnknowns(*Segment) error {
	unpackBodyAngle(s.Segment)
	a := s.State.Conditions.Frames.Inertial.AccelerationVector
	a.SetCol(0, s.State.Unknowns.Array("x_accel").Col(0))
	a.FillCol(2, s.ZAccel)
	return nil
}
