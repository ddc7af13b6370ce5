package amp

// CruiseConstantSpeedConstantAltitude flies a distance in level flight at a fixed speed.
type CruiseConstantSpeedConstantAltitude struct {
	*Segment
	// Altitude is nil to cruise at the altitude the previous segment ends at.
	Altitude *float64
	AirSpeed float64 // m/s
	Distance float64 // m

	alt float64
}

// NewCruiseConstantSpeedConstantAltitude returns a cruise segment with a solved throttle.
func NewCruiseConstantSpeedConstantAltitude(tag string, analyses *Analyses) *CruiseConstantSpeedConstantAltitude {
	s := &CruiseConstantSpeedConstantAltitude{Segment: NewSegment(tag, analyses)}
	s.State.Unknowns.Add("body_angle", 1).Fill(Deg2rad(1))
	s.State.Residuals.Add("forces", 2)

	p := s.Process
	p.Set("initialize.conditions", StageFunc(s.initializeConditions))
	p.Set("iterate.unknowns.mission", StageFunc(func(seg *Segment) error {
		unpackBodyAngle(seg)
		return nil
	}))
	p.Set("iterate.conditions.differentials", StageFunc(s.updateDifferentials))
	p.Set("iterate.residuals.total_forces", StageFunc(climbDescentForces))
	return s
}

func (s *CruiseConstantSpeedConstantAltitude) initializeConditions(*Segment) error {
	alt, err := s.requireInherited("altitude", s.Altitude, inheritAltitude)
	if err != nil {
		return err
	}
	if s.AirSpeed <= 0 {
		return &ConfigError{Segment: s.Tag, Field: "air_speed", Reason: "must be positive"}
	}
	if s.Distance <= 0 {
		return &ConfigError{Segment: s.Tag, Field: "distance", Reason: "must be positive"}
	}
	s.alt = alt
	v := s.State.Conditions.Frames.Inertial.VelocityVector
	v.Fill(0)
	v.FillCol(0, s.AirSpeed)
	return nil
}

func (s *CruiseConstantSpeedConstantAltitude) updateDifferentials(*Segment) error {
	if err := updateTime(s.Segment, s.Distance/s.AirSpeed); err != nil {
		return err
	}
	updatePosition(s.Segment, s.alt)
	return nil
}
