package amp

// HoverClimb climbs or descends vertically at a constant rate, or hovers for a given time
// when the rate is zero. Only the vertical forces are balanced.
type HoverClimb struct {
	*Segment
	// AltitudeStart is nil to start where the previous segment ends.
	AltitudeStart *float64
	AltitudeEnd   float64
	ClimbRate     float64 // m/s, positive up
	Time          float64 // s, when ClimbRate is zero

	alt0 float64
}

// NewHoverClimb returns a vertical segment with a solved throttle.
func NewHoverClimb(tag string, analyses *Analyses) *HoverClimb {
	s := &HoverClimb{Segment: NewSegment(tag, analyses)}
	s.State.Residuals.Add("forces", 1)

	p := s.Process
	p.Set("initialize.conditions", StageFunc(s.initializeConditions))
	p.Set("iterate.conditions.differentials", StageFunc(s.updateDifferentials))
	p.Set("iterate.residuals.total_forces", StageFunc(verticalForces))
	return s
}

func (s *HoverClimb) initializeConditions(*Segment) error {
	alt0, err := s.requireInherited("altitude_start", s.AltitudeStart, inheritAltitude)
	if err != nil {
		return err
	}
	s.alt0 = alt0
	switch {
	case s.ClimbRate == 0 && s.Time <= 0:
		return &ConfigError{Segment: s.Tag, Field: "time", Reason: "a hover needs a positive time"}
	case s.ClimbRate != 0 && (s.AltitudeEnd-alt0)/s.ClimbRate <= 0:
		return &ConfigError{Segment: s.Tag, Field: "climb_rate", Reason: "does not lead to the end altitude"}
	}
	c := s.State.Conditions
	c.Frames.Inertial.VelocityVector.Fill(0)
	c.Frames.Inertial.VelocityVector.FillCol(2, -s.ClimbRate)
	c.Frames.Body.InertialRotations.Fill(0)
	return nil
}

func (s *HoverClimb) duration() float64 {
	if s.ClimbRate == 0 {
		return s.Time
	}
	return (s.AltitudeEnd - s.alt0) / s.ClimbRate
}

func (s *HoverClimb) updateDifferentials(*Segment) error {
	if err := updateTime(s.Segment, s.duration()); err != nil {
		return err
	}
	updatePosition(s.Segment, s.alt0)
	return nil
}
