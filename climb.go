package amp

import (
	"math"
)

// ClimbConstantMachConstantAngle climbs at a fixed Mach number along a fixed flight path
// angle. The altitude of every control point is an unknown: the speed follows from the
// speed of sound there, and the altitude residual ties it back to the integrated path.
type ClimbConstantMachConstantAngle struct {
	*Segment
	// AltitudeStart is nil to start where the previous segment ends.
	AltitudeStart *float64
	AltitudeEnd   float64
	// MachNumber is nil to keep the Mach number the previous segment ends with.
	MachNumber *float64
	ClimbAngle float64 // rad

	alt0, mach float64
}

// NewClimbConstantMachConstantAngle returns a climb segment with a solved throttle.
func NewClimbConstantMachConstantAngle(tag string, analyses *Analyses) *ClimbConstantMachConstantAngle {
	s := &ClimbConstantMachConstantAngle{Segment: NewSegment(tag, analyses), ClimbAngle: Deg2rad(3)}
	s.State.Unknowns.Add("body_angle", 1).Fill(Deg2rad(5))
	s.State.Unknowns.Add("altitudes", 1)
	s.State.Residuals.Add("forces", 2)
	s.State.Residuals.Add("altitude", 1)

	p := s.Process
	p.Set("initialize.conditions", StageFunc(s.initializeConditions))
	p.Set("iterate.unknowns.mission", StageFunc(s.unpackUnknowns))
	p.Set("iterate.conditions.differentials", StageFunc(s.updateDifferentials))
	p.Set("iterate.residuals.total_forces", StageFunc(s.residuals))
	return s
}

func (s *ClimbConstantMachConstantAngle) initializeConditions(*Segment) error {
	alt0, err := s.requireInherited("altitude_start", s.AltitudeStart, inheritAltitude)
	if err != nil {
		return err
	}
	mach, err := s.requireInherited("mach_number", s.MachNumber, func(c *Conditions) float64 {
		return c.Freestream.MachNumber.Last()[0]
	})
	if err != nil {
		return err
	}
	if mach <= 0 {
		return &ConfigError{Segment: s.Tag, Field: "mach_number", Reason: "must be positive"}
	}
	if math.Sin(s.ClimbAngle) == 0 || (s.AltitudeEnd-alt0)*math.Sin(s.ClimbAngle) <= 0 {
		return &ConfigError{Segment: s.Tag, Field: "climb_angle", Reason: "does not lead to the end altitude"}
	}
	s.alt0, s.mach = alt0, mach
	// The altitudes start on a straight line between the end points.
	alts := s.State.Unknowns.Array("altitudes")
	for i, τ := range s.State.Numerics.Dimensionless.ControlPoints {
		alts.Set(i, 0, alt0+τ*(s.AltitudeEnd-alt0))
	}
	return nil
}

func (s *ClimbConstantMachConstantAngle) unpackUnknowns(*Segment) error {
	unpackBodyAngle(s.Segment)
	c := s.State.Conditions
	alts := s.State.Unknowns.Array("altitudes")
	v := c.Frames.Inertial.VelocityVector
	sγ, cγ := math.Sincos(s.ClimbAngle)
	for i := 0; i < v.Rows; i++ {
		atm, err := s.Analyses.Atmosphere.Compute(alts.At(i, 0))
		if err != nil {
			return err
		}
		V := s.mach * atm.SpeedOfSound
		v.SetRow(i, []float64{V * cγ, 0, -V * sγ})
	}
	return nil
}

// updateDifferentials sets the duration that reaches the end altitude at the current
// climb rates, then integrates the path.
func (s *ClimbConstantMachConstantAngle) updateDifferentials(*Segment) error {
	in := s.State.Conditions.Frames.Inertial
	up := in.VelocityVector.Col(2)
	for i := range up {
		up[i] = -up[i]
	}
	I := s.State.Numerics.Dimensionless.Integrate
	dt := (s.AltitudeEnd - s.alt0) / applyOperator(I, up)[len(up)-1]
	if !(dt > 0) || math.IsInf(dt, 0) {
		return &ConfigError{Segment: s.Tag, Field: "climb_angle", Reason: "the climb rate does not reach the end altitude"}
	}
	if err := updateTime(s.Segment, dt); err != nil {
		return err
	}
	updatePosition(s.Segment, s.alt0)
	return nil
}

func (s *ClimbConstantMachConstantAngle) residuals(*Segment) error {
	if err := climbDescentForces(s.Segment); err != nil {
		return err
	}
	alts := s.State.Unknowns.Array("altitudes")
	out := s.State.Conditions.Freestream.Altitude
	scale := math.Max(math.Abs(out.Last()[0]), 1)
	r := s.State.Residuals.Array("altitude")
	for i := 0; i < r.Rows; i++ {
		r.Set(i, 0, (alts.At(i, 0)-out.At(i, 0))/scale)
	}
	return nil
}
