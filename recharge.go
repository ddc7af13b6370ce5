package amp

import "math"

// overchargeContingency stretches the time to a full charge.
const overchargeContingency = 1.10

// BatteryRecharge charges every battery on the ground at a constant current. Nothing is
// solved; the segment is evaluated once.
type BatteryRecharge struct {
	*Segment
	// Altitude is nil to charge at the altitude the previous segment ends at.
	Altitude *float64
	Current  float64 // A
	// Time is the charging time. Zero charges to full with a 10% overcharge contingency.
	Time float64 // s

	alt float64
}

// NewBatteryRecharge returns a ground recharge segment.
func NewBatteryRecharge(tag string, analyses *Analyses) *BatteryRecharge {
	s := &BatteryRecharge{Segment: NewSegment(tag, analyses)}
	s.Controls.Recharging = true
	s.Controls.Throttle = Fixed(0)

	p := s.Process
	p.Set("initialize.conditions", StageFunc(s.initializeConditions))
	p.Set("iterate.conditions.differentials", StageFunc(s.updateDifferentials))
	p.Set("iterate.conditions.aerodynamics", Skip)
	p.Set("post_process.noise", Skip)
	return s
}

func (s *BatteryRecharge) initializeConditions(*Segment) error {
	alt, err := s.requireInherited("altitude", s.Altitude, inheritAltitude)
	if err != nil {
		return err
	}
	if s.Current <= 0 {
		return &ConfigError{Segment: s.Tag, Field: "current", Reason: "must be positive"}
	}
	s.alt = alt
	s.Controls.ChargeCurrent = s.Current
	c := s.State.Conditions
	c.Frames.Inertial.VelocityVector.Fill(0)
	c.Frames.Wind.ForceVector.Fill(0)
	return nil
}

// timeToFull is the longest time any battery needs to be full at the charge current.
func (s *BatteryRecharge) timeToFull() float64 {
	t := 0.
	if s.Analyses.Energy == nil {
		return t
	}
	for _, d := range s.Analyses.Energy.Distributors {
		b, ok := d.(*Bus)
		if !ok || b.Inactive {
			continue
		}
		r := s.State.Conditions.Energy.Child(b.Name).Child(b.Battery.Tag())
		Emax := b.Battery.MaximumEnergy() * r.Array("capacity_fade_factor").At(0, 0)
		missing := Emax - r.Array("energy").At(0, 0)
		t = math.Max(t, missing/(b.Battery.MaximumVoltage()*s.Current))
	}
	return t
}

func (s *BatteryRecharge) updateDifferentials(*Segment) error {
	dt := s.Time
	if dt <= 0 {
		dt = overchargeContingency * s.timeToFull()
	}
	if dt <= 0 {
		return &ConfigError{Segment: s.Tag, Field: "time", Reason: "nothing to charge"}
	}
	if err := updateTime(s.Segment, dt); err != nil {
		return err
	}
	updatePosition(s.Segment, s.alt)
	return nil
}
