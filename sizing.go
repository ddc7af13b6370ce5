package amp

import (
	"fmt"
	"math"
)

// maximumSizingIterations bounds the core sizing loop of an engine with accessories,
// whose specific thrust depends on the core flow.
const maximumSizingIterations = 50

// designPoint is a one row freestream at altitude and Mach on the standard atmosphere, and
// a propulsor record at full throttle.
func designPoint(p Propulsor, altitude, mach float64) (*Record, *Conditions, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	c := NewConditions(1)
	fs := c.Freestream
	fs.Altitude.Set(0, 0, altitude)
	if err := setAtmosphere(&US1976{}, fs); err != nil {
		return nil, nil, err
	}
	V := mach * fs.SpeedOfSound.At(0, 0)
	fs.Velocity.Set(0, 0, V)
	fs.MachNumber.Set(0, 0, mach)
	fs.DynamicPressure.Set(0, 0, 0.5*fs.Density.At(0, 0)*V*V)
	r := NewRecord(p.Tag(), 1)
	p.AppendConditions(r)
	r.Array("throttle").Fill(1)
	return r, c, nil
}

// sizeCore scales *design until the propulsor delivers thrust N at the design point.
func sizeCore(p Propulsor, design *float64, thrust, altitude, mach float64) error {
	if thrust <= 0 || mach < 0 {
		return configErrorf(p.Tag(), "design thrust must be positive and Mach non-negative")
	}
	if *design <= 0 {
		*design = 1
	}
	r, c, err := designPoint(p, altitude, mach)
	if err != nil {
		return err
	}
	for it := 0; it < maximumSizingIterations; it++ {
		if err := p.ComputePerformance(r, c); err != nil {
			return err
		}
		T := r.Array("thrust").At(0, 0)
		if T <= 0 {
			return fmt.Errorf("%s: no thrust at the design point", p.Tag())
		}
		prev := *design
		*design *= thrust / T
		if math.Abs(*design-prev) <= 1e-12*prev {
			return nil
		}
	}
	return fmt.Errorf("%s: core sizing did not converge in %d iterations", p.Tag(), maximumSizingIterations)
}

// SizeCore sets the design core mass flow so that the engine delivers designThrust, N, at
// full throttle at altitude, m, and Mach on the standard atmosphere. The design flow is
// referred to the reference state.
func (p *Turbojet) SizeCore(designThrust, altitude, mach float64) error {
	return sizeCore(p, &p.DesignMassFlowRate, designThrust, altitude, mach)
}

// SizeCore sets the design core mass flow so that the propeller and core together deliver
// designThrust, N, at full throttle at altitude, m, and Mach.
func (p *Turboprop) SizeCore(designThrust, altitude, mach float64) error {
	return sizeCore(p, &p.DesignMassFlowRate, designThrust, altitude, mach)
}
