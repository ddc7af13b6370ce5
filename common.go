package amp

import (
	"math"

	"github.com/go-kit/log/level"
)

func expandState(seg *Segment) error {
	n := seg.State.Numerics.NumberOfControlPoints
	if n < 1 {
		return configErrorf("numerics.number_of_control_points", "must be positive, got %d", n)
	}
	seg.State.Conditions.ExpandRows(n)
	seg.State.Unknowns.BroadcastRows(n)
	seg.State.Residuals.ExpandRows(n)
	return nil
}

func initializeDifferentials(seg *Segment) error {
	return seg.State.Numerics.Build()
}

func converge(seg *Segment) error {
	conv, err := seg.Solver.Solve(seg)
	seg.Convergence = conv
	level.Info(seg.logger).Log("subsys", "solver", "segment", seg.Tag, "converged", conv.Converged,
		"iterations", conv.Iterations, "evaluations", conv.Evaluations, "residual", conv.Residual)
	return err
}

// updateTime lays the control points over dt seconds from the first row's time and scales
// the time operators.
func updateTime(seg *Segment, dt float64) error {
	if err := seg.State.Numerics.ScaleTime(dt); err != nil {
		return err
	}
	t := seg.State.Conditions.Frames.Inertial.Time
	t0 := t.At(0, 0)
	for i, τ := range seg.State.Numerics.Time.ControlPoints {
		t.Set(i, 0, t0+τ)
	}
	return nil
}

// ---- initials ----

func initialTime(seg *Segment) error {
	if in := seg.State.Initials; in != nil {
		seg.State.Conditions.Frames.Inertial.Time.Set(0, 0, in.Frames.Inertial.Time.Last()[0])
	}
	return nil
}

func initialWeights(seg *Segment) error {
	m0 := seg.Analyses.Vehicle.TakeoffMass
	if in := seg.State.Initials; in != nil {
		m0 = in.Weights.TotalMass.Last()[0]
	}
	if m0 <= 0 {
		return configErrorf("vehicle.takeoff_mass", "must be positive, got %g", m0)
	}
	seg.State.Conditions.Weights.TotalMass.Set(0, 0, m0)
	return nil
}

func initialPosition(seg *Segment) error {
	in := seg.State.Initials
	if in == nil {
		return nil
	}
	r := seg.State.Conditions.Frames.Inertial.PositionVector
	last := in.Frames.Inertial.PositionVector.Last()
	r.Set(0, 0, last[0])
	r.Set(0, 1, last[1])
	seg.State.Conditions.Frames.Inertial.AircraftRange.Set(0, 0, in.Frames.Inertial.AircraftRange.Last()[0])
	return nil
}

func initialEnergy(seg *Segment) error {
	if seg.Analyses.Energy == nil {
		return nil
	}
	return seg.Analyses.Energy.InitializeEnergy(seg)
}

// ---- conditions ----

// updateAcceleration differentiates the inertial velocity.
func updateAcceleration(seg *Segment) error {
	c := seg.State.Conditions.Frames.Inertial
	for j := 0; j < 3; j++ {
		c.AccelerationVector.SetCol(j, seg.State.differentiate(c.VelocityVector.Col(j)))
	}
	return nil
}

func updateAltitude(seg *Segment) error {
	c := seg.State.Conditions
	for i := 0; i < c.Rows(); i++ {
		c.Freestream.Altitude.Set(i, 0, -c.Frames.Inertial.PositionVector.At(i, 2))
	}
	return nil
}

func updateAtmosphere(seg *Segment) error {
	return setAtmosphere(seg.Analyses.Atmosphere, seg.State.Conditions.Freestream)
}

func setAtmosphere(atm Atmosphere, fs *Freestream) error {
	for i := 0; i < fs.Altitude.Rows; i++ {
		p, err := atm.Compute(fs.Altitude.At(i, 0))
		if err != nil {
			return err
		}
		fs.Pressure.Set(i, 0, p.Pressure)
		fs.Temperature.Set(i, 0, p.Temperature)
		fs.Density.Set(i, 0, p.Density)
		fs.SpeedOfSound.Set(i, 0, p.SpeedOfSound)
		fs.DynamicViscosity.Set(i, 0, p.DynamicViscosity)
		fs.IsentropicExpansionFactor.Set(i, 0, p.Gamma)
		fs.SpecificHeatAtConstantPressure.Set(i, 0, p.Cp)
		fs.GasSpecificConstant.Set(i, 0, p.GasConstant)
	}
	return nil
}

func updateGravity(seg *Segment) error {
	fs := seg.State.Conditions.Freestream
	for i := 0; i < fs.Altitude.Rows; i++ {
		fs.Gravity.Set(i, 0, seg.Analyses.Planet.Gravity(fs.Altitude.At(i, 0)))
	}
	return nil
}

func updateFreestream(seg *Segment) error {
	c := seg.State.Conditions
	fs := c.Freestream
	for i := 0; i < c.Rows(); i++ {
		V := norm(c.Frames.Inertial.VelocityVector.Row(i))
		ρ := fs.Density.At(i, 0)
		fs.Velocity.Set(i, 0, V)
		fs.MachNumber.Set(i, 0, V/fs.SpeedOfSound.At(i, 0))
		fs.DynamicPressure.Set(i, 0, 0.5*ρ*V*V)
		fs.ReynoldsNumber.Set(i, 0, ρ*V/fs.DynamicViscosity.At(i, 0))
	}
	return nil
}

func updateOrientations(seg *Segment) error {
	orientations(seg.State.Conditions)
	return nil
}

func updateEnergy(seg *Segment) error {
	if seg.Analyses.Energy == nil {
		return nil
	}
	return seg.Analyses.Energy.Evaluate(seg)
}

func updateAerodynamics(seg *Segment) error {
	if seg.Analyses.Aerodynamics == nil {
		return nil
	}
	return seg.Analyses.Aerodynamics.Evaluate(seg.State.Conditions, seg.Analyses.Vehicle)
}

// updateWeights integrates the vehicle mass rate from the first control point.
func updateWeights(seg *Segment) error {
	c := seg.State.Conditions
	mdot := c.Energy.VehicleMassRate.Col(0)
	c.Weights.VehicleMassRate.SetCol(0, mdot)
	burned := seg.State.integrate(mdot)
	m0 := c.Weights.TotalMass.At(0, 0)
	for i := range burned {
		c.Weights.TotalMass.Set(i, 0, m0-burned[i])
	}
	return nil
}

// updateForces sums the aerodynamic, propulsive and gravity forces in the inertial frame.
func updateForces(seg *Segment) error {
	c := seg.State.Conditions
	in := c.Frames.Inertial
	for i := 0; i < c.Rows(); i++ {
		m := c.Weights.TotalMass.At(i, 0)
		g := c.Freestream.Gravity.At(i, 0)
		c.Frames.Body.ThrustForceVector.SetRow(i, c.Energy.ThrustForceVector.Row(i))
		aero := MxV33(transformAt(c.Frames.Wind.TransformToInertial, i), c.Frames.Wind.ForceVector.Row(i))
		thrust := MxV33(transformAt(c.Frames.Body.TransformToInertial, i), c.Frames.Body.ThrustForceVector.Row(i))
		weight := []float64{0, 0, m * g}
		in.GravityForceVector.SetRow(i, weight)
		for j := 0; j < 3; j++ {
			in.TotalForceVector.Set(i, j, aero[j]+thrust[j]+weight[j])
		}
	}
	return nil
}

// ---- residuals ----

// climbDescentForces is the force balance along inertial x and z, per unit mass.
func climbDescentForces(seg *Segment) error {
	c := seg.State.Conditions
	FT := c.Frames.Inertial.TotalForceVector
	a := c.Frames.Inertial.AccelerationVector
	r := seg.State.Residuals.Array("forces")
	for i := 0; i < c.Rows(); i++ {
		m := c.Weights.TotalMass.At(i, 0)
		r.Set(i, 0, FT.At(i, 0)/m-a.At(i, 0))
		r.Set(i, 1, FT.At(i, 2)/m-a.At(i, 2))
	}
	return nil
}

// verticalForces is the force balance along inertial z only.
func verticalForces(seg *Segment) error {
	c := seg.State.Conditions
	FT := c.Frames.Inertial.TotalForceVector
	a := c.Frames.Inertial.AccelerationVector
	r := seg.State.Residuals.Array("forces")
	for i := 0; i < c.Rows(); i++ {
		r.Set(i, 0, FT.At(i, 2)/c.Weights.TotalMass.At(i, 0)-a.At(i, 2))
	}
	return nil
}

// ---- post process ----

// updateRange integrates the ground speed into the distance flown.
func updateRange(seg *Segment) error {
	c := seg.State.Conditions
	v := c.Frames.Inertial.VelocityVector
	ground := make([]float64, c.Rows())
	for i := range ground {
		ground[i] = math.Hypot(v.At(i, 0), v.At(i, 1))
	}
	d := seg.State.integrate(ground)
	r0 := c.Frames.Inertial.AircraftRange.At(0, 0)
	for i := range d {
		c.Frames.Inertial.AircraftRange.Set(i, 0, r0+d[i])
	}
	return nil
}

func updateBatteryAge(seg *Segment) error {
	if seg.Analyses.Energy == nil {
		return nil
	}
	return seg.Analyses.Energy.UpdateBatteryAge(seg)
}

func updateEmissions(seg *Segment) error {
	if seg.Analyses.Emissions == nil {
		return nil
	}
	return seg.Analyses.Emissions.Evaluate(seg)
}

func updateNoise(seg *Segment) error {
	if seg.Analyses.Noise == nil {
		return nil
	}
	return seg.Analyses.Noise.Evaluate(seg)
}

// updatePosition integrates the inertial velocity from the first control point, placed at
// altitude alt0.
func updatePosition(seg *Segment, alt0 float64) {
	in := seg.State.Conditions.Frames.Inertial
	in.PositionVector.Set(0, 2, -alt0)
	for j := 0; j < 3; j++ {
		d := seg.State.integrate(in.VelocityVector.Col(j))
		p0 := in.PositionVector.At(0, j)
		for i := range d {
			in.PositionVector.Set(i, j, p0+d[i])
		}
	}
}

// unpackBodyAngle writes the body_angle unknown into the body pitch.
func unpackBodyAngle(seg *Segment) {
	θ := seg.State.Unknowns.Array("body_angle")
	rot := seg.State.Conditions.Frames.Body.InertialRotations
	for i := 0; i < rot.Rows; i++ {
		rot.Set(i, 1, θ.At(i, 0))
	}
}

func inheritAltitude(c *Conditions) float64 {
	return c.Freestream.Altitude.Last()[0]
}
