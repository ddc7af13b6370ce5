package amp

import (
	"math"
)

// AerodynamicModel fills the aerodynamic coefficients and the wind-frame force of every
// control point.
type AerodynamicModel interface {
	Evaluate(c *Conditions, v *Vehicle) error
}

// DragPolar is a linear lift curve with a parabolic drag polar. When MaxLiftCoefficient is
// positive the lift saturates smoothly toward it.
type DragPolar struct {
	LiftSlope          float64 // per radian
	ZeroLiftAngle      float64 // rad
	ZeroLiftDrag       float64
	InducedDragFactor  float64
	MaxLiftCoefficient float64
}

// Evaluate implements AerodynamicModel.
func (d *DragPolar) Evaluate(c *Conditions, v *Vehicle) error {
	S := v.ReferenceArea
	for i := 0; i < c.Rows(); i++ {
		α := c.Aerodynamics.AngleOfAttack.At(i, 0)
		CL := d.LiftSlope * (α - d.ZeroLiftAngle)
		if d.MaxLiftCoefficient > 0 {
			CL = d.MaxLiftCoefficient * math.Tanh(CL/d.MaxLiftCoefficient)
		}
		CD := d.ZeroLiftDrag + d.InducedDragFactor*CL*CL
		q := c.Freestream.DynamicPressure.At(i, 0)
		c.Aerodynamics.LiftCoefficient.Set(i, 0, CL)
		c.Aerodynamics.DragCoefficient.Set(i, 0, CD)
		if CD != 0 {
			c.Aerodynamics.LiftToDragRatio.Set(i, 0, CL/CD)
		}
		c.Frames.Wind.ForceVector.SetRow(i, []float64{-q * S * CD, 0, -q * S * CL})
	}
	return nil
}
