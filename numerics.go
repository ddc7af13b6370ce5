package amp

import (
	"github.com/ssankalp26/amp/tools"
	"gonum.org/v1/gonum/mat"
)

// Operators holds a set of control points with their differentiation and integration
// matrices.
type Operators struct {
	ControlPoints []float64
	Differentiate *mat.Dense
	Integrate     *mat.Dense
}

// Numerics is the discretization of a segment.
type Numerics struct {
	NumberOfControlPoints int
	Dimensionless         Operators // on [0, 1]
	Time                  Operators // scaled by the segment duration
	Duration              float64
}

// NewNumerics returns the discretization for n control points.
func NewNumerics(n int) *Numerics {
	return &Numerics{NumberOfControlPoints: n}
}

// Build computes the dimensionless Chebyshev operators.
func (n *Numerics) Build() error {
	pts, D, I, err := tools.Chebyshev(n.NumberOfControlPoints)
	if err != nil {
		return &ConfigError{Field: "numerics.number_of_control_points", Reason: err.Error()}
	}
	n.Dimensionless = Operators{ControlPoints: pts, Differentiate: D, Integrate: I}
	return n.ScaleTime(1)
}

// ScaleTime builds the time operators for a segment lasting dt seconds.
func (n *Numerics) ScaleTime(dt float64) error {
	if n.Dimensionless.Differentiate == nil {
		return configErrorf("numerics", "operators used before initialization")
	}
	var D, I mat.Dense
	I.Scale(dt, n.Dimensionless.Integrate)
	if dt != 0 {
		D.Scale(1/dt, n.Dimensionless.Differentiate)
	} else {
		D.Scale(0, n.Dimensionless.Differentiate)
	}
	pts := make([]float64, len(n.Dimensionless.ControlPoints))
	for i, τ := range n.Dimensionless.ControlPoints {
		pts[i] = τ * dt
	}
	n.Time = Operators{ControlPoints: pts, Differentiate: &D, Integrate: &I}
	n.Duration = dt
	return nil
}
