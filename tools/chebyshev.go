package tools

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Chebyshev returns n Chebyshev-Gauss-Lobatto points on [0, 1] in increasing order along
// with the matching differentiation matrix D and integration matrix I. I has a zero first
// row and column: (I·f)[0] is zero, so the integration constant is the value at point 0.
// Both operators are exact for polynomials of degree below n.
func Chebyshev(n int) (points []float64, D, I *mat.Dense, err error) {
	if n < 1 {
		return nil, nil, nil, errors.New("at least one control point is required")
	}
	if n == 1 {
		return []float64{0}, mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil), nil
	}
	N := n - 1
	x := make([]float64, n)
	c := make([]float64, n)
	points = make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = math.Cos(math.Pi * float64(j) / float64(N))
		points[j] = 0.5 * (1 - x[j])
		c[j] = 1
		if j == 0 || j == N {
			c[j] = 2
		}
		if j%2 == 1 {
			c[j] = -c[j]
		}
	}
	// Trefethen's construction on [-1, 1], then mapped: τ = (1-x)/2 so d/dτ = -2 d/dx.
	D = mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		var diag float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := (c[i] / c[j]) / (x[i] - x[j])
			D.Set(i, j, -2*v)
			diag += v
		}
		D.Set(i, i, 2*diag)
	}

	var inner mat.Dense
	if err = inner.Inverse(D.Slice(1, n, 1, n)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, nil, nil, err
		}
		err = nil
	}
	I = mat.NewDense(n, n, nil)
	I.Slice(1, n, 1, n).(*mat.Dense).Copy(&inner)
	return points, D, I, nil
}
