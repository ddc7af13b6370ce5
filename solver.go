package amp

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Solver is a damped Newton root finder over the unknowns of a segment. The Jacobian is
// built by forward differences of the whole iterate process.
type Solver struct {
	Tolerance       float64 // on the infinity norm of the residuals
	MaxIterations   int
	MinDamping      float64
	MaxDamping      float64
	Step            float64 // finite difference step
	MaxOscillations int     // consecutive damped steps before giving up
}

// Convergence is the outcome of a solve.
type Convergence struct {
	Converged   bool
	Iterations  int
	Evaluations int
	Residual    float64
}

// DefaultSolver returns the solver settings of the configuration.
func DefaultSolver() Solver {
	conf := ampConfig()
	return Solver{
		Tolerance:       conf.Tolerance,
		MaxIterations:   conf.MaxIterations,
		MinDamping:      conf.MinDamping,
		MaxDamping:      1,
		Step:            conf.Step,
		MaxOscillations: 25,
	}
}

// Solve drives the residuals of seg to zero. A segment without unknowns is evaluated once.
// Reaching the iteration cap returns a *ConvergenceError; the segment is left at the last
// accepted unknowns.
func (s Solver) Solve(seg *Segment) (conv Convergence, err error) {
	st := seg.State
	x := st.Unknowns.Pack(nil)
	n := len(x)
	if m := st.Residuals.Size(); m != n {
		return conv, &ConfigError{Segment: seg.Tag, Field: "unknowns", Reason: fmt.Sprintf("%d unknowns for %d residuals", n, m)}
	}

	var evalErr error
	residual := func(dst, x []float64) {
		if evalErr != nil {
			return
		}
		conv.Evaluations++
		if evalErr = st.Unknowns.Unpack(x); evalErr != nil {
			return
		}
		if evalErr = seg.Iterate(); evalErr != nil {
			return
		}
		st.Residuals.Pack(dst[:0])
	}
	fail := func(cause error) error {
		return &ConvergenceError{Segment: seg.Tag, Iterations: conv.Iterations, Residual: conv.Residual, Err: cause}
	}

	r := make([]float64, n)
	residual(r, x)
	if evalErr != nil {
		return conv, evalErr
	}
	conv.Residual = infNorm(r)
	if n == 0 {
		conv.Converged = true
		return conv, nil
	}

	J := mat.NewDense(n, n, nil)
	var dx mat.VecDense
	xt := make([]float64, n)
	rt := make([]float64, n)
	damping := s.MaxDamping
	oscillations := 0
	settings := &fd.JacobianSettings{Formula: fd.Forward, OriginValue: r, Step: s.Step}
	for ; conv.Iterations < s.MaxIterations; conv.Iterations++ {
		if conv.Residual < s.Tolerance {
			conv.Converged = true
			return conv, nil
		}
		fd.Jacobian(J, residual, x, settings)
		if evalErr != nil {
			return conv, evalErr
		}
		if err := dx.SolveVec(J, mat.NewVecDense(n, r)); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return conv, fail(ErrSingularJacobian)
			}
		}

		// Backtrack until the residual decreases.
		λ := damping
		before := floats.Norm(r, 2)
		for {
			for i := range x {
				xt[i] = x[i] - λ*dx.AtVec(i)
			}
			residual(rt, xt)
			if evalErr != nil {
				return conv, evalErr
			}
			after := floats.Norm(rt, 2)
			if after < before {
				break
			}
			if λ <= s.MinDamping {
				if math.IsNaN(after) || math.IsInf(after, 0) {
					return conv, fail(errors.New("residuals are not finite"))
				}
				break
			}
			λ *= 0.5
		}
		if λ < damping {
			oscillations++
			damping = math.Max(s.MinDamping, λ)
		} else {
			oscillations = 0
			damping = math.Min(s.MaxDamping, damping*1.2)
		}
		copy(x, xt)
		copy(r, rt)
		conv.Residual = infNorm(r)
		level.Debug(seg.logger).Log("subsys", "solver", "segment", seg.Tag, "iteration", conv.Iterations, "residual", conv.Residual, "damping", λ)
		if oscillations > s.MaxOscillations {
			conv.Iterations++
			return conv, fail(fmt.Errorf("oscillating after %d damped steps", oscillations))
		}
	}
	if conv.Residual < s.Tolerance {
		conv.Converged = true
		return conv, nil
	}
	return conv, fail(nil)
}

func infNorm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, math.Inf(1))
}
