package tools

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestChebyshevPoints(t *testing.T) {
	pts, _, _, err := Chebyshev(5)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	exp := []float64{0, 0.14644660940672627, 0.5, 0.8535533905932737, 1}
	if !floats.EqualApprox(pts, exp, 1e-12) {
		t.Fatalf("points %v, expected %v", pts, exp)
	}
}

func TestChebyshevOperators(t *testing.T) {
	for _, n := range []int{3, 4, 8, 16} {
		τ, D, I, err := Chebyshev(n)
		if err != nil {
			t.Fatalf("[n=%d] err %s", n, err)
		}
		sq := make([]float64, n)
		twice := make([]float64, n)
		for i, v := range τ {
			sq[i] = v * v
			twice[i] = 2 * v
		}
		var d, in mat.VecDense
		d.MulVec(D, mat.NewVecDense(n, sq))
		if !floats.EqualApprox(d.RawVector().Data, twice, 1e-9) {
			t.Fatalf("[n=%d] D·τ² = %v", n, d.RawVector().Data)
		}
		in.MulVec(I, mat.NewVecDense(n, twice))
		if !floats.EqualApprox(in.RawVector().Data, sq, 1e-9) {
			t.Fatalf("[n=%d] I·2τ = %v", n, in.RawVector().Data)
		}
	}
}

func TestChebyshevSinglePoint(t *testing.T) {
	τ, D, I, err := Chebyshev(1)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	if len(τ) != 1 || D.At(0, 0) != 0 || I.At(0, 0) != 0 {
		t.Fatal("single point operators should be zero")
	}
	if _, _, _, err := Chebyshev(0); err == nil {
		t.Fatal("zero points should fail")
	}
}
