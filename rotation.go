package amp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R2 rotation about the 2nd axis.
func R2(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, 0, -s, 0, 1, 0, s, 0, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v []float64) (o []float64) {
	vVec := mat.NewVecDense(len(v), v)
	var rVec mat.VecDense
	rVec.MulVec(m, vVec)
	return []float64{rVec.AtVec(0), rVec.AtVec(1), rVec.AtVec(2)}
}

// R3R2R1 is the 3-2-1 (yaw, pitch, roll) rotation taking inertial components into a
// frame rotated by (φ, θ, ψ). Inertial axes are x forward, y right, z down.
func R3R2R1(φ, θ, ψ float64) *mat.Dense {
	var tmp, rot mat.Dense
	tmp.Mul(R2(θ), R3(ψ))
	rot.Mul(R1(φ), &tmp)
	return &rot
}

// ToInertial returns the transform taking components in a frame rotated by (φ, θ, ψ)
// back into the inertial frame.
func ToInertial(φ, θ, ψ float64) *mat.Dense {
	var t mat.Dense
	t.CloneFrom(R3R2R1(φ, θ, ψ).T())
	return &t
}

// storeTransform writes a 3x3 transform into row i of a 9-column array.
func storeTransform(a *Array, i int, m *mat.Dense) {
	row := a.Row(i)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			row[3*r+c] = m.At(r, c)
		}
	}
}

// transformAt reads the 3x3 transform stored in row i of a 9-column array.
func transformAt(a *Array, i int) *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), a.Row(i)...))
}

// orientations computes the body and wind frames of every control point. The body pitch
// comes from the inertial rotations (usually an unknown), the wind frame from the
// inertial velocity. Angle of attack is the body pitch above the flight path.
func orientations(c *Conditions) {
	v := c.Frames.Inertial.VelocityVector
	rot := c.Frames.Body.InertialRotations
	for i := 0; i < v.Rows; i++ {
		vx, vy, vz := v.At(i, 0), v.At(i, 1), v.At(i, 2)
		horizontal := math.Hypot(vx, vy)
		ψ := 0.
		if horizontal > 1e-9 {
			ψ = math.Atan2(vy, vx)
		}
		γ := math.Atan2(-vz, horizontal)
		φ, θ := rot.At(i, 0), rot.At(i, 1)
		rot.Set(i, 2, ψ)

		storeTransform(c.Frames.Body.TransformToInertial, i, ToInertial(φ, θ, ψ))
		storeTransform(c.Frames.Wind.TransformToInertial, i, ToInertial(0, γ, ψ))

		α := θ - γ
		c.Frames.Wind.BodyRotations.Set(i, 0, φ)
		c.Frames.Wind.BodyRotations.Set(i, 1, α)
		c.Aerodynamics.AngleOfAttack.Set(i, 0, α)
	}
}
