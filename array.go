package amp

import (
	"fmt"

	"github.com/brunoga/deep"
	"gonum.org/v1/gonum/mat"
)

// Array is a control-point indexed block of values: one row per control point, Cols
// components per row, stored row-major.
type Array struct {
	Rows int       `msgpack:"rows"`
	Cols int       `msgpack:"cols"`
	Data []float64 `msgpack:"data"`
}

// NewArray returns a zeroed rows x cols array.
func NewArray(rows, cols int) *Array {
	return &Array{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the element (i, j).
func (a *Array) At(i, j int) float64 {
	return a.Data[i*a.Cols+j]
}

// Set sets the element (i, j).
func (a *Array) Set(i, j int, v float64) {
	a.Data[i*a.Cols+j] = v
}

// Row returns row i, sharing storage.
func (a *Array) Row(i int) []float64 {
	return a.Data[i*a.Cols : (i+1)*a.Cols]
}

// SetRow copies v into row i.
func (a *Array) SetRow(i int, v []float64) {
	copy(a.Row(i), v)
}

// Col returns a copy of column j.
func (a *Array) Col(j int) []float64 {
	c := make([]float64, a.Rows)
	for i := range c {
		c[i] = a.Data[i*a.Cols+j]
	}
	return c
}

// SetCol copies v into column j.
func (a *Array) SetCol(j int, v []float64) {
	for i := 0; i < a.Rows; i++ {
		a.Data[i*a.Cols+j] = v[i]
	}
}

// Fill sets every element to v.
func (a *Array) Fill(v float64) {
	for i := range a.Data {
		a.Data[i] = v
	}
}

// FillCol sets every element of column j to v.
func (a *Array) FillCol(j int, v float64) {
	for i := 0; i < a.Rows; i++ {
		a.Data[i*a.Cols+j] = v
	}
}

// Last returns the last row.
func (a *Array) Last() []float64 {
	return a.Row(a.Rows - 1)
}

// CopyFrom copies the values of b, which must have the same shape.
func (a *Array) CopyFrom(b *Array) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		panic(configErrorf("array", "shape mismatch %dx%d vs %dx%d", a.Rows, a.Cols, b.Rows, b.Cols))
	}
	copy(a.Data, b.Data)
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return deep.MustCopy(a)
}

// Dense returns a matrix view sharing the array storage.
func (a *Array) Dense() *mat.Dense {
	return mat.NewDense(a.Rows, a.Cols, a.Data)
}

// ExpandRows resizes the array to n rows in place, zero-filling new rows. It is a no-op
// when the array already has n rows.
func (a *Array) ExpandRows(n int) {
	if n == a.Rows {
		return
	}
	data := make([]float64, n*a.Cols)
	copy(data, a.Data)
	a.Data = data
	a.Rows = n
}

// BroadcastRows resizes the array to n rows in place, filling every row with row 0.
func (a *Array) BroadcastRows(n int) {
	first := make([]float64, a.Cols)
	if a.Rows > 0 {
		copy(first, a.Row(0))
	}
	a.Data = make([]float64, n*a.Cols)
	a.Rows = n
	for i := 0; i < n; i++ {
		copy(a.Row(i), first)
	}
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(%dx%d)%v", a.Rows, a.Cols, a.Data)
}

// applyOperator returns op · v.
func applyOperator(op *mat.Dense, v []float64) []float64 {
	var out mat.VecDense
	out.MulVec(op, mat.NewVecDense(len(v), v))
	return out.RawVector().Data
}
