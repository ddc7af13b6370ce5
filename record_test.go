package amp

import (
	"errors"
	"testing"
)

func TestArrayColumnsAndRows(t *testing.T) {
	a := NewArray(3, 2)
	a.SetCol(1, []float64{1, 2, 3})
	col := a.Col(1)
	col[0] = 42
	if a.At(0, 1) != 1 {
		t.Fatal("Col must return a copy")
	}
	a.Row(2)[0] = 7
	if a.At(2, 0) != 7 {
		t.Fatal("Row must share storage")
	}
	if !vectorsEqual(a.Last(), []float64{7, 3}) {
		t.Fatalf("invalid last row: %v", a.Last())
	}
	b := a.Clone()
	b.Set(0, 0, -1)
	if a.At(0, 0) == -1 {
		t.Fatal("Clone must not alias")
	}
	assertPanic(t, func() {
		NewArray(2, 2).CopyFrom(a)
	})
}

func TestArrayExpandAndBroadcast(t *testing.T) {
	a := NewArray(1, 3)
	a.SetRow(0, []float64{1, 2, 3})
	e := a.Clone()
	e.ExpandRows(4)
	if e.Rows != 4 || !vectorsEqual(e.Row(0), []float64{1, 2, 3}) || !vectorsEqual(e.Row(3), []float64{0, 0, 0}) {
		t.Fatalf("expand fail: %s", e)
	}
	a.BroadcastRows(4)
	for i := 0; i < 4; i++ {
		if !vectorsEqual(a.Row(i), []float64{1, 2, 3}) {
			t.Fatalf("broadcast fail on row %d: %v", i, a.Row(i))
		}
	}
}

func TestRecordWalkOrder(t *testing.T) {
	r := NewRecord("root", 2)
	r.Add("b", 1)
	r.Add("a", 2)
	child, err := r.AddChild("child")
	if err != nil {
		t.Fatal(err)
	}
	child.Add("z", 1)
	r.Add("c", 1) // arrays of a record come before its children
	var paths []string
	r.Walk(func(path string, _ *Array) { paths = append(paths, path) })
	exp := []string{"b", "a", "c", "child.z"}
	if len(paths) != len(exp) {
		t.Fatalf("walked %v", paths)
	}
	for i := range exp {
		if paths[i] != exp[i] {
			t.Fatalf("walk order %v, expected %v", paths, exp)
		}
	}
	if r.Size() != 2*(1+2+1+1) {
		t.Fatalf("size %d", r.Size())
	}
}

func TestRecordPackUnpack(t *testing.T) {
	r := NewRecord("unknowns", 2)
	r.Add("body_angle", 1).SetCol(0, []float64{0.1, 0.2})
	r.Add("forces", 2).SetRow(1, []float64{3, 4})
	x := r.Pack(nil)
	if !vectorsEqual(x, []float64{0.1, 0.2, 0, 0, 3, 4}) {
		t.Fatalf("pack %v", x)
	}
	x[0] = -1
	if err := r.Unpack(x); err != nil {
		t.Fatal(err)
	}
	if r.Array("body_angle").At(0, 0) != -1 {
		t.Fatal("unpack did not write the values back")
	}
	err := r.Unpack(x[:3])
	if err == nil || !errors.Is(err, ErrConfig) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestRecordErrors(t *testing.T) {
	r := NewRecord("energy", 1)
	if _, err := r.AddChild("bus"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddChild("bus"); !errors.Is(err, ErrConfig) {
		t.Fatalf("duplicate child: %v", err)
	}
	r.Add("power", 1)
	assertPanic(t, func() { r.Add("power", 3) })
	assertPanic(t, func() { r.Array("missing") })
	assertPanic(t, func() { r.Child("missing") })
}

func TestRecordOverwriteCopiesValues(t *testing.T) {
	src := NewRecord("src", 2)
	src.Add("thrust", 1).SetCol(0, []float64{10, 20})
	src.EnsureChild("motor").Add("omega", 1).Fill(300)
	dst := NewRecord("dst", 2)
	dst.Overwrite(src)
	if !vectorsEqual(dst.Array("thrust").Col(0), []float64{10, 20}) {
		t.Fatal("overwrite did not copy thrust")
	}
	if dst.Child("motor").Array("omega").At(1, 0) != 300 {
		t.Fatal("overwrite did not copy sub-records")
	}
	src.Array("thrust").Set(0, 0, -5)
	if dst.Array("thrust").At(0, 0) != 10 {
		t.Fatal("overwrite must not alias")
	}
}

func TestRecordLastRowAndCopy(t *testing.T) {
	r := NewRecord("r", 3)
	r.Add("v", 2).SetRow(2, []float64{5, 6})
	r.EnsureChild("c").Add("w", 1).SetCol(0, []float64{1, 2, 3})
	last := r.LastRow()
	if last.Rows() != 1 || !vectorsEqual(last.Array("v").Row(0), []float64{5, 6}) {
		t.Fatalf("last row %v", last.Array("v"))
	}
	if last.Child("c").Array("w").At(0, 0) != 3 {
		t.Fatal("last row of sub-record")
	}
	cp := r.Copy()
	cp.Array("v").Set(2, 0, 0)
	if r.Array("v").At(2, 0) != 5 {
		t.Fatal("Copy must be deep")
	}
}

func TestConditionsExpandRows(t *testing.T) {
	c := NewConditions(1)
	c.Freestream.Altitude.Set(0, 0, 1000)
	c.Energy.EnsureChild("bus").Add("current", 1).Set(0, 0, 12)
	c.ExpandRows(4)
	if c.Rows() != 4 || c.Freestream.Altitude.Rows != 4 {
		t.Fatal("conditions not expanded")
	}
	if c.Freestream.Altitude.At(0, 0) != 1000 || c.Freestream.Altitude.At(3, 0) != 0 {
		t.Fatal("expand must keep row 0 and zero-fill the rest")
	}
	if c.Energy.Child("bus").Array("current").Rows != 4 {
		t.Fatal("sub-records must be expanded too")
	}
	// Idempotent.
	c.Freestream.Altitude.Set(3, 0, 2)
	c.ExpandRows(4)
	if c.Freestream.Altitude.At(3, 0) != 2 {
		t.Fatal("expanding to the same size must be a no-op")
	}

	c.Frames.Inertial.Time.SetCol(0, []float64{0, 1, 2, 3})
	last := c.LastRow()
	if last.Rows() != 1 || last.Frames.Inertial.Time.At(0, 0) != 3 {
		t.Fatal("last row of the conditions")
	}
	if last.Energy.Child("bus").Array("current").Rows != 1 {
		t.Fatal("last row must keep the energy sub-records")
	}
}
