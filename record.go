package amp

import (
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// Record is a tagged node of the condition tree: named arrays plus named sub-records,
// both kept in insertion order. Every array of a record has the same number of rows.
type Record struct {
	Tag      string
	rows     int
	arrays   *orderedmap.OrderedMap // name -> *Array
	children *orderedmap.OrderedMap // tag -> *Record
}

// NewRecord returns an empty record whose arrays will have rows rows.
func NewRecord(tag string, rows int) *Record {
	return &Record{Tag: tag, rows: rows, arrays: orderedmap.New(), children: orderedmap.New()}
}

// Rows returns the number of control points.
func (r *Record) Rows() int {
	return r.rows
}

// Add creates a zeroed array of width cols. Adding an existing name returns the existing
// array, which must have the same width.
func (r *Record) Add(name string, cols int) *Array {
	if a, ok := r.Lookup(name); ok {
		if a.Cols != cols {
			panic(configErrorf(r.Tag+"."+name, "redeclared with %d columns, has %d", cols, a.Cols))
		}
		return a
	}
	a := NewArray(r.rows, cols)
	r.arrays.Set(name, a)
	return a
}

// Put stores a, resized to the record's rows.
func (r *Record) Put(name string, a *Array) {
	a.ExpandRows(r.rows)
	r.arrays.Set(name, a)
}

// Lookup returns the named array.
func (r *Record) Lookup(name string) (*Array, bool) {
	v, ok := r.arrays.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Array), true
}

// Array returns the named array and panics with a *ConfigError when it does not exist.
func (r *Record) Array(name string) *Array {
	a, ok := r.Lookup(name)
	if !ok {
		panic(configErrorf(r.Tag+"."+name, "no such array"))
	}
	return a
}

// Names returns the array names in order.
func (r *Record) Names() []string {
	return r.arrays.Keys()
}

// AddChild creates a sub-record. Tags are unique within a record.
func (r *Record) AddChild(tag string) (*Record, error) {
	if _, exists := r.children.Get(tag); exists {
		return nil, configErrorf(r.Tag+"."+tag, "duplicate tag")
	}
	c := NewRecord(tag, r.rows)
	r.children.Set(tag, c)
	return c, nil
}

// EnsureChild returns the sub-record with that tag, creating it if needed.
func (r *Record) EnsureChild(tag string) *Record {
	if c, ok := r.LookupChild(tag); ok {
		return c
	}
	c, _ := r.AddChild(tag)
	return c
}

// LookupChild returns the sub-record with that tag.
func (r *Record) LookupChild(tag string) (*Record, bool) {
	v, ok := r.children.Get(tag)
	if !ok {
		return nil, false
	}
	return v.(*Record), true
}

// Child returns the sub-record with that tag and panics with a *ConfigError when it does
// not exist.
func (r *Record) Child(tag string) *Record {
	c, ok := r.LookupChild(tag)
	if !ok {
		panic(configErrorf(r.Tag+"."+tag, "no such record"))
	}
	return c
}

// Children returns the sub-record tags in order.
func (r *Record) Children() []string {
	return r.children.Keys()
}

// ExpandRows resizes every array of the tree to n rows, zero-filling new rows.
func (r *Record) ExpandRows(n int) {
	r.rows = n
	r.each(func(a *Array) { a.ExpandRows(n) })
	for _, k := range r.children.Keys() {
		r.Child(k).ExpandRows(n)
	}
}

// BroadcastRows resizes every array of the tree to n rows, copying row 0 into new rows.
func (r *Record) BroadcastRows(n int) {
	if n == r.rows {
		return
	}
	r.rows = n
	r.each(func(a *Array) { a.BroadcastRows(n) })
	for _, k := range r.children.Keys() {
		r.Child(k).BroadcastRows(n)
	}
}

func (r *Record) each(fn func(a *Array)) {
	for _, k := range r.arrays.Keys() {
		fn(r.Array(k))
	}
}

// Walk visits every array depth first, arrays before sub-records.
func (r *Record) Walk(fn func(path string, a *Array)) {
	r.walk("", fn)
}

func (r *Record) walk(prefix string, fn func(path string, a *Array)) {
	for _, k := range r.arrays.Keys() {
		fn(prefix+k, r.Array(k))
	}
	for _, k := range r.children.Keys() {
		r.Child(k).walk(prefix+k+".", fn)
	}
}

// Copy returns a deep copy of the tree.
func (r *Record) Copy() *Record {
	c := NewRecord(r.Tag, r.rows)
	for _, k := range r.arrays.Keys() {
		c.arrays.Set(k, r.Array(k).Clone())
	}
	for _, k := range r.children.Keys() {
		c.children.Set(k, r.Child(k).Copy())
	}
	return c
}

// Overwrite copies every array of src into the array of the same path in r, creating
// missing arrays and sub-records. Values are copied, never aliased.
func (r *Record) Overwrite(src *Record) {
	for _, k := range src.arrays.Keys() {
		a := src.Array(k)
		r.Add(k, a.Cols).CopyFrom(a)
	}
	for _, k := range src.children.Keys() {
		r.EnsureChild(k).Overwrite(src.Child(k))
	}
}

// LastRow returns a one-row deep copy of the tree holding the last control point.
func (r *Record) LastRow() *Record {
	c := NewRecord(r.Tag, 1)
	for _, k := range r.arrays.Keys() {
		a := r.Array(k)
		last := NewArray(1, a.Cols)
		if a.Rows > 0 {
			copy(last.Data, a.Last())
		}
		c.arrays.Set(k, last)
	}
	for _, k := range r.children.Keys() {
		c.children.Set(k, r.Child(k).LastRow())
	}
	return c
}

// Size returns the number of values of the tree.
func (r *Record) Size() int {
	n := 0
	r.Walk(func(_ string, a *Array) { n += len(a.Data) })
	return n
}

// Pack appends every value of the tree to dst in walk order.
func (r *Record) Pack(dst []float64) []float64 {
	r.Walk(func(_ string, a *Array) { dst = append(dst, a.Data...) })
	return dst
}

// Unpack writes x into the tree in walk order. len(x) must equal Size().
func (r *Record) Unpack(x []float64) error {
	if n := r.Size(); n != len(x) {
		return configErrorf(r.Tag, "unpacking %d values into %d slots", len(x), n)
	}
	i := 0
	r.Walk(func(_ string, a *Array) {
		i += copy(a.Data, x[i:])
	})
	return nil
}

func (r *Record) String() string {
	return fmt.Sprintf("Record(%s, %d rows, %d arrays, %d children)", r.Tag, r.rows, len(r.arrays.Keys()), len(r.children.Keys()))
}
