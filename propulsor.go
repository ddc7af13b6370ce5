package amp

import "math"

// Propulsor is a thrust producing unit made of linked converter stages. Every propulsor
// record carries the arrays of propulsorArrays; the distributor writes `throttle` before
// the propulsor runs.
type Propulsor interface {
	Tag() string
	IsActive() bool
	// Location is the thrust origin in the body frame, m.
	Location() [3]float64
	// Validate assembles the stage graph. It is called once, when the network is set up.
	Validate() error
	AppendConditions(r *Record)
	ComputePerformance(r *Record, c *Conditions) error
}

// FuelPropulsor burns fuel from the tanks of its fuel line.
type FuelPropulsor interface {
	Propulsor
	FuelTanks() []string
}

var propulsorArrays = []struct {
	name string
	cols int
}{
	{"throttle", 1},
	{"thrust", 1},
	{"thrust_force_vector", 3},
	{"thrust_moment_vector", 3},
	{"power", 1},
	{"fuel_flow_rate", 1},
}

func appendPropulsorConditions(r *Record) {
	for _, a := range propulsorArrays {
		r.Add(a.name, a.cols)
	}
}

// throttleAt is the throttle of row i, held between off and the 110% contingency rating.
func throttleAt(r *Record, i int) float64 {
	return clamp(r.Array("throttle").At(i, 0), 0, maximumThrottle)
}

const maximumThrottle = 1.1

// setThrust writes the thrust magnitude of row i and its body frame vector along the
// thrust angle.
func setThrust(r *Record, i int, T, angle float64) {
	s, c := math.Sincos(angle)
	r.Array("thrust").Set(i, 0, T)
	r.Array("thrust_force_vector").SetRow(i, []float64{T * c, 0, -T * s})
}

// setMoments recomputes the thrust moment about the center of gravity. Copies of an
// identical propulsor go through here too since their location differs.
func setMoments(r *Record, origin, cg [3]float64) {
	arm := []float64{origin[0] - cg[0], origin[1] - cg[1], origin[2] - cg[2]}
	F, M := r.Array("thrust_force_vector"), r.Array("thrust_moment_vector")
	for i := 0; i < F.Rows; i++ {
		M.SetRow(i, cross(arm, F.Row(i)))
	}
}

// ShaftPowerOfftake is power drawn from the high pressure spool of a turbojet for the
// aircraft systems.
type ShaftPowerOfftake struct {
	Power float64 // W
}
