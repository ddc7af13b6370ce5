package amp

// DefaultControlPoints is the number of control points of a segment unless it says otherwise.
const DefaultControlPoints = 16

// State is everything a segment solves for and reads from.
type State struct {
	Conditions *Conditions
	Unknowns   *Record
	Residuals  *Record
	Numerics   *Numerics
	// Initials is a one-row copy of the previous segment's last control point. Nil for the
	// first segment of a mission.
	Initials *Conditions
}

// NewState returns an empty state with the default discretization.
func NewState() *State {
	return &State{
		Conditions: NewConditions(1),
		Unknowns:   NewRecord("unknowns", 1),
		Residuals:  NewRecord("residuals", 1),
		Numerics:   NewNumerics(DefaultControlPoints),
	}
}

// Rows returns the current number of control points of the condition store.
func (s *State) Rows() int {
	return s.Conditions.Rows()
}

// integrate returns the time integral of v from the first control point, or zeros when the
// time operators were never built (single point segments).
func (s *State) integrate(v []float64) []float64 {
	I := s.Numerics.Time.Integrate
	if I == nil || I.RawMatrix().Rows != len(v) {
		return make([]float64, len(v))
	}
	return applyOperator(I, v)
}

// differentiate returns the time derivative of v, or zeros without time operators.
func (s *State) differentiate(v []float64) []float64 {
	D := s.Numerics.Time.Differentiate
	if D == nil || D.RawMatrix().Rows != len(v) {
		return make([]float64, len(v))
	}
	return applyOperator(D, v)
}
