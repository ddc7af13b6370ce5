package amp

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !scalar.EqualWithinAbsOrRel(a[i], b[i], 1e-12, 1e-12) {
			return false
		}
	}
	return true
}

// identical is true when a and b hold the same values bit for bit.
func identical(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// relativeError is |a-b| relative to |b|, or absolute when b is zero.
func relativeError(a, b float64) float64 {
	if b == 0 {
		return math.Abs(a)
	}
	return math.Abs(a-b) / math.Abs(b)
}

// testSolver loosens the default tolerance to what finite difference Jacobians reach
// reliably on every platform.
func testSolver() Solver {
	s := DefaultSolver()
	s.Tolerance = 1e-6
	s.MaxIterations = 60
	return s
}

// jetAnalyses is a 10 t twin turbojet with one wing tank.
func jetAnalyses() *Analyses {
	starboard := NewTurbojet("starboard_engine", 40)
	starboard.Origin = [3]float64{2, 4, 0.5}
	port := NewTurbojet("port_engine", 40)
	port.Origin = [3]float64{2, -4, 0.5}
	line := &FuelLine{
		Name:                "fuel_line",
		IdenticalPropulsors: true,
		Propulsors:          []FuelPropulsor{starboard, port},
		FuelTanks:           []*FuelTank{{Name: "wing_tank", FuelSelectorRatio: 1, FuelMass: 3000}},
	}
	v := &Vehicle{
		Tag:             "twin_jet",
		TakeoffMass:     10000,
		ReferenceArea:   30,
		CenterOfGravity: [3]float64{2.5, 0, 0},
		Network:         &Network{Tag: "turbojets", Distributors: []Distributor{line}},
	}
	polar := &DragPolar{LiftSlope: 5.5, ZeroLiftAngle: Deg2rad(-2), ZeroLiftDrag: 0.02, InducedDragFactor: 0.045}
	return NewAnalyses(v, polar)
}

// quadAnalyses is a 100 kg battery powered quadrotor.
func quadAnalyses(identical bool) *Analyses {
	bus := &Bus{
		Name:                "bus",
		IdenticalPropulsors: identical,
		Battery:             NewLithiumIon("battery", NMC, 110, 8),
		AvionicsPower:       200,
	}
	arms := [][3]float64{{1, 1, 0}, {1, -1, 0}, {-1, 1, 0}, {-1, -1, 0}}
	for i, arm := range arms {
		p := NewElectricRotor([]string{"front_right", "front_left", "rear_right", "rear_left"}[i], 0.6, 0.6, 0.73)
		p.Origin = arm
		bus.Propulsors = append(bus.Propulsors, p)
	}
	v := &Vehicle{
		Tag:           "quadrotor",
		TakeoffMass:   100,
		ReferenceArea: 1,
		Network:       &Network{Tag: "electric", Distributors: []Distributor{bus}},
	}
	return NewAnalyses(v, &DragPolar{ZeroLiftDrag: 0.8})
}
