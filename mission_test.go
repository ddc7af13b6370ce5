package amp

import (
	"context"
	"errors"
	"testing"
)

/* Testing here flies short missions and checks that each segment starts where the one before ends. */

// continuous fails when the first control point of next differs from the last one of prev.
func continuous(t *testing.T, prev, next SegmentResult, paths ...string) {
	t.Helper()
	for _, path := range paths {
		a, b := prev.Conditions[path], next.Conditions[path]
		if a == nil || b == nil {
			t.Fatalf("%s missing from %s or %s", path, prev.Tag, next.Tag)
		}
		if !identical(a.Last(), b.Row(0)) {
			t.Fatalf("%s jumps from %v at the end of %s to %v at the start of %s", path, a.Last(), prev.Tag, b.Row(0), next.Tag)
		}
	}
}

func TestMissionQuadrotor(t *testing.T) {
	// Define the vehicle and its segments.
	a := quadAnalyses(true)
	climb := NewHoverClimb("vertical_climb", a)
	climb.AltitudeStart = Float(0)
	climb.AltitudeEnd = 100
	climb.ClimbRate = 2
	hover := NewHoverClimb("hover", a)
	hover.Time = 30
	descent := NewHoverClimb("vertical_descent", a)
	descent.AltitudeEnd = 10
	descent.ClimbRate = -3
	charge := NewBatteryRecharge("charge", a)
	charge.Current = 40
	charge.Time = 300
	for _, s := range []*Segment{climb.Segment, hover.Segment, descent.Segment, charge.Segment} {
		s.Solver = testSolver()
	}

	m := NewMission("quadrotor", ExportConfig{}, climb, hover, descent, charge)
	res, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 4 {
		t.Fatalf("%d segment results", len(res.Segments))
	}
	for i := 1; i < len(res.Segments); i++ {
		continuous(t, res.Segments[i-1], res.Segments[i],
			"frames.inertial.time",
			"frames.inertial.position_vector",
			"freestream.altitude",
			"weights.total_mass",
			"energy.bus.battery.energy",
			"energy.bus.battery.state_of_charge",
			"energy.bus.battery.capacity_fade_factor",
			"energy.bus.battery.resistance_growth_factor",
			"energy.bus.battery.charge_throughput",
		)
	}
	// Aging never lets the stored energy exceed the faded capacity.
	Emax := a.Energy.Distributors[0].(*Bus).Battery.MaximumEnergy()
	for _, sr := range res.Segments {
		E := sr.Conditions["energy.bus.battery.energy"].Col(0)
		fade := sr.Conditions["energy.bus.battery.capacity_fade_factor"].Col(0)
		soc := sr.Conditions["energy.bus.battery.state_of_charge"].Col(0)
		for k := range E {
			if E[k] > Emax*fade[k] {
				t.Fatalf("%s row %d: energy %g above %g", sr.Tag, k, E[k], Emax*fade[k])
			}
			if soc[k] != E[k]/(Emax*fade[k]) {
				t.Fatalf("%s row %d: state of charge %f for energy %g", sr.Tag, k, soc[k], E[k])
			}
			if k > 0 && fade[k] > fade[k-1] {
				t.Fatalf("%s row %d: capacity recovered", sr.Tag, k)
			}
		}
	}
	for _, sr := range res.Segments {
		if !sr.Converged || sr.Error != "" {
			t.Fatalf("%s: converged %t, error %q", sr.Tag, sr.Converged, sr.Error)
		}
	}
	if h, ok := res.Segment("hover"); !ok {
		t.Fatal("no hover result")
	} else if alt, _ := h.Last("freestream.altitude", 0); relativeError(alt, 100) > 1e-9 {
		t.Fatalf("hovered at %f m", alt)
	}
	end, _ := res.Segment("vertical_descent")
	charged, _ := res.Segment("charge")
	before, _ := end.Last("energy.bus.battery.energy", 0)
	after, _ := charged.Last("energy.bus.battery.energy", 0)
	if after <= before {
		t.Fatal("charging did not add energy")
	}
	if res.RunID.String() == "" || res.Mission != "quadrotor" {
		t.Fatal("run not identified")
	}
}

func TestMissionJet(t *testing.T) {
	a := jetAnalyses()
	climb := NewClimbConstantMachConstantAngle("climb", a)
	climb.AltitudeStart = Float(3000)
	climb.AltitudeEnd = 6000
	climb.MachNumber = Float(0.6)
	cruise := NewCruiseConstantSpeedConstantAltitude("cruise", a)
	cruise.AirSpeed = 200
	cruise.Distance = 300e3
	climb.Solver, cruise.Solver = testSolver(), testSolver()
	a.Emissions = NewEmissions()

	m := NewMission("jet", ExportConfig{}, climb, cruise)
	res, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	continuous(t, res.Segments[0], res.Segments[1],
		"frames.inertial.time",
		"frames.inertial.aircraft_range",
		"weights.total_mass",
		"energy.fuel_line.wing_tank.mass",
		"freestream.altitude",
	)
	sr, _ := res.Segment("cruise")
	alt, _ := sr.Last("freestream.altitude", 0)
	if relativeError(alt, 6000) > 1e-5 {
		t.Fatalf("cruised at %f m", alt)
	}
	r0, _ := res.Segments[0].Last("frames.inertial.aircraft_range", 0)
	r1, _ := sr.Last("frames.inertial.aircraft_range", 0)
	if relativeError(r1-r0, 300e3) > 1e-9 {
		t.Fatalf("cruised %f m", r1-r0)
	}
	if co2, ok := sr.Last("emissions.CO2_total", 0); !ok || co2 <= 0 {
		t.Fatal("no CO2 emitted")
	}
}

func TestMissionStopsAtFirstFailure(t *testing.T) {
	a := quadAnalyses(true)
	climb := NewHoverClimb("vertical_climb", a)
	climb.AltitudeStart = Float(0)
	climb.AltitudeEnd = 50
	climb.ClimbRate = 2
	climb.Solver = testSolver()
	broken := NewHoverClimb("hover", a) // no time
	never := NewHoverClimb("never", a)
	never.Time = 10

	m := NewMission("partial", ExportConfig{}, climb, broken, never)
	res, err := m.Evaluate(context.Background())
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Segment != "hover" {
		t.Fatalf("error %v does not name the failed segment", err)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("%d segment results, expected the climb and the failed hover", len(res.Segments))
	}
	if !res.Segments[0].Converged || res.Segments[1].Error == "" {
		t.Fatal("partial results do not describe the run")
	}
	if _, ok := res.Segment("never"); ok {
		t.Fatal("a segment after the failure was flown")
	}
}

func TestMissionConfiguration(t *testing.T) {
	a := quadAnalyses(true)
	one, two := NewHoverClimb("same", a), NewHoverClimb("same", a)
	res, err := NewMission("dup", ExportConfig{}, one, two).Evaluate(context.Background())
	if !errors.Is(err, ErrConfig) || len(res.Segments) != 0 {
		t.Fatalf("duplicate tags: %v, %d results", err, len(res.Segments))
	}
	if _, err := NewMission("nil", ExportConfig{}, one, nil).Evaluate(context.Background()); !errors.Is(err, ErrConfig) {
		t.Fatalf("nil segment: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hover := NewHoverClimb("hover", a)
	hover.AltitudeStart, hover.Time = Float(10), 10
	res, err = NewMission("cancelled", ExportConfig{}, hover).Evaluate(ctx)
	if !errors.Is(err, context.Canceled) || len(res.Segments) != 0 {
		t.Fatalf("cancelled: %v, %d results", err, len(res.Segments))
	}
}

func TestMissionSharesNoiseSurrogate(t *testing.T) {
	a := quadAnalyses(true)
	first := NewHoverClimb("first", a)
	first.AltitudeStart, first.Time = Float(50), 20
	second := NewHoverClimb("second", a)
	second.Time = 20
	first.Solver, second.Solver = testSolver(), testSolver()

	m := NewMission("noisy", ExportConfig{}, first, second)
	m.Noise = NewNoiseAnalysis(128)
	res, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	hits, misses := m.Noise.Stats()
	if misses == 0 || hits == 0 {
		t.Fatalf("surrogate hits %d, misses %d", hits, misses)
	}
	for _, sr := range res.Segments {
		spl, ok := sr.Last("noise.total_SPL", 0)
		rotor, _ := sr.Last("noise.bus.front_right", 0)
		if !ok || spl <= rotor || rotor <= 0 {
			t.Fatalf("%s: total %f dB, one rotor %f dB", sr.Tag, spl, rotor)
		}
	}
	t.Logf("surrogate hits %d, misses %d", hits, misses)
}
