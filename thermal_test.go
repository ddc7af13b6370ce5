package amp

import (
	"errors"
	"math"
	"testing"
)

func TestWavyChannelValidate(t *testing.T) {
	w := NewWavyChannel("wavy_channel")
	if err := w.Validate(); err != nil {
		t.Fatal(err)
	}
	for name, edit := range map[string]func(*WavyChannel){
		"heat":        func(w *WavyChannel) { w.DesignHeatRemoved = 0 },
		"difference":  func(w *WavyChannel) { w.DesignTemperatureDifference = -1 },
		"pump":        func(w *WavyChannel) { w.DesignPumpPower = -1 },
		"temperature": func(w *WavyChannel) { w.IdealOperatingTemperature = w.CoolantInletTemperature },
	} {
		w := NewWavyChannel("wavy_channel")
		edit(w)
		if err := w.Validate(); !errors.Is(err, ErrConfig) {
			t.Errorf("%s: expected a configuration error, got %v", name, err)
		}
	}
}

func TestWavyChannelHeatAndPump(t *testing.T) {
	w := NewWavyChannel("wavy_channel")
	// Full turndown at the design temperature difference removes the design heat.
	if q := w.heatRemoved(1, w.CoolantInletTemperature+w.DesignTemperatureDifference); math.Abs(q-w.DesignHeatRemoved) > 1e-9 {
		t.Fatalf("design heat removed %f", q)
	}
	if w.heatRemoved(0.5, 300) != 0.5*w.heatRemoved(1, 300) {
		t.Fatal("heat removed is not proportional to the turndown")
	}
	if w.heatRemoved(1, w.CoolantInletTemperature-5) >= 0 {
		t.Fatal("coolant warmer than the cells heats them")
	}
	if w.pumpPower(1) != w.DesignPumpPower || w.pumpPower(0.5) != w.DesignPumpPower/8 {
		t.Fatal("pump power does not follow the cube of the turndown")
	}
	if w.pumpPower(-0.5) != w.pumpPower(0.5) {
		t.Fatal("pump power depends on the flow direction")
	}
}

func TestWavyChannelResiduals(t *testing.T) {
	w := NewWavyChannel("wavy_channel")
	w.IdealOperatingTemperature = 290
	T := []float64{300, 290, 291}
	td := []float64{0.2, 0.3, 0.4}
	res := NewArray(3, 1)
	w.temperatureResiduals(T, td, res)
	if exp := []float64{0, 1. / 290, td[2] - td[1]}; !vectorsEqual(res.Col(0), exp) {
		t.Fatalf("residuals %v, expected %v", res.Col(0), exp)
	}

	one := NewArray(1, 1)
	w.temperatureResiduals([]float64{300}, []float64{0.25}, one)
	if one.At(0, 0) != 0.25 {
		t.Fatal("a single control point drives its turndown to zero")
	}
}

// cooledQuad is the quadrotor with a wavy channel holding its battery at the ambient
// temperature it starts from.
func cooledQuad() (*Analyses, *Bus) {
	a := quadAnalyses(true)
	bus := a.Energy.Distributors[0].(*Bus)
	bus.Cooling = NewWavyChannel("wavy_channel")
	bus.Cooling.IdealOperatingTemperature = 288.15
	bus.Cooling.InitialTurndownRatio = 0.1
	return a, bus
}

func TestBusCoolingUnknowns(t *testing.T) {
	a, _ := cooledQuad()
	s := hoverSegment(a)
	initialized(t, s.Segment)
	u, r := s.State.Unknowns, s.State.Residuals
	td, ok := u.Lookup("bus_wavy_channel_turndown_ratio")
	if !ok || td.Rows != DefaultControlPoints {
		t.Fatal("turndown ratio unknown missing or not expanded")
	}
	if td.At(0, 0) != 0.1 {
		t.Fatalf("turndown guess %f", td.At(0, 0))
	}
	if _, ok := r.Lookup("bus_wavy_channel_temperature"); !ok {
		t.Fatal("battery temperature residual missing")
	}
	if u.Size() != r.Size() {
		t.Fatalf("%d unknowns for %d residuals", u.Size(), r.Size())
	}
	if _, ok := s.State.Conditions.Energy.Child("bus").LookupChild("wavy_channel"); !ok {
		t.Fatal("channel record missing")
	}

	a, bus := cooledQuad()
	bus.Cooling.IdealOperatingTemperature = 270
	s = hoverSegment(a)
	if err := s.setupNetwork(); !errors.Is(err, ErrConfig) {
		t.Fatalf("a channel colder than its coolant: %v", err)
	}
}

func TestBusCoolingHoldsBatteryTemperature(t *testing.T) {
	a, bus := cooledQuad()
	s := hoverSegment(a)
	if err := s.Evaluate(); err != nil {
		t.Fatal(err)
	}
	r := s.State.Conditions.Energy.Child("bus")
	br, cr := r.Child("battery"), r.Child("wavy_channel")
	T := br.Array("temperature").Col(0)
	td := cr.Array("turndown_ratio").Col(0)
	w := bus.Cooling
	for k := 1; k < len(T); k++ {
		if math.Abs(T[k]-w.IdealOperatingTemperature) > 1e-3 {
			t.Fatalf("row %d: battery at %f K", k, T[k])
		}
	}
	for k := range td {
		if q := cr.Array("heat_removed").At(k, 0); q != w.heatRemoved(td[k], T[k]) {
			t.Fatalf("row %d: heat removed %f", k, q)
		}
		if p := cr.Array("pump_power").At(k, 0); p != w.pumpPower(td[k]) {
			t.Fatalf("row %d: pump power %f", k, p)
		}
	}
	if !identical(td, s.State.Unknowns.Array("bus_wavy_channel_turndown_ratio").Col(0)) {
		t.Fatal("turndown ratio not unpacked")
	}

	// The pump draws from the bus alongside the avionics.
	v := r.Array("voltage_under_load")
	for i := 0; i < r.Rows(); i++ {
		exp := (bus.AvionicsPower + bus.PayloadPower + w.pumpPower(td[i])) / math.Max(v.At(i, 0), minimumVoltage)
		for _, p := range bus.Propulsors {
			exp += r.Child(p.Tag()).Array("current").At(i, 0)
		}
		if relativeError(r.Array("current").At(i, 0), exp) > 1e-12 {
			t.Fatalf("row %d: bus current %f, expected %f", i, r.Array("current").At(i, 0), exp)
		}
	}
}
