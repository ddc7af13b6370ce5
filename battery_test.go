package amp

import (
	"testing"
)

func TestOpenCircuitVoltage(t *testing.T) {
	for _, chem := range []Chemistry{NMC, LFP} {
		b := NewLithiumIon("pack", chem, 100, 10)
		prev := b.openCircuit(0)
		for s := 0.01; s <= 1; s += 0.01 {
			v := b.openCircuit(s)
			if v <= prev {
				t.Fatalf("%s open circuit voltage not increasing at %.2f", chem, s)
			}
			prev = v
		}
		if b.openCircuit(2) != b.openCircuit(1) || b.openCircuit(-1) != b.openCircuit(0) {
			t.Fatalf("%s state of charge not clamped", chem)
		}
		if b.MaximumVoltage() != 100*b.openCircuit(1) {
			t.Fatalf("%s maximum voltage", chem)
		}
	}
	b := NewLithiumIon("pack", NMC, 110, 8)
	if exp := 3 * 3600 * 3.6 * 880.; relativeError(b.MaximumEnergy(), exp) > 1e-12 {
		t.Fatalf("maximum energy %f != %f", b.MaximumEnergy(), exp)
	}
	if relativeError(b.MaximumVoltage(), 110*4.2) > 1e-12 {
		t.Fatalf("maximum voltage %f", b.MaximumVoltage())
	}
}

func TestChemistry(t *testing.T) {
	for _, name := range []string{"nmc", "NMC", "lfp", "LFP"} {
		c, err := ChemistryFromString(name)
		if err != nil {
			t.Fatal(err)
		}
		if len(c.String()) != 3 {
			t.Fatalf("chemistry %s", c)
		}
	}
	if _, err := ChemistryFromString("lead acid"); err == nil {
		t.Fatal("unknown chemistry accepted")
	}
	assertPanic(t, func() {
		_ = Chemistry(42).String()
	})
}

func TestBatteryInitialize(t *testing.T) {
	b := NewLithiumIon("pack", NMC, 110, 8)
	r := NewRecord("pack", 4)
	b.AppendConditions(r)
	b.Initialize(r, nil, nil)
	if r.Array("energy").At(0, 0) != b.MaximumEnergy() {
		t.Fatal("a new battery starts full")
	}
	if r.Array("capacity_fade_factor").At(0, 0) != 1 || r.Array("temperature").At(0, 0) != 288.15 {
		t.Fatal("a new battery is not aged")
	}

	prev := NewRecord("pack", 2)
	b.AppendConditions(prev)
	prev.Array("energy").SetCol(0, []float64{1e7, 8e6})
	prev.Array("capacity_fade_factor").Fill(0.9)
	prev.Array("resistance_growth_factor").Fill(1.1)
	prev.Array("cycle_in_day").Fill(3)
	prev.Array("temperature").Fill(300)
	b.Initialize(r, prev, nil)
	if r.Array("energy").At(0, 0) != 8e6 {
		t.Fatal("energy carries over from the last control point")
	}
	if r.Array("capacity_fade_factor").At(0, 0) != 0.9 || r.Array("cycle_in_day").At(0, 0) != 3 || r.Array("temperature").At(0, 0) != 300 {
		t.Fatal("aging state carries over")
	}

	b.Initialize(r, prev, Float(0.5))
	if exp := 0.5 * 0.9 * b.MaximumEnergy(); relativeError(r.Array("energy").At(0, 0), exp) > 1e-12 {
		t.Fatalf("state of charge overrides the previous energy: %f != %f", r.Array("energy").At(0, 0), exp)
	}
	b.Initialize(r, nil, Float(1.5))
	if r.Array("energy").At(0, 0) != b.MaximumEnergy() {
		t.Fatal("energy is capped at the maximum")
	}
}

// batterySegment returns an initialized quadrotor hover segment lasting dt seconds at
// standard sea level temperature, with its bus and battery.
func batterySegment(t *testing.T, chem Chemistry, soc *float64, dt float64) (*HoverClimb, *Bus, *LithiumIon) {
	t.Helper()
	a := quadAnalyses(true)
	bus := a.Energy.Distributors[0].(*Bus)
	batt := bus.Battery.(*LithiumIon)
	batt.Chemistry = chem
	s := hoverSegment(a)
	s.BatteryStateOfCharge = soc
	initialized(t, s.Segment)
	if err := s.Process.Run("iterate.initials", s.Segment); err != nil {
		t.Fatal(err)
	}
	if err := updateTime(s.Segment, dt); err != nil {
		t.Fatal(err)
	}
	s.State.Conditions.Freestream.Temperature.Fill(288.15)
	return s, bus, batt
}

func TestBatteryDischarge(t *testing.T) {
	s, bus, batt := batterySegment(t, NMC, nil, 100)
	r := s.State.Conditions.Energy.Child("bus")
	const current, voltage = 50., 450.
	r.Array("current").Fill(current)
	r.Array("power_draw").Fill(current * voltage)
	if err := batt.EnergyCalc(s.Segment, bus, true); err != nil {
		t.Fatal(err)
	}
	br := r.Child("battery")
	E := br.Array("energy").Col(0)
	R := batt.packResistance(1)
	used := (current*voltage + current*current*R) * 100
	if relativeError(E[len(E)-1], batt.MaximumEnergy()-used) > 1e-9 {
		t.Fatalf("energy %f, expected %f", E[len(E)-1], batt.MaximumEnergy()-used)
	}
	for k := 1; k < len(E); k++ {
		if E[k] >= E[k-1] {
			t.Fatalf("energy not decreasing at %d", k)
		}
		soc := br.Array("state_of_charge").At(k, 0)
		if relativeError(soc, E[k]/batt.MaximumEnergy()) > 1e-12 {
			t.Fatalf("state of charge at %d", k)
		}
		vul := br.Array("voltage_under_load").At(k, 0)
		if relativeError(vul, br.Array("voltage_open_circuit").At(k, 0)-current*R) > 1e-12 {
			t.Fatalf("voltage under load at %d", k)
		}
	}
	T := br.Array("temperature")
	if T.Last()[0] <= T.At(0, 0) {
		t.Fatal("a discharging battery warms up")
	}
	if exp := current / 8 * 100 / 3600; relativeError(br.Array("charge_throughput").Last()[0], exp) > 1e-9 {
		t.Fatalf("throughput %f, expected %f", br.Array("charge_throughput").Last()[0], exp)
	}
	if v := batt.ComputeVoltage(br); !vectorsEqual(v, br.Array("voltage_under_load").Col(0)) {
		t.Fatal("ComputeVoltage is the voltage under load")
	}
}

func TestBatteryCharge(t *testing.T) {
	s, bus, batt := batterySegment(t, NMC, Float(0.5), 600)
	r := s.State.Conditions.Energy.Child("bus")
	r.Array("current").Fill(-20)
	if err := batt.EnergyCalc(s.Segment, bus, false); err != nil {
		t.Fatal(err)
	}
	E := r.Child("battery").Array("energy").Col(0)
	for k := 1; k < len(E); k++ {
		if E[k] <= E[k-1] {
			t.Fatalf("energy not increasing at %d", k)
		}
		if E[k] > batt.MaximumEnergy() {
			t.Fatal("overcharged")
		}
	}
	vul := r.Child("battery").Array("voltage_under_load")
	voc := r.Child("battery").Array("voltage_open_circuit")
	if vul.At(3, 0) <= voc.At(3, 0) {
		t.Fatal("the charging voltage is above the open circuit voltage")
	}
}

func TestBatteryAging(t *testing.T) {
	s, bus, batt := batterySegment(t, NMC, nil, 600)
	r := s.State.Conditions.Energy.Child("bus")
	r.Array("current").Fill(60)
	r.Array("power_draw").Fill(60 * 450)
	if err := batt.EnergyCalc(s.Segment, bus, true); err != nil {
		t.Fatal(err)
	}
	if err := batt.UpdateAge(s.Segment, bus, true); err != nil {
		t.Fatal(err)
	}
	br := r.Child("battery")
	if br.Array("cycle_in_day").Last()[0] != 1 {
		t.Fatal("day not incremented")
	}
	fade := br.Array("capacity_fade_factor").Last()[0]
	growth := br.Array("resistance_growth_factor").Last()[0]
	if !(fade < 1 && fade > 0.9) {
		t.Fatalf("capacity fade %f", fade)
	}
	if !(growth > 1 && growth < 1.1) {
		t.Fatalf("resistance growth %f", growth)
	}
	// The segment keeps the state it started from; the aged state is handed on by its last row.
	if br.Array("capacity_fade_factor").At(0, 0) != 1 || br.Array("resistance_growth_factor").At(0, 0) != 1 {
		t.Fatal("aging rewrote the first control point")
	}
	if br.Array("cycle_in_day").At(0, 0) != 0 {
		t.Fatal("the new day starts after the first control point")
	}
	E := br.Array("energy")
	for k := 0; k < br.Rows(); k++ {
		Emax := batt.MaximumEnergy() * br.Array("capacity_fade_factor").At(k, 0)
		if E.At(k, 0) > Emax {
			t.Fatalf("row %d: energy %g above the faded capacity %g", k, E.At(k, 0), Emax)
		}
		if br.Array("state_of_charge").At(k, 0) != E.At(k, 0)/Emax {
			t.Fatalf("row %d: state of charge not against the faded capacity", k)
		}
	}

	// A full pack stays capped once its capacity fades.
	s, bus, batt = batterySegment(t, NMC, nil, 600)
	r = s.State.Conditions.Energy.Child("bus")
	r.Array("current").Fill(-1e-3)
	if err := batt.EnergyCalc(s.Segment, bus, false); err != nil {
		t.Fatal(err)
	}
	if err := batt.UpdateAge(s.Segment, bus, true); err != nil {
		t.Fatal(err)
	}
	br = r.Child("battery")
	if last := br.Array("energy").Last()[0]; last != batt.MaximumEnergy()*br.Array("capacity_fade_factor").Last()[0] {
		t.Fatalf("energy %g not capped at the faded capacity", last)
	}
	if br.Array("state_of_charge").Last()[0] != 1 {
		t.Fatal("a capped pack is full")
	}

	s, bus, batt = batterySegment(t, LFP, nil, 600)
	r = s.State.Conditions.Energy.Child("bus")
	r.Array("current").Fill(60)
	r.Array("power_draw").Fill(60 * 400)
	if err := batt.EnergyCalc(s.Segment, bus, true); err != nil {
		t.Fatal(err)
	}
	if err := batt.UpdateAge(s.Segment, bus, true); err != nil {
		t.Fatal(err)
	}
	br = r.Child("battery")
	if br.Array("capacity_fade_factor").Last()[0] != 1 || br.Array("resistance_growth_factor").Last()[0] != 1 {
		t.Fatal("LFP cells do not age")
	}
	if br.Array("cycle_in_day").Last()[0] != 1 {
		t.Fatal("days count for every chemistry")
	}
}
