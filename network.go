package amp

import (
	"fmt"
	"math"

	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
)

// Network is the energy network of a vehicle. Each distributor owns the record
// conditions.energy[tag]; the network sums their thrust, moments, power and fuel burn into
// the energy totals.
type Network struct {
	Tag          string
	Distributors []Distributor
	// Parallel evaluates the distributors concurrently. The totals are reduced in
	// declaration order either way.
	Parallel bool
}

// Distributor is a bus or a fuel line.
type Distributor interface {
	Tag() string
	// setup creates the distributor records and its unknowns and residuals. It returns
	// the number of active propulsors.
	setup(seg *Segment, r *Record) (int, error)
	initialize(seg *Segment) error
	unpack(seg *Segment, throttle []float64)
	evaluate(seg *Segment, tot *energyTotals) error
	residuals(seg *Segment)
	noiseSources() []Propulsor
}

type energyTotals struct {
	force, moment *Array
	power         []float64
	massRate      []float64
}

func newEnergyTotals(rows int) *energyTotals {
	return &energyTotals{
		force:    NewArray(rows, 3),
		moment:   NewArray(rows, 3),
		power:    make([]float64, rows),
		massRate: make([]float64, rows),
	}
}

func (t *energyTotals) addPropulsor(r *Record) {
	F, M := r.Array("thrust_force_vector"), r.Array("thrust_moment_vector")
	for i := range t.force.Data {
		t.force.Data[i] += F.Data[i]
		t.moment.Data[i] += M.Data[i]
	}
}

// AddUnknownsAndResiduals creates the energy records of every distributor in the segment
// and registers the network unknowns, residuals and process stages. A solved throttle is
// one unknown for the whole network.
func (n *Network) AddUnknownsAndResiduals(seg *Segment) error {
	c := seg.State.Conditions
	active := 0
	for i, d := range n.Distributors {
		if d == nil {
			return configErrorf("network."+n.Tag, "distributor %d is not set", i)
		}
		r, err := c.Energy.AddChild(d.Tag())
		if err != nil {
			return err
		}
		k, err := d.setup(seg, r)
		if err != nil {
			return err
		}
		active += k
	}
	if seg.Controls.Throttle.Solve && !seg.Controls.Recharging && active > 0 {
		seg.State.Unknowns.Add("throttle", 1).Fill(seg.Controls.Throttle.Value)
	}
	seg.Process.Set("iterate.unknowns.network", StageFunc(n.unpackUnknowns))
	seg.Process.Set("iterate.residuals.network", StageFunc(n.residuals))
	level.Debug(seg.logger).Log("subsys", "energy", "segment", seg.Tag, "network", n.Tag,
		"distributors", len(n.Distributors), "propulsors", active,
		"unknowns", seg.State.Unknowns.Size(), "residuals", seg.State.Residuals.Size())
	return nil
}

func (n *Network) unpackUnknowns(seg *Segment) error {
	rows := seg.State.Rows()
	var throttle []float64
	if a, ok := seg.State.Unknowns.Lookup("throttle"); ok {
		if a.Rows != rows {
			return configErrorf("unknowns.throttle", "%d rows for %d control points", a.Rows, rows)
		}
		throttle = a.Col(0)
	} else {
		throttle = make([]float64, rows)
		for i := range throttle {
			throttle[i] = seg.Controls.Throttle.Value
		}
	}
	for _, d := range n.Distributors {
		d.unpack(seg, throttle)
	}
	return nil
}

func (n *Network) residuals(seg *Segment) error {
	for _, d := range n.Distributors {
		d.residuals(seg)
	}
	return nil
}

// Evaluate runs every distributor and writes the energy totals.
func (n *Network) Evaluate(seg *Segment) error {
	c := seg.State.Conditions
	totals := make([]*energyTotals, len(n.Distributors))
	for i := range totals {
		totals[i] = newEnergyTotals(c.Rows())
	}
	if n.Parallel {
		var g errgroup.Group
		for i, d := range n.Distributors {
			i, d := i, d
			g.Go(func() error {
				if err := d.evaluate(seg, totals[i]); err != nil {
					return fmt.Errorf("%s: %w", d.Tag(), err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i, d := range n.Distributors {
			if err := d.evaluate(seg, totals[i]); err != nil {
				return fmt.Errorf("%s: %w", d.Tag(), err)
			}
		}
	}

	e := c.Energy
	e.ThrustForceVector.Fill(0)
	e.ThrustMomentVector.Fill(0)
	e.Power.Fill(0)
	e.VehicleMassRate.Fill(0)
	for _, t := range totals {
		for i := range t.force.Data {
			e.ThrustForceVector.Data[i] += t.force.Data[i]
			e.ThrustMomentVector.Data[i] += t.moment.Data[i]
		}
		for i := range t.power {
			e.Power.Data[i] += t.power[i]
			e.VehicleMassRate.Data[i] += t.massRate[i]
		}
	}
	return nil
}

// InitializeEnergy sets the first control point of every battery and fuel tank.
func (n *Network) InitializeEnergy(seg *Segment) error {
	for _, d := range n.Distributors {
		if err := d.initialize(seg); err != nil {
			return err
		}
	}
	return nil
}

// UpdateBatteryAge ages every battery over the converged segment.
func (n *Network) UpdateBatteryAge(seg *Segment) error {
	for _, d := range n.Distributors {
		if b, ok := d.(*Bus); ok {
			if err := b.Battery.UpdateAge(seg, b, seg.IncrementBatteryCycleDay); err != nil {
				return err
			}
		}
	}
	return nil
}

// previousRecord is the record at path in the initials, if the previous segment had one.
func previousRecord(seg *Segment, path ...string) *Record {
	in := seg.State.Initials
	if in == nil {
		return nil
	}
	r := in.Energy.Record
	for _, tag := range path {
		var ok bool
		if r, ok = r.LookupChild(tag); !ok {
			return nil
		}
	}
	return r
}

// ---- bus ----

// Bus feeds electric rotors from a battery. While discharging, the bus voltage under load
// and the power coefficient of every evaluated rotor are unknowns; the matching residuals
// are the battery voltage and the rotor torque balance. A cooled bus also solves the
// turndown ratio of its channel against the battery temperature.
type Bus struct {
	Name                string
	Inactive            bool
	IdenticalPropulsors bool
	Propulsors          []*ElectricRotor
	Battery             Battery
	// Cooling is nil when the battery is only cooled by the surrounding air.
	Cooling       *WavyChannel
	AvionicsPower float64 // W
	PayloadPower  float64 // W
}

// Tag implements the Distributor interface.
func (b *Bus) Tag() string { return b.Name }

// evaluated returns the propulsors that are computed: every active one, or only the first
// active one when the propulsors are identical.
func (b *Bus) evaluated() []*ElectricRotor {
	var out []*ElectricRotor
	for _, p := range b.Propulsors {
		if !p.IsActive() {
			continue
		}
		out = append(out, p)
		if b.IdenticalPropulsors {
			break
		}
	}
	return out
}

func (b *Bus) discharging(seg *Segment) bool {
	return !b.Inactive && !seg.Controls.Recharging
}

func (b *Bus) setup(seg *Segment, r *Record) (int, error) {
	if b.Battery == nil {
		return 0, configErrorf("energy."+b.Name, "a bus needs a battery")
	}
	for _, name := range []string{"throttle", "voltage_under_load", "current", "power_draw"} {
		r.Add(name, 1)
	}
	br, err := r.AddChild(b.Battery.Tag())
	if err != nil {
		return 0, err
	}
	b.Battery.AppendConditions(br)
	if b.Cooling != nil {
		if err := b.Cooling.Validate(); err != nil {
			return 0, err
		}
		cr, err := r.AddChild(b.Cooling.Tag())
		if err != nil {
			return 0, err
		}
		b.Cooling.AppendConditions(cr)
	}
	active := 0
	for i, p := range b.Propulsors {
		if p == nil {
			return 0, configErrorf("energy."+b.Name, "propulsor %d is not set", i)
		}
		if err := p.Validate(); err != nil {
			return 0, err
		}
		pr, err := r.AddChild(p.Tag())
		if err != nil {
			return 0, err
		}
		p.AppendConditions(pr)
		if p.IsActive() {
			active++
		}
	}
	if !b.discharging(seg) {
		return 0, nil
	}
	V := seg.Controls.InitialVoltage
	if V <= 0 {
		V = b.Battery.MaximumVoltage()
	}
	seg.State.Unknowns.Add(b.Name+"_voltage_under_load", 1).Fill(V)
	seg.State.Residuals.Add(b.Name+"_voltage", 1)
	for _, p := range b.evaluated() {
		seg.State.Unknowns.Add(b.Name+"_"+p.Tag()+"_power_coefficient", 1).Fill(seg.Controls.InitialPowerCoefficient)
		seg.State.Residuals.Add(b.Name+"_"+p.Tag()+"_torque", 1)
	}
	if w := b.Cooling; w != nil {
		seg.State.Unknowns.Add(b.coolingUnknown(), 1).Fill(w.InitialTurndownRatio)
		seg.State.Residuals.Add(b.Name+"_"+w.Tag()+"_temperature", 1)
	}
	return active, nil
}

func (b *Bus) initialize(seg *Segment) error {
	r := seg.State.Conditions.Energy.Child(b.Name).Child(b.Battery.Tag())
	b.Battery.Initialize(r, previousRecord(seg, b.Name, b.Battery.Tag()), seg.BatteryStateOfCharge)
	return nil
}

func (b *Bus) coolingUnknown() string {
	return b.Name + "_" + b.Cooling.Tag() + "_turndown_ratio"
}

func (b *Bus) unpack(seg *Segment, throttle []float64) {
	r := seg.State.Conditions.Energy.Child(b.Name)
	r.Array("throttle").SetCol(0, throttle)
	for _, p := range b.Propulsors {
		r.Child(p.Tag()).Array("throttle").SetCol(0, throttle)
	}
	if !b.discharging(seg) {
		if b.Cooling != nil {
			r.Child(b.Cooling.Tag()).Array("turndown_ratio").Fill(0)
		}
		return
	}
	u := seg.State.Unknowns
	r.Array("voltage_under_load").CopyFrom(u.Array(b.Name + "_voltage_under_load"))
	if b.Cooling != nil {
		r.Child(b.Cooling.Tag()).Array("turndown_ratio").CopyFrom(u.Array(b.coolingUnknown()))
	}
	for _, p := range b.evaluated() {
		r.Child(p.Tag()).Array("power_coefficient").CopyFrom(u.Array(b.Name + "_" + p.Tag() + "_power_coefficient"))
	}
}

func (b *Bus) evaluate(seg *Segment, tot *energyTotals) error {
	if b.Inactive {
		return nil
	}
	c := seg.State.Conditions
	r := c.Energy.Child(b.Name)
	v := r.Array("voltage_under_load")
	current := r.Array("current")
	power := r.Array("power_draw")
	pump := make([]float64, r.Rows())
	if w := b.Cooling; w != nil {
		cr := r.Child(w.Tag())
		td, pp := cr.Array("turndown_ratio"), cr.Array("pump_power")
		for i := range pump {
			pump[i] = w.pumpPower(td.At(i, 0))
			pp.Set(i, 0, pump[i])
		}
	}

	if seg.Controls.Recharging {
		current.Fill(-seg.Controls.ChargeCurrent)
		if err := b.Battery.EnergyCalc(seg, b, false); err != nil {
			return err
		}
		v.SetCol(0, b.Battery.ComputeVoltage(r.Child(b.Battery.Tag())))
		for i := 0; i < r.Rows(); i++ {
			power.Set(i, 0, v.At(i, 0)*current.At(i, 0))
			tot.power[i] += power.At(i, 0)
		}
		return nil
	}

	props := b.evaluated()
	for _, p := range props {
		pr := r.Child(p.Tag())
		pr.Array("voltage").CopyFrom(v)
		if err := p.ComputePerformance(pr, c); err != nil {
			return fmt.Errorf("%s: %w", p.Tag(), err)
		}
	}
	if b.IdenticalPropulsors && len(props) == 1 {
		src := r.Child(props[0].Tag())
		for _, p := range b.Propulsors {
			if p != props[0] && p.IsActive() {
				r.Child(p.Tag()).Overwrite(src)
			}
		}
	}

	auxiliary := b.AvionicsPower + b.PayloadPower
	for i := 0; i < r.Rows(); i++ {
		current.Set(i, 0, (auxiliary+pump[i])/math.Max(v.At(i, 0), minimumVoltage))
	}
	cg := seg.Analyses.Vehicle.CenterOfGravity
	for _, p := range b.Propulsors {
		if !p.IsActive() {
			continue
		}
		pr := r.Child(p.Tag())
		setMoments(pr, p.Location(), cg)
		tot.addPropulsor(pr)
		pi := pr.Array("current")
		for i := 0; i < r.Rows(); i++ {
			current.Set(i, 0, current.At(i, 0)+pi.At(i, 0))
		}
	}
	for i := 0; i < r.Rows(); i++ {
		power.Set(i, 0, v.At(i, 0)*current.At(i, 0))
	}
	if err := b.Battery.EnergyCalc(seg, b, true); err != nil {
		return err
	}
	for i := 0; i < r.Rows(); i++ {
		tot.power[i] += power.At(i, 0)
	}
	return nil
}

func (b *Bus) residuals(seg *Segment) {
	if !b.discharging(seg) {
		return
	}
	r := seg.State.Conditions.Energy.Child(b.Name)
	res := seg.State.Residuals
	v := r.Array("voltage_under_load")
	Vul := b.Battery.ComputeVoltage(r.Child(b.Battery.Tag()))
	Vmax := b.Battery.MaximumVoltage()
	rv := res.Array(b.Name + "_voltage")
	for i := 0; i < rv.Rows; i++ {
		rv.Set(i, 0, (v.At(i, 0)-Vul[i])/Vmax)
	}
	for _, p := range b.evaluated() {
		pr := r.Child(p.Tag())
		rq := res.Array(b.Name + "_" + p.Tag() + "_torque")
		for i := 0; i < rq.Rows; i++ {
			rq.Set(i, 0, p.torqueResidual(pr, i))
		}
	}
	if w := b.Cooling; w != nil {
		T := r.Child(b.Battery.Tag()).Array("temperature").Col(0)
		td := r.Child(w.Tag()).Array("turndown_ratio").Col(0)
		w.temperatureResiduals(T, td, res.Array(b.Name+"_"+w.Tag()+"_temperature"))
	}
}

func (b *Bus) noiseSources() []Propulsor {
	if b.Inactive {
		return nil
	}
	var out []Propulsor
	for _, p := range b.Propulsors {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// ---- fuel line ----

// FuelTank holds the fuel of a fuel line.
type FuelTank struct {
	Name string
	// FuelSelectorRatio is the share of the fuel burned by its propulsors that this tank
	// supplies.
	FuelSelectorRatio float64
	// SecondaryFuelFlow is drawn regardless of the propulsors, kg/s.
	SecondaryFuelFlow float64
	FuelMass          float64 // kg, when the mission starts
}

// FuelLine feeds fuel burning propulsors from its tanks. A propulsor burns from the tanks
// it lists, or from every tank of the line when it lists none.
type FuelLine struct {
	Name                string
	Inactive            bool
	IdenticalPropulsors bool
	Propulsors          []FuelPropulsor
	FuelTanks           []*FuelTank
}

// Tag implements the Distributor interface.
func (l *FuelLine) Tag() string { return l.Name }

func (l *FuelLine) evaluated() []FuelPropulsor {
	var out []FuelPropulsor
	for _, p := range l.Propulsors {
		if !p.IsActive() {
			continue
		}
		out = append(out, p)
		if l.IdenticalPropulsors {
			break
		}
	}
	return out
}

func (l *FuelLine) setup(seg *Segment, r *Record) (int, error) {
	for _, name := range []string{"throttle", "fuel_mass_rate", "power"} {
		r.Add(name, 1)
	}
	tanks := make([]string, 0, len(l.FuelTanks))
	for i, t := range l.FuelTanks {
		if t == nil {
			return 0, configErrorf("energy."+l.Name, "fuel tank %d is not set", i)
		}
		tr, err := r.AddChild(t.Name)
		if err != nil {
			return 0, err
		}
		tr.Add("mass", 1)
		tr.Add("mass_flow_rate", 1)
		tanks = append(tanks, t.Name)
	}
	active := 0
	for i, p := range l.Propulsors {
		if p == nil {
			return 0, configErrorf("energy."+l.Name, "propulsor %d is not set", i)
		}
		for _, name := range p.FuelTanks() {
			if !contains(tanks, name) {
				return 0, configErrorf("energy."+l.Name+"."+p.Tag(), "burns from unknown fuel tank %s", name)
			}
		}
		if err := p.Validate(); err != nil {
			return 0, err
		}
		pr, err := r.AddChild(p.Tag())
		if err != nil {
			return 0, err
		}
		p.AppendConditions(pr)
		if p.IsActive() && !l.Inactive {
			active++
		}
	}
	return active, nil
}

func (l *FuelLine) initialize(seg *Segment) error {
	r := seg.State.Conditions.Energy.Child(l.Name)
	for _, t := range l.FuelTanks {
		m0 := t.FuelMass
		if prev := previousRecord(seg, l.Name, t.Name); prev != nil {
			m0 = prev.Array("mass").Last()[0]
		}
		r.Child(t.Name).Array("mass").Set(0, 0, m0)
	}
	return nil
}

func (l *FuelLine) unpack(seg *Segment, throttle []float64) {
	r := seg.State.Conditions.Energy.Child(l.Name)
	r.Array("throttle").SetCol(0, throttle)
	for _, p := range l.Propulsors {
		r.Child(p.Tag()).Array("throttle").SetCol(0, throttle)
	}
}

// burnsFrom reports whether p draws on the tank.
func burnsFrom(p FuelPropulsor, tank string) bool {
	list := p.FuelTanks()
	return len(list) == 0 || contains(list, tank)
}

func (l *FuelLine) evaluate(seg *Segment, tot *energyTotals) error {
	if l.Inactive {
		return nil
	}
	c := seg.State.Conditions
	r := c.Energy.Child(l.Name)
	rows := r.Rows()

	props := l.evaluated()
	for _, p := range props {
		if err := p.ComputePerformance(r.Child(p.Tag()), c); err != nil {
			return fmt.Errorf("%s: %w", p.Tag(), err)
		}
	}
	if l.IdenticalPropulsors && len(props) == 1 {
		src := r.Child(props[0].Tag())
		for _, p := range l.Propulsors {
			if p != props[0] && p.IsActive() {
				r.Child(p.Tag()).Overwrite(src)
			}
		}
	}

	cg := seg.Analyses.Vehicle.CenterOfGravity
	power := r.Array("power")
	power.Fill(0)
	for _, p := range l.Propulsors {
		if !p.IsActive() {
			continue
		}
		pr := r.Child(p.Tag())
		setMoments(pr, p.Location(), cg)
		tot.addPropulsor(pr)
		P := pr.Array("power")
		for i := 0; i < rows; i++ {
			power.Set(i, 0, power.At(i, 0)+P.At(i, 0))
		}
	}

	lineRate := r.Array("fuel_mass_rate")
	lineRate.Fill(0)
	for _, t := range l.FuelTanks {
		tr := r.Child(t.Name)
		mdot := make([]float64, rows)
		for i := range mdot {
			mdot[i] = t.SecondaryFuelFlow
		}
		for _, p := range l.Propulsors {
			if !p.IsActive() || !burnsFrom(p, t.Name) {
				continue
			}
			ff := r.Child(p.Tag()).Array("fuel_flow_rate")
			for i := range mdot {
				mdot[i] += t.FuelSelectorRatio * ff.At(i, 0)
			}
		}
		tr.Array("mass_flow_rate").SetCol(0, mdot)
		burned := seg.State.integrate(mdot)
		m := tr.Array("mass")
		m0 := m.At(0, 0)
		for i := range burned {
			m.Set(i, 0, m0-burned[i])
			lineRate.Set(i, 0, lineRate.At(i, 0)+mdot[i])
		}
	}
	for i := 0; i < rows; i++ {
		tot.power[i] += power.At(i, 0)
		tot.massRate[i] += lineRate.At(i, 0)
	}
	return nil
}

func (l *FuelLine) residuals(*Segment) {}

func (l *FuelLine) noiseSources() []Propulsor {
	if l.Inactive {
		return nil
	}
	var out []Propulsor
	for _, p := range l.Propulsors {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}
