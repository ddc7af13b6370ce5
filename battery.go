package amp

import (
	"fmt"
	"math"

	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/floats"
)

// Battery is the energy source of a bus. Its state lives in the record
// conditions.energy[bus][battery].
type Battery interface {
	Tag() string
	AppendConditions(r *Record)
	// EnergyCalc updates the battery state from the bus current: discharging draws the bus
	// power, charging pushes the bus current back in.
	EnergyCalc(seg *Segment, bus *Bus, discharge bool) error
	// ComputeVoltage returns the voltage under load of every control point.
	ComputeVoltage(r *Record) []float64
	// Initialize sets the first control point: from stateOfCharge when set, else from the
	// last control point of prev, else full.
	Initialize(r, prev *Record, stateOfCharge *float64)
	UpdateAge(seg *Segment, bus *Bus, incrementDay bool) error
	MaximumEnergy() float64  // J, when new
	MaximumVoltage() float64 // V
}

// Chemistry selects the cell model of a lithium-ion battery.
type Chemistry uint8

const (
	// NMC is a lithium nickel manganese cobalt oxide cell.
	NMC Chemistry = iota + 1
	// LFP is a lithium iron phosphate cell.
	LFP
)

func (c Chemistry) String() string {
	switch c {
	case NMC:
		return "NMC"
	case LFP:
		return "LFP"
	}
	panic("cannot stringify unknown chemistry")
}

// ChemistryFromString returns the chemistry with that name.
func ChemistryFromString(name string) (Chemistry, error) {
	switch name {
	case "nmc", "NMC":
		return NMC, nil
	case "lfp", "LFP":
		return LFP, nil
	}
	return 0, fmt.Errorf("unknown chemistry '%s'", name)
}

// Cell is one lithium-ion cell.
type Cell struct {
	Capacity                float64 `yaml:"capacity"`                  // Ah
	NominalVoltage          float64 `yaml:"nominal_voltage"`           // V
	Resistance              float64 `yaml:"resistance"`                // Ω
	Mass                    float64 `yaml:"mass"`                      // kg
	SpecificHeat            float64 `yaml:"specific_heat"`             // J/(kg·K)
	HeatTransferCoefficient float64 `yaml:"heat_transfer_coefficient"` // W/(m²·K)
	SurfaceArea             float64 `yaml:"surface_area"`              // m²
}

// LithiumIon is a pack of SeriesCells x ParallelCells identical cells with a lumped thermal
// model. NMC packs age; LFP packs do not.
type LithiumIon struct {
	Name               string
	Chemistry          Chemistry
	Cell               Cell
	SeriesCells        int
	ParallelCells      int
	InitialTemperature float64 // K, zero is 288.15
}

// NewLithiumIon returns a pack of 18650 style cells.
func NewLithiumIon(name string, chem Chemistry, series, parallel int) *LithiumIon {
	return &LithiumIon{
		Name:      name,
		Chemistry: chem,
		Cell: Cell{
			Capacity: 3, NominalVoltage: 3.6, Resistance: 0.02, Mass: 0.048, SpecificHeat: 1100,
			HeatTransferCoefficient: 35, SurfaceArea: 0.0042,
		},
		SeriesCells:   series,
		ParallelCells: parallel,
	}
}

// Tag implements the Battery interface.
func (b *LithiumIon) Tag() string { return b.Name }

// MaximumEnergy implements the Battery interface.
func (b *LithiumIon) MaximumEnergy() float64 {
	return b.Cell.Capacity * 3600 * b.Cell.NominalVoltage * float64(b.SeriesCells*b.ParallelCells)
}

// MaximumVoltage implements the Battery interface.
func (b *LithiumIon) MaximumVoltage() float64 {
	return b.openCircuit(1) * float64(b.SeriesCells)
}

// openCircuit is the cell open circuit voltage at a state of charge.
func (b *LithiumIon) openCircuit(soc float64) float64 {
	s := clamp(soc, 0, 1)
	if b.Chemistry == LFP {
		return 2.8 + 1.6*s - 2.2*s*s + 1.4*s*s*s
	}
	return 3.0 + 2.1*s - 2.3*s*s + 1.4*s*s*s
}

func (b *LithiumIon) initialTemperature() float64 {
	if b.InitialTemperature > 0 {
		return b.InitialTemperature
	}
	return 288.15
}

var batteryArrays = []string{
	"energy", "state_of_charge", "current", "power", "voltage_open_circuit", "voltage_under_load",
	"internal_resistance", "temperature", "charge_throughput", "capacity_fade_factor",
	"resistance_growth_factor", "cycle_in_day",
}

// AppendConditions implements the Battery interface.
func (b *LithiumIon) AppendConditions(r *Record) {
	for _, name := range batteryArrays {
		r.Add(name, 1)
	}
}

// Initialize implements the Battery interface. The aging state always carries over.
func (b *LithiumIon) Initialize(r, prev *Record, soc *float64) {
	if prev != nil {
		for _, name := range []string{"capacity_fade_factor", "resistance_growth_factor", "charge_throughput", "cycle_in_day", "temperature"} {
			r.Array(name).Set(0, 0, prev.Array(name).Last()[0])
		}
	} else {
		r.Array("capacity_fade_factor").Set(0, 0, 1)
		r.Array("resistance_growth_factor").Set(0, 0, 1)
		r.Array("temperature").Set(0, 0, b.initialTemperature())
	}
	fade := r.Array("capacity_fade_factor").At(0, 0)
	Emax := b.MaximumEnergy() * fade
	E := Emax
	switch {
	case soc != nil:
		E = *soc * Emax
	case prev != nil:
		E = prev.Array("energy").Last()[0]
	}
	r.Array("energy").Set(0, 0, math.Min(E, Emax))
}

func (b *LithiumIon) packResistance(growth float64) float64 {
	return b.Cell.Resistance * growth * float64(b.SeriesCells) / float64(b.ParallelCells)
}

// EnergyCalc implements the Battery interface.
func (b *LithiumIon) EnergyCalc(seg *Segment, bus *Bus, discharge bool) error {
	if b.SeriesCells <= 0 || b.ParallelCells <= 0 {
		return configErrorf(b.Name, "series and parallel cell counts must be positive")
	}
	c := seg.State.Conditions
	br := c.Energy.Child(bus.Tag())
	r := br.Child(b.Name)
	n := r.Rows()
	fade := r.Array("capacity_fade_factor").At(0, 0)
	growth := r.Array("resistance_growth_factor").At(0, 0)
	r.Array("capacity_fade_factor").Fill(fade)
	r.Array("resistance_growth_factor").Fill(growth)
	r.Array("cycle_in_day").Fill(r.Array("cycle_in_day").At(0, 0))
	Emax := b.MaximumEnergy() * fade
	R := b.packResistance(growth)
	i := br.Array("current").Col(0)
	t := c.Frames.Inertial.Time.Col(0)

	E := r.Array("energy")
	E0 := E.At(0, 0)
	if discharge {
		// Chemical power is the bus power plus the resistive losses.
		P := br.Array("power_draw").Col(0)
		for k := range P {
			P[k] += i[k] * i[k] * R
		}
		used := seg.State.integrate(P)
		for k := 0; k < n; k++ {
			E.Set(k, 0, math.Min(E0-used[k], Emax))
		}
	} else {
		// Charging marches the open circuit voltage along with the energy.
		for k := 1; k < n; k++ {
			Voc := b.openCircuit(E.At(k-1, 0)/Emax) * float64(b.SeriesCells)
			E.Set(k, 0, math.Min(E.At(k-1, 0)-Voc*i[k-1]*(t[k]-t[k-1]), Emax))
		}
	}

	soc, voc, vul := r.Array("state_of_charge"), r.Array("voltage_open_circuit"), r.Array("voltage_under_load")
	for k := 0; k < n; k++ {
		s := E.At(k, 0) / Emax
		Voc := b.openCircuit(s) * float64(b.SeriesCells)
		soc.Set(k, 0, s)
		voc.Set(k, 0, Voc)
		vul.Set(k, 0, Voc-i[k]*R)
		r.Array("current").Set(k, 0, i[k])
		r.Array("power").Set(k, 0, vul.At(k, 0)*i[k])
		r.Array("internal_resistance").Set(k, 0, R)
	}

	// Lumped thermal model and charge throughput, per cell.
	cellCurrent := make([]float64, n)
	for k := range cellCurrent {
		cellCurrent[k] = i[k] / float64(b.ParallelCells)
	}
	T := r.Array("temperature")
	Q := r.Array("charge_throughput")
	cellR := b.Cell.Resistance * growth
	heatCapacity := b.Cell.Mass * b.Cell.SpecificHeat
	cells := float64(b.SeriesCells * b.ParallelCells)
	// The cooling channel, if any, takes its share of the heat of every cell.
	var turndown, removed *Array
	if bus.Cooling != nil {
		cr := br.Child(bus.Cooling.Tag())
		turndown, removed = cr.Array("turndown_ratio"), cr.Array("heat_removed")
	}
	for k := 1; k < n; k++ {
		dt := t[k] - t[k-1]
		Tk := T.At(k-1, 0)
		if heatCapacity > 0 {
			ambient := c.Freestream.Temperature.At(k-1, 0)
			heat := cellCurrent[k-1]*cellCurrent[k-1]*cellR - b.Cell.HeatTransferCoefficient*b.Cell.SurfaceArea*(Tk-ambient)
			if removed != nil {
				q := bus.Cooling.heatRemoved(turndown.At(k-1, 0), Tk)
				removed.Set(k-1, 0, q)
				heat -= q / cells
			}
			Tk += dt * heat / heatCapacity
		}
		T.Set(k, 0, Tk)
		Q.Set(k, 0, Q.At(k-1, 0)+math.Abs(cellCurrent[k-1])*dt/3600)
	}
	if removed != nil {
		removed.Set(n-1, 0, bus.Cooling.heatRemoved(turndown.At(n-1, 0), T.At(n-1, 0)))
	}
	return nil
}

// ComputeVoltage implements the Battery interface.
func (b *LithiumIon) ComputeVoltage(r *Record) []float64 {
	return r.Array("voltage_under_load").Col(0)
}

// UpdateAge implements the Battery interface. NMC cells follow the Schmalstieg calendar and
// cycle aging model in days and ampere-hours of throughput. The segment was solved with the
// factors it inherited; the aged ones ramp in over its control points so that row 0 keeps
// the inherited state and the last row hands the aged state to the next segment. Energy is
// capped again and the state of charge recomputed against the ramped capacity.
func (b *LithiumIon) UpdateAge(seg *Segment, bus *Bus, incrementDay bool) error {
	r := seg.State.Conditions.Energy.Child(bus.Tag()).Child(b.Name)
	n := r.Rows()
	day := r.Array("cycle_in_day")
	if incrementDay {
		first := 1
		if n == 1 {
			first = 0
		}
		for k := first; k < n; k++ {
			day.Set(k, 0, day.At(0, 0)+1)
		}
	}
	if b.Chemistry != NMC || n < 2 {
		return nil
	}
	soc := r.Array("state_of_charge").Col(0)
	Vcell := r.Array("voltage_open_circuit").Col(0)
	floats.Scale(1/float64(b.SeriesCells), Vcell)
	V := floats.Sum(Vcell) / float64(len(Vcell))
	T := floats.Sum(r.Array("temperature").Col(0)) / float64(n)
	DOD := floats.Max(soc) - floats.Min(soc)
	Q := r.Array("charge_throughput").Last()[0]
	t := day.Last()[0]

	αcap := (7.542*V - 23.75) * 1e6 * math.Exp(-6976/T)
	αres := (5.270*V - 16.32) * 1e5 * math.Exp(-5986/T)
	βcap := 7.348e-3*(V-3.667)*(V-3.667) + 7.6e-4 + 4.081e-3*DOD
	βres := 2.153e-4*(V-3.725)*(V-3.725) - 1.521e-5 + 2.798e-4*DOD
	fadeArr, growthArr := r.Array("capacity_fade_factor"), r.Array("resistance_growth_factor")
	fade0, growth0 := fadeArr.At(0, 0), growthArr.At(0, 0)
	// Aging never reverses.
	fade := math.Min(fade0, clamp(1-αcap*math.Pow(t, 0.75)-βcap*math.Sqrt(Q), 0, 1))
	growth := math.Max(growth0, 1+αres*math.Pow(t, 0.75)+βres*Q)

	ts := seg.State.Conditions.Frames.Inertial.Time.Col(0)
	span := ts[n-1] - ts[0]
	E, socArr := r.Array("energy"), r.Array("state_of_charge")
	for k := 1; k < n; k++ {
		τ := 1.
		if span > 0 && k < n-1 {
			τ = (ts[k] - ts[0]) / span
		}
		fk := fade0 + τ*(fade-fade0)
		fadeArr.Set(k, 0, fk)
		growthArr.Set(k, 0, growth0+τ*(growth-growth0))
		Emax := b.MaximumEnergy() * fk
		Ek := math.Min(E.At(k, 0), Emax)
		E.Set(k, 0, Ek)
		socArr.Set(k, 0, Ek/Emax)
	}
	level.Debug(seg.logger).Log("subsys", "battery", "segment", seg.Tag, "battery", b.Name,
		"day", t, "capacity_fade", fade, "resistance_growth", growth)
	return nil
}
