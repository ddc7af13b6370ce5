package amp

import (
	"math"

	"gonum.org/v1/gonum/integrate"
)

// CombustionSource is a propulsor with a combustor whose inlet state sets its NOx emissions.
type CombustionSource interface {
	CombustorInlet(r *Record) (Tt, Pt *Array)
}

// Emissions computes the emission indices of the burned fuel and their totals over the
// segment. Indices are kg of species per kg of fuel.
type Emissions struct {
	CO2 float64
	H2O float64
	SO2 float64
}

// NewEmissions returns the indices of kerosene.
func NewEmissions() *Emissions {
	return &Emissions{CO2: 3.16, H2O: 1.23, SO2: 0.0012}
}

// nitrogenOxidesIndex is the P3-T3 NOx emission index, kg/kg, from the combustor inlet
// stagnation temperature (K) and pressure (Pa).
func nitrogenOxidesIndex(T3, P3 float64) float64 {
	if T3 <= 0 || P3 <= 0 {
		return 0
	}
	return 32e-3 * math.Pow(P3/2.965e6, 0.4) * math.Exp((T3-826)/194)
}

// Evaluate writes the species mass rates and cumulated totals under conditions.emissions.
func (e *Emissions) Evaluate(seg *Segment) error {
	net := seg.Analyses.Energy
	if net == nil {
		return nil
	}
	c := seg.State.Conditions
	rows := c.Rows()
	species := []struct {
		name  string
		index float64
	}{{"CO2", e.CO2}, {"H2O", e.H2O}, {"SO2", e.SO2}}

	rates := make(map[string][]float64, len(species)+1)
	for _, s := range species {
		rates[s.name] = make([]float64, rows)
	}
	nox := make([]float64, rows)
	for _, d := range net.Distributors {
		line, ok := d.(*FuelLine)
		if !ok || line.Inactive {
			continue
		}
		for _, p := range line.Propulsors {
			if !p.IsActive() {
				continue
			}
			pr := c.Energy.Child(line.Name).Child(p.Tag())
			ff := pr.Array("fuel_flow_rate")
			var T3, P3 *Array
			if src, ok := p.(CombustionSource); ok {
				T3, P3 = src.CombustorInlet(pr)
			}
			for i := 0; i < rows; i++ {
				for _, s := range species {
					rates[s.name][i] += s.index * ff.At(i, 0)
				}
				if T3 != nil {
					nox[i] += nitrogenOxidesIndex(T3.At(i, 0), P3.At(i, 0)) * ff.At(i, 0)
				}
			}
		}
	}
	rates["NOx"] = nox

	t := c.Frames.Inertial.Time.Col(0)
	for _, name := range []string{"CO2", "H2O", "SO2", "NOx"} {
		c.Emissions.Add(name+"_rate", 1).SetCol(0, rates[name])
		total := c.Emissions.Add(name+"_total", 1)
		total.Fill(0)
		if rows < 2 {
			continue
		}
		for i := 1; i < rows; i++ {
			total.Set(i, 0, integrate.Trapezoidal(t[:i+1], rates[name][:i+1]))
		}
	}
	return nil
}
