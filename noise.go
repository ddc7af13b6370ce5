package amp

import (
	"math"
	"sync/atomic"

	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
)

// RotorNoiseSource is a propulsor whose noise is dominated by a rotor.
type RotorNoiseSource interface {
	RotorSource(r *Record, i int) (power, diameter, tipMach float64, blades int)
}

// JetNoiseSource is a propulsor whose noise is dominated by its exhaust jet.
type JetNoiseSource interface {
	JetExhaust(r *Record, i int) (mdot, Ue, ρe float64)
}

const (
	referenceIntensity = 1e-12 // W/m²
	lighthillConstant  = 3e-5
)

type noiseKind uint8

const (
	rotorNoise noiseKind = iota + 1
	jetNoise
)

// noiseKey is a source state quantized to four significant digits.
type noiseKey struct {
	kind       noiseKind
	a, b, c, d int64
}

func quantize(v float64) int64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	exp := math.Floor(math.Log10(math.Abs(v)))
	return int64(math.Round(v/math.Pow(10, exp-3))) + int64(exp)<<20
}

// NoiseAnalysis computes the sound pressure level of every propulsor at an observer on the
// ground right below the aircraft. Source levels at one meter are kept in an LRU surrogate
// that consecutive segments share.
type NoiseAnalysis struct {
	surrogate    *lru.Cache[noiseKey, float64]
	hits, misses atomic.Int64
}

// NewNoiseAnalysis returns a noise analysis whose surrogate holds size source states. A
// non-positive size uses the configured one.
func NewNoiseAnalysis(size int) *NoiseAnalysis {
	if size <= 0 {
		size = ampConfig().SurrogateSize
	}
	cache, err := lru.New[noiseKey, float64](size)
	if err != nil {
		panic(err)
	}
	return &NoiseAnalysis{surrogate: cache}
}

// Stats returns the surrogate hits and misses so far.
func (n *NoiseAnalysis) Stats() (hits, misses int64) {
	return n.hits.Load(), n.misses.Load()
}

func (n *NoiseAnalysis) level(k noiseKey, compute func() float64) float64 {
	if L, ok := n.surrogate.Get(k); ok {
		n.hits.Add(1)
		return L
	}
	n.misses.Add(1)
	L := compute()
	n.surrogate.Add(k, L)
	return L
}

// rotorLevel is the Hamilton Standard sound pressure level one meter away.
func (n *NoiseAnalysis) rotorLevel(P, D, Mt float64, B int) float64 {
	if P <= 0 || D <= 0 {
		return math.Inf(-1)
	}
	k := noiseKey{rotorNoise, quantize(P), quantize(D), quantize(Mt), int64(B)}
	return n.level(k, func() float64 {
		return 83.4 + 15.3*math.Log10(P/1000) - 20*math.Log10(D) + 38.5*Mt - 3*float64(B-2)
	})
}

// jetLevel is the Lighthill eighth power sound power level.
func (n *NoiseAnalysis) jetLevel(mdot, Ue, ρe, ρ0, a0 float64) float64 {
	if mdot <= 0 || Ue <= 0 || ρe <= 0 {
		return math.Inf(-1)
	}
	k := noiseKey{jetNoise, quantize(mdot * Ue), quantize(Ue), quantize(ρe), quantize(ρ0 * a0)}
	return n.level(k, func() float64 {
		area := mdot / (ρe * Ue)
		W := lighthillConstant * ρ0 * math.Pow(Ue, 8) * area / math.Pow(a0, 5)
		return 10 * math.Log10(W/referenceIntensity)
	})
}

// Evaluate writes the level of every active propulsor under conditions.noise[distributor]
// and the energy sum of all of them in total_SPL.
func (n *NoiseAnalysis) Evaluate(seg *Segment) error {
	net := seg.Analyses.Energy
	if net == nil {
		return nil
	}
	c := seg.State.Conditions
	rows := c.Rows()
	total := make([]float64, rows)
	for _, d := range net.Distributors {
		nr := c.Noise.EnsureChild(d.Tag())
		for _, p := range d.noiseSources() {
			pr := c.Energy.Child(d.Tag()).Child(p.Tag())
			spl := nr.Add(p.Tag(), 1)
			for i := 0; i < rows; i++ {
				r := math.Max(c.Freestream.Altitude.At(i, 0), 1)
				L := math.Inf(-1)
				switch src := p.(type) {
				case RotorNoiseSource:
					P, D, Mt, B := src.RotorSource(pr, i)
					L = n.rotorLevel(P, D, Mt, B) - 20*math.Log10(r)
				case JetNoiseSource:
					mdot, Ue, ρe := src.JetExhaust(pr, i)
					ρ0, a0 := c.Freestream.Density.At(i, 0), c.Freestream.SpeedOfSound.At(i, 0)
					L = n.jetLevel(mdot, Ue, ρe, ρ0, a0) - 10*math.Log10(2*math.Pi*r*r)
				}
				if math.IsInf(L, -1) {
					spl.Set(i, 0, 0)
					continue
				}
				spl.Set(i, 0, L)
				total[i] += math.Pow(10, L/10)
			}
		}
	}
	for i, e := range total {
		if e > 0 {
			c.Noise.TotalSPL.Set(i, 0, 10*math.Log10(e))
		} else {
			c.Noise.TotalSPL.Set(i, 0, 0)
		}
	}
	hits, misses := n.Stats()
	level.Debug(seg.logger).Log("subsys", "noise", "segment", seg.Tag, "surrogate_hits", hits, "surrogate_misses", misses)
	return nil
}
