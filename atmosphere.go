package amp

import (
	"fmt"
	"math"
)

// AtmosphereProperties is the air state at one altitude.
type AtmosphereProperties struct {
	Pressure         float64 // Pa
	Temperature      float64 // K
	Density          float64 // kg/m³
	SpeedOfSound     float64 // m/s
	DynamicViscosity float64 // Pa·s
	Gamma            float64
	Cp               float64 // J/(kg·K)
	GasConstant      float64 // J/(kg·K)
}

// Atmosphere returns the air state at a geometric altitude in meters.
type Atmosphere interface {
	Compute(altitude float64) (AtmosphereProperties, error)
}

const (
	airGasConstant   = 287.0528742
	airGamma         = 1.4
	standardGravity  = 9.80665
	earthRadius1976  = 6356766.
	sutherlandConst  = 110.4
	sutherlandFactor = 1.458e-6
)

type atmosphereLayer struct {
	base, temperature, lapse, pressure float64
}

// Geopotential base altitudes, temperatures and lapse rates of the 1976 standard atmosphere.
var us1976Layers = func() []atmosphereLayer {
	layers := []atmosphereLayer{
		{0, 288.15, -0.0065, 101325},
		{11000, 216.65, 0, 0},
		{20000, 216.65, 0.001, 0},
		{32000, 228.65, 0.0028, 0},
		{47000, 270.65, 0, 0},
		{51000, 270.65, -0.0028, 0},
		{71000, 214.65, -0.002, 0},
		{84852, 186.946, 0, 0},
	}
	for i := 1; i < len(layers); i++ {
		prev := layers[i-1]
		layers[i].pressure = layerPressure(prev, layers[i].base)
	}
	return layers
}()

func layerPressure(l atmosphereLayer, h float64) float64 {
	if l.lapse == 0 {
		return l.pressure * math.Exp(-standardGravity*(h-l.base)/(airGasConstant*l.temperature))
	}
	T := l.temperature + l.lapse*(h-l.base)
	return l.pressure * math.Pow(T/l.temperature, -standardGravity/(airGasConstant*l.lapse))
}

// US1976 is the 1976 U.S. Standard Atmosphere up to 86 km, with an optional uniform
// temperature offset.
type US1976 struct {
	TemperatureDeviation float64 // K
}

// Compute implements Atmosphere.
func (a *US1976) Compute(z float64) (AtmosphereProperties, error) {
	if math.IsNaN(z) {
		return AtmosphereProperties{}, fmt.Errorf("atmosphere: altitude is NaN")
	}
	h := earthRadius1976 * z / (earthRadius1976 + z)
	last := us1976Layers[len(us1976Layers)-1]
	if h > last.base {
		return AtmosphereProperties{}, fmt.Errorf("atmosphere: altitude %.0f m above the model ceiling", z)
	}
	layer := us1976Layers[0]
	for _, l := range us1976Layers[1:] {
		if h < l.base {
			break
		}
		layer = l
	}
	p := layerPressure(layer, h)
	T := layer.temperature + layer.lapse*(h-layer.base) + a.TemperatureDeviation
	return AtmosphereProperties{
		Pressure:         p,
		Temperature:      T,
		Density:          p / (airGasConstant * T),
		SpeedOfSound:     math.Sqrt(airGamma * airGasConstant * T),
		DynamicViscosity: sutherlandFactor * math.Pow(T, 1.5) / (T + sutherlandConst),
		Gamma:            airGamma,
		Cp:               airGamma * airGasConstant / (airGamma - 1),
		GasConstant:      airGasConstant,
	}, nil
}
