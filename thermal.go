package amp

import "math"

// WavyChannel is a liquid-cooled wavy channel wrapped around the cells of a bus battery.
// At full turndown it removes DesignHeatRemoved watts from the pack when the cells sit
// DesignTemperatureDifference above the coolant inlet; the heat removed scales with the
// turndown ratio and with that temperature difference. Its pump draws from the bus.
//
// While the bus discharges, the turndown ratio of every control point is solved so that
// the battery holds IdealOperatingTemperature from the second control point on.
type WavyChannel struct {
	Name                        string
	CoolantInletTemperature     float64 // K
	IdealOperatingTemperature   float64 // K
	DesignHeatRemoved           float64 // W
	DesignTemperatureDifference float64 // K
	DesignPumpPower             float64 // W, at full turndown
	// InitialTurndownRatio is the solver guess.
	InitialTurndownRatio float64
}

// NewWavyChannel returns a channel fed with coolant at 278.15 K that keeps its battery at
// 313.15 K.
func NewWavyChannel(name string) *WavyChannel {
	return &WavyChannel{
		Name:                        name,
		CoolantInletTemperature:     278.15,
		IdealOperatingTemperature:   313.15,
		DesignHeatRemoved:           5000,
		DesignTemperatureDifference: 20,
		DesignPumpPower:             200,
		InitialTurndownRatio:        0.5,
	}
}

// Tag is the name of the channel record under its bus.
func (w *WavyChannel) Tag() string { return w.Name }

// Validate checks that the channel can move the battery towards its ideal temperature.
func (w *WavyChannel) Validate() error {
	switch {
	case w.DesignHeatRemoved <= 0 || w.DesignTemperatureDifference <= 0:
		return configErrorf(w.Name, "design heat removed and temperature difference must be positive")
	case w.DesignPumpPower < 0:
		return configErrorf(w.Name, "pump power cannot be negative")
	case w.CoolantInletTemperature <= 0 || w.IdealOperatingTemperature <= w.CoolantInletTemperature:
		return configErrorf(w.Name, "the ideal operating temperature must be above the coolant inlet")
	}
	return nil
}

// AppendConditions adds the channel arrays.
func (w *WavyChannel) AppendConditions(r *Record) {
	for _, name := range []string{"turndown_ratio", "heat_removed", "pump_power"} {
		r.Add(name, 1)
	}
}

// heatRemoved is the heat taken from the pack, W, at a turndown ratio and a battery
// temperature, K. A negative value warms the pack.
func (w *WavyChannel) heatRemoved(turndown, T float64) float64 {
	return turndown * w.DesignHeatRemoved / w.DesignTemperatureDifference * (T - w.CoolantInletTemperature)
}

// pumpPower follows the pump affinity law: power grows with the cube of the flow.
func (w *WavyChannel) pumpPower(turndown float64) float64 {
	t := math.Abs(turndown)
	return w.DesignPumpPower * t * t * t
}

// temperatureResiduals holds the battery temperature of control point k+1 at the ideal
// one; row k+1 is the first the turndown of row k acts on. The last turndown acts on no
// control point and is held at the one before it.
func (w *WavyChannel) temperatureResiduals(T, turndown []float64, res *Array) {
	n := len(T)
	for k := 0; k < n-1; k++ {
		res.Set(k, 0, (T[k+1]-w.IdealOperatingTemperature)/w.IdealOperatingTemperature)
	}
	switch {
	case n == 1:
		res.Set(0, 0, turndown[0])
	case n > 1:
		res.Set(n-1, 0, turndown[n-1]-turndown[n-2])
	}
}
