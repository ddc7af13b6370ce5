package amp

// Vehicle is the aircraft a mission flies.
type Vehicle struct {
	Tag             string
	TakeoffMass     float64    // kg
	ReferenceArea   float64    // m²
	CenterOfGravity [3]float64 // m, body frame
	Network         *Network
}

// Analyses are the models a segment evaluates its conditions with.
type Analyses struct {
	Vehicle      *Vehicle
	Atmosphere   Atmosphere
	Planet       *Planet
	Aerodynamics AerodynamicModel
	Energy       *Network
	Noise        *NoiseAnalysis // optional
	Emissions    *Emissions     // optional
}

// NewAnalyses returns the analyses of a vehicle in the 1976 standard atmosphere on Earth.
func NewAnalyses(v *Vehicle, aero AerodynamicModel) *Analyses {
	return &Analyses{
		Vehicle:      v,
		Atmosphere:   &US1976{},
		Planet:       Earth,
		Aerodynamics: aero,
		Energy:       v.Network,
	}
}
