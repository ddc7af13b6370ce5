package amp

import (
	"fmt"
	"strings"
)

// Planet is the body a mission flies over.
type Planet struct {
	Name            string
	Radius          float64 // m, mean
	SeaLevelGravity float64 // m/s²
	μ               float64 // m³/s²
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (p Planet) GM() float64 {
	return p.μ
}

// Gravity returns the gravitational acceleration at a geometric altitude.
func (p Planet) Gravity(altitude float64) float64 {
	r := p.Radius / (p.Radius + altitude)
	return p.SeaLevelGravity * r * r
}

// String implements the Stringer interface.
func (p Planet) String() string {
	return p.Name + " body"
}

// Earth is home.
var Earth = &Planet{"Earth", 6371008.8, standardGravity, 3.986004418e14}

// Mars is the red planet.
var Mars = &Planet{"Mars", 3389500, 3.72076, 4.282837e13}

// PlanetFromString returns the planet with that name.
func PlanetFromString(name string) (*Planet, error) {
	switch strings.ToLower(name) {
	case "earth", "":
		return Earth, nil
	case "mars":
		return Mars, nil
	default:
		return nil, fmt.Errorf("undefined planet '%s'", name)
	}
}
