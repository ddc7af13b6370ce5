package amp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// vehicleFile is the YAML layout of a vehicle definition.
type vehicleFile struct {
	Tag             string        `yaml:"tag"`
	TakeoffMass     float64       `yaml:"takeoff_mass"`
	ReferenceArea   float64       `yaml:"reference_area"`
	CenterOfGravity [3]float64    `yaml:"center_of_gravity"`
	Aerodynamics    dragPolarFile `yaml:"aerodynamics"`
	Network         networkFile   `yaml:"network"`
}

type dragPolarFile struct {
	LiftSlope          float64 `yaml:"lift_slope"`
	ZeroLiftAngleDeg   float64 `yaml:"zero_lift_angle_deg"`
	ZeroLiftDrag       float64 `yaml:"zero_lift_drag"`
	InducedDragFactor  float64 `yaml:"induced_drag_factor"`
	MaxLiftCoefficient float64 `yaml:"max_lift_coefficient"`
}

type networkFile struct {
	Tag          string            `yaml:"tag"`
	Parallel     bool              `yaml:"parallel"`
	Distributors []distributorFile `yaml:"distributors"`
}

type distributorFile struct {
	Tag                 string          `yaml:"tag"`
	Kind                string          `yaml:"kind"` // fuel_line or bus
	Inactive            bool            `yaml:"inactive"`
	IdenticalPropulsors bool            `yaml:"identical_propulsors"`
	FuelTanks           []fuelTankFile  `yaml:"fuel_tanks"`
	Propulsors          []propulsorFile `yaml:"propulsors"`
	Battery             *batteryFile    `yaml:"battery"`
	Cooling             *coolingFile    `yaml:"cooling"`
	AvionicsPower       float64         `yaml:"avionics_power"`
	PayloadPower        float64         `yaml:"payload_power"`
}

// coolingFile is a wavy channel; unset values keep the defaults of NewWavyChannel.
type coolingFile struct {
	Tag                         string   `yaml:"tag"`
	CoolantInletTemperature     *float64 `yaml:"coolant_inlet_temperature"`
	IdealOperatingTemperature   *float64 `yaml:"ideal_operating_temperature"`
	DesignHeatRemoved           *float64 `yaml:"design_heat_removed"`
	DesignTemperatureDifference *float64 `yaml:"design_temperature_difference"`
	DesignPumpPower             *float64 `yaml:"design_pump_power"`
}

func (cf coolingFile) build() *WavyChannel {
	w := NewWavyChannel(cf.Tag)
	for _, v := range []struct {
		src *float64
		dst *float64
	}{
		{cf.CoolantInletTemperature, &w.CoolantInletTemperature},
		{cf.IdealOperatingTemperature, &w.IdealOperatingTemperature},
		{cf.DesignHeatRemoved, &w.DesignHeatRemoved},
		{cf.DesignTemperatureDifference, &w.DesignTemperatureDifference},
		{cf.DesignPumpPower, &w.DesignPumpPower},
	} {
		if v.src != nil {
			*v.dst = *v.src
		}
	}
	return w
}

type fuelTankFile struct {
	Tag               string  `yaml:"tag"`
	FuelSelectorRatio float64 `yaml:"fuel_selector_ratio"`
	SecondaryFuelFlow float64 `yaml:"secondary_fuel_flow"`
	FuelMass          float64 `yaml:"fuel_mass"`
}

type propulsorFile struct {
	Tag                string     `yaml:"tag"`
	Kind               string     `yaml:"kind"` // turbojet, turboprop or electric_rotor
	Inactive           bool       `yaml:"inactive"`
	Origin             [3]float64 `yaml:"origin"`
	ThrustAngleDeg     *float64   `yaml:"thrust_angle_deg"`
	FuelTanks          []string   `yaml:"fuel_tanks"`
	DesignMassFlowRate float64    `yaml:"design_mass_flow_rate"`
	OfftakePower       float64    `yaml:"offtake_power"`
	// DesignThrust, when set, sizes the core at DesignAltitude and DesignMach and
	// overrides DesignMassFlowRate.
	DesignThrust   float64 `yaml:"design_thrust"`
	DesignAltitude float64 `yaml:"design_altitude"`
	DesignMach     float64 `yaml:"design_mach"`
	Radius             float64    `yaml:"radius"`
	SpeedConstant      float64    `yaml:"speed_constant"`
	Resistance         float64    `yaml:"resistance"`
	Blades             int        `yaml:"blades"`
}

type batteryFile struct {
	Tag           string  `yaml:"tag"`
	Chemistry     string  `yaml:"chemistry"`
	SeriesCells   int     `yaml:"series_cells"`
	ParallelCells int     `yaml:"parallel_cells"`
	Cell          *Cell   `yaml:"cell"`
	Temperature   float64 `yaml:"initial_temperature"`
}

// LoadVehicle reads a vehicle, its drag polar and its energy network from a YAML file.
func LoadVehicle(path string) (*Vehicle, *DragPolar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read vehicle: %w", err)
	}
	return ParseVehicle(data)
}

// ParseVehicle builds a vehicle from its YAML definition.
func ParseVehicle(data []byte) (*Vehicle, *DragPolar, error) {
	var vf vehicleFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse vehicle: %w", err)
	}
	if vf.TakeoffMass <= 0 || vf.ReferenceArea <= 0 {
		return nil, nil, configErrorf("vehicle."+vf.Tag, "takeoff_mass and reference_area must be positive")
	}
	net := &Network{Tag: vf.Network.Tag, Parallel: vf.Network.Parallel || ampConfig().ParallelNetwork}
	for _, df := range vf.Network.Distributors {
		d, err := df.build()
		if err != nil {
			return nil, nil, err
		}
		net.Distributors = append(net.Distributors, d)
	}
	a := vf.Aerodynamics
	polar := &DragPolar{
		LiftSlope:          a.LiftSlope,
		ZeroLiftAngle:      Deg2rad(a.ZeroLiftAngleDeg),
		ZeroLiftDrag:       a.ZeroLiftDrag,
		InducedDragFactor:  a.InducedDragFactor,
		MaxLiftCoefficient: a.MaxLiftCoefficient,
	}
	v := &Vehicle{
		Tag:             vf.Tag,
		TakeoffMass:     vf.TakeoffMass,
		ReferenceArea:   vf.ReferenceArea,
		CenterOfGravity: vf.CenterOfGravity,
		Network:         net,
	}
	return v, polar, nil
}

func (df distributorFile) build() (Distributor, error) {
	field := "network." + df.Tag
	switch df.Kind {
	case "fuel_line":
		l := &FuelLine{Name: df.Tag, Inactive: df.Inactive, IdenticalPropulsors: df.IdenticalPropulsors}
		for _, t := range df.FuelTanks {
			l.FuelTanks = append(l.FuelTanks, &FuelTank{Name: t.Tag, FuelSelectorRatio: t.FuelSelectorRatio,
				SecondaryFuelFlow: t.SecondaryFuelFlow, FuelMass: t.FuelMass})
		}
		for _, pf := range df.Propulsors {
			p, err := pf.fuelPropulsor(field)
			if err != nil {
				return nil, err
			}
			l.Propulsors = append(l.Propulsors, p)
		}
		return l, nil
	case "bus":
		if df.Battery == nil {
			return nil, configErrorf(field, "a bus needs a battery")
		}
		chem, err := ChemistryFromString(df.Battery.Chemistry)
		if err != nil {
			return nil, configErrorf(field+".battery", "%s", err)
		}
		batt := NewLithiumIon(df.Battery.Tag, chem, df.Battery.SeriesCells, df.Battery.ParallelCells)
		if df.Battery.Cell != nil {
			batt.Cell = *df.Battery.Cell
		}
		batt.InitialTemperature = df.Battery.Temperature
		b := &Bus{Name: df.Tag, Inactive: df.Inactive, IdenticalPropulsors: df.IdenticalPropulsors, Battery: batt,
			AvionicsPower: df.AvionicsPower, PayloadPower: df.PayloadPower}
		if df.Cooling != nil {
			b.Cooling = df.Cooling.build()
		}
		for _, pf := range df.Propulsors {
			if pf.Kind != "electric_rotor" {
				return nil, configErrorf(field+"."+pf.Tag, "a bus cannot feed a %s", pf.Kind)
			}
			p := NewElectricRotor(pf.Tag, pf.Radius, pf.SpeedConstant, pf.Resistance)
			p.Inactive, p.Origin = pf.Inactive, pf.Origin
			if pf.Blades > 0 {
				p.Rotor.Blades = pf.Blades
			}
			if pf.ThrustAngleDeg != nil {
				p.Rotor.ThrustAngle = Deg2rad(*pf.ThrustAngleDeg)
			}
			b.Propulsors = append(b.Propulsors, p)
		}
		return b, nil
	}
	return nil, configErrorf(field, "unknown distributor kind '%s'", df.Kind)
}

func (pf propulsorFile) fuelPropulsor(field string) (FuelPropulsor, error) {
	angle := 0.
	if pf.ThrustAngleDeg != nil {
		angle = Deg2rad(*pf.ThrustAngleDeg)
	}
	switch pf.Kind {
	case "turbojet":
		p := NewTurbojet(pf.Tag, pf.DesignMassFlowRate)
		p.Inactive, p.Origin, p.ThrustAngle, p.ActiveFuelTanks = pf.Inactive, pf.Origin, angle, pf.FuelTanks
		if pf.OfftakePower > 0 {
			p.Offtake = &ShaftPowerOfftake{Power: pf.OfftakePower}
		}
		if pf.DesignThrust > 0 {
			if err := p.SizeCore(pf.DesignThrust, pf.DesignAltitude, pf.DesignMach); err != nil {
				return nil, configErrorf(field+"."+pf.Tag, "%s", err)
			}
		}
		return p, nil
	case "turboprop":
		p := NewTurboprop(pf.Tag, pf.DesignMassFlowRate)
		p.Inactive, p.Origin, p.ThrustAngle, p.ActiveFuelTanks = pf.Inactive, pf.Origin, angle, pf.FuelTanks
		if pf.DesignThrust > 0 {
			if err := p.SizeCore(pf.DesignThrust, pf.DesignAltitude, pf.DesignMach); err != nil {
				return nil, configErrorf(field+"."+pf.Tag, "%s", err)
			}
		}
		return p, nil
	}
	return nil, configErrorf(field+"."+pf.Tag, "a fuel line cannot feed a %s", pf.Kind)
}
