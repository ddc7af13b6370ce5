package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/spf13/viper"
	"github.com/ssankalp26/amp"
)

// This code only reads the scenario file and flies the mission.

const defaultScenario = "~~unset~~"

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "mission scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "really verbose (esp. for configuration)")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("./%s.toml: Error %s", scenario, err)
	}

	vehiclePath := viper.GetString("mission.vehicle")
	vehicle, polar, err := amp.LoadVehicle(vehiclePath)
	if err != nil {
		log.Fatalf("%s: %s", vehiclePath, err)
	}
	analyses := amp.NewAnalyses(vehicle, polar)
	if viper.GetBool("mission.noise") {
		analyses.Noise = amp.NewNoiseAnalysis(0)
	}
	if viper.GetBool("mission.emissions") {
		analyses.Emissions = amp.NewEmissions()
	}

	var segments []amp.Leg
	for segNo := 0; viper.IsSet(fmt.Sprintf("segments.%d", segNo)); segNo++ {
		seg, err := readSegment(fmt.Sprintf("segments.%d", segNo), analyses)
		if err != nil {
			log.Fatalf("segments.%d: %s", segNo, err)
		}
		if verbose {
			log.Printf("[conf] added segment %s", seg.Base().Tag)
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		log.Fatal("no segments in scenario")
	}

	conf := amp.ExportConfig{
		Filename:  viper.GetString("export.filename"),
		AsCSV:     viper.GetBool("export.csv"),
		Snapshot:  viper.GetBool("export.snapshot"),
		Timestamp: viper.GetBool("export.timestamp"),
	}
	if conf.Filename == "" {
		conf.Filename = scenario
	}
	m := amp.NewMission(viper.GetString("mission.name"), conf, segments...)
	logger := amp.NewConfiguredLogger()
	m.SetLogger(logger)
	if analyses.Noise != nil {
		m.Noise = analyses.Noise
	}
	res, err := m.Evaluate(context.Background())
	if err != nil {
		level.Error(logger).Log("subsys", "mission", "run", res.RunID, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("subsys", "mission", "run", res.RunID, "status", "finished", "segments", len(res.Segments))
}

// optional returns a pointer to the value at key, or nil when the key is not set so that
// the segment inherits it.
func optional(key string) *float64 {
	if !viper.IsSet(key) {
		return nil
	}
	return amp.Float(viper.GetFloat64(key))
}

func readSegment(key string, analyses *amp.Analyses) (amp.Leg, error) {
	tag := viper.GetString(key + ".tag")
	get := func(name string) float64 { return viper.GetFloat64(key + "." + name) }
	var leg amp.Leg
	switch kind := viper.GetString(key + ".kind"); kind {
	case "single_point":
		s := amp.NewSetSpeedSetThrottle(tag, analyses)
		s.Altitude = optional(key + ".altitude")
		s.AirSpeed = get("air_speed")
		s.ZAccel = get("z_accel")
		if viper.IsSet(key + ".throttle") {
			s.Controls.Throttle = amp.Fixed(get("throttle"))
		}
		leg = s
	case "climb":
		s := amp.NewClimbConstantMachConstantAngle(tag, analyses)
		s.AltitudeStart = optional(key + ".altitude_start")
		s.AltitudeEnd = get("altitude_end")
		s.MachNumber = optional(key + ".mach_number")
		s.ClimbAngle = amp.Deg2rad(get("climb_angle_deg"))
		leg = s
	case "cruise":
		s := amp.NewCruiseConstantSpeedConstantAltitude(tag, analyses)
		s.Altitude = optional(key + ".altitude")
		s.AirSpeed = get("air_speed")
		s.Distance = get("distance")
		leg = s
	case "hover":
		s := amp.NewHoverClimb(tag, analyses)
		s.AltitudeStart = optional(key + ".altitude_start")
		s.AltitudeEnd = get("altitude_end")
		s.ClimbRate = get("climb_rate")
		s.Time = get("time")
		leg = s
	case "recharge":
		s := amp.NewBatteryRecharge(tag, analyses)
		s.Altitude = optional(key + ".altitude")
		s.Current = get("current")
		s.Time = get("time")
		leg = s
	default:
		return nil, fmt.Errorf("unknown segment kind '%s'", kind)
	}
	seg := leg.Base()
	seg.BatteryStateOfCharge = optional(key + ".state_of_charge")
	seg.IncrementBatteryCycleDay = viper.GetBool(key + ".new_day")
	if viper.IsSet(key + ".control_points") {
		seg.State.Numerics.NumberOfControlPoints = viper.GetInt(key + ".control_points")
	}
	return leg, nil
}
