package amp

import (
	"errors"
	"fmt"

	kitlog "github.com/go-kit/log"
)

// Control is a quantity a segment either fixes or leaves to the solver. When Solve is
// set, Value is the initial guess.
type Control struct {
	Solve bool
	Value float64
}

// Fixed returns a control held at v.
func Fixed(v float64) Control { return Control{Value: v} }

// Solved returns a control solved for, starting from guess.
func Solved(guess float64) Control { return Control{Solve: true, Value: guess} }

// Controls are the network-level decision variables of a segment.
type Controls struct {
	Throttle Control
	// Recharging runs every bus in charge mode: no propulsor is evaluated.
	Recharging bool
	// InitialVoltage is the guess of the bus voltage under load. Zero uses the battery
	// maximum voltage.
	InitialVoltage float64
	// InitialPowerCoefficient is the guess of every rotor power coefficient.
	InitialPowerCoefficient float64
	// ChargeCurrent is the current pushed into every battery while recharging, A.
	ChargeCurrent float64
}

// Segment is one leg of a mission. The concrete segment types embed it and assemble its
// process in their constructor.
type Segment struct {
	Tag      string
	State    *State
	Process  *Process
	Analyses *Analyses
	Solver   Solver
	Controls Controls
	// BatteryStateOfCharge is the initial charge of every battery. Nil inherits from the
	// previous segment, or starts full.
	BatteryStateOfCharge *float64
	// IncrementBatteryCycleDay counts this segment as the start of a new day of battery use.
	IncrementBatteryCycleDay bool
	// Convergence is the outcome of the last solve.
	Convergence Convergence

	logger      kitlog.Logger
	networkDone bool
}

// NewSegment returns a segment with the default process. Every slot that depends on the
// segment type is Skip.
func NewSegment(tag string, analyses *Analyses) *Segment {
	s := &Segment{
		Tag:      tag,
		State:    NewState(),
		Process:  NewProcess(),
		Analyses: analyses,
		Solver:   DefaultSolver(),
		Controls: Controls{Throttle: Solved(0.5), InitialPowerCoefficient: 0.04},
		logger:   kitlog.NewNopLogger(),
	}
	p := s.Process
	p.Set("initialize.expand_state", StageFunc(expandState))
	p.Set("initialize.differentials", StageFunc(initializeDifferentials))
	p.Set("initialize.conditions", Skip)
	p.Set("converge", StageFunc(converge))

	p.Set("iterate.initials.time", StageFunc(initialTime))
	p.Set("iterate.initials.weights", StageFunc(initialWeights))
	p.Set("iterate.initials.inertial_position", StageFunc(initialPosition))
	p.Set("iterate.initials.energy", StageFunc(initialEnergy))

	p.Set("iterate.unknowns.mission", Skip)
	p.Set("iterate.unknowns.network", Skip)

	p.Set("iterate.conditions.differentials", Skip)
	p.Set("iterate.conditions.acceleration", StageFunc(updateAcceleration))
	p.Set("iterate.conditions.altitude", StageFunc(updateAltitude))
	p.Set("iterate.conditions.atmosphere", StageFunc(updateAtmosphere))
	p.Set("iterate.conditions.gravity", StageFunc(updateGravity))
	p.Set("iterate.conditions.freestream", StageFunc(updateFreestream))
	p.Set("iterate.conditions.orientations", StageFunc(updateOrientations))
	p.Set("iterate.conditions.energy", StageFunc(updateEnergy))
	p.Set("iterate.conditions.aerodynamics", StageFunc(updateAerodynamics))
	p.Set("iterate.conditions.weights", StageFunc(updateWeights))
	p.Set("iterate.conditions.forces", StageFunc(updateForces))

	p.Set("iterate.residuals.total_forces", Skip)
	p.Set("iterate.residuals.network", Skip)

	p.Set("post_process.inertial_position", StageFunc(updateRange))
	p.Set("post_process.energy", StageFunc(updateBatteryAge))
	p.Set("post_process.emissions", StageFunc(updateEmissions))
	p.Set("post_process.noise", StageFunc(updateNoise))
	return s
}

// Base returns the segment itself; concrete segment types inherit it.
func (s *Segment) Base() *Segment {
	return s
}

// SetLogger sets the logger of the segment.
func (s *Segment) SetLogger(l kitlog.Logger) {
	s.logger = l
}

// Evaluate initializes the segment, solves it and post-processes the converged state.
// Configuration errors, including a missing condition, are returned as *ConfigError;
// a solve that hits the iteration cap returns a *ConvergenceError.
func (s *Segment) Evaluate() (err error) {
	defer recoverConfigError(&err, s.Tag)
	if err := s.checkAnalyses(); err != nil {
		return err
	}
	if err := s.setupNetwork(); err != nil {
		return err
	}
	for _, step := range []string{"initialize", "converge", "post_process"} {
		if err := s.Process.Run(step, s); err != nil {
			return s.tagError(err)
		}
	}
	return nil
}

// checkAnalyses rejects analyses missing a model every segment evaluates.
func (s *Segment) checkAnalyses() error {
	a := s.Analyses
	switch {
	case a == nil || a.Vehicle == nil:
		return &ConfigError{Segment: s.Tag, Field: "analyses", Reason: "no vehicle"}
	case a.Atmosphere == nil:
		return &ConfigError{Segment: s.Tag, Field: "analyses.atmosphere", Reason: "not set"}
	case a.Planet == nil:
		return &ConfigError{Segment: s.Tag, Field: "analyses.planet", Reason: "not set"}
	}
	return nil
}

// Iterate runs one pass of the iterate process at the current unknowns.
func (s *Segment) Iterate() error {
	return s.Process.Run("iterate", s)
}

func (s *Segment) setupNetwork() error {
	if s.networkDone || s.Analyses.Energy == nil {
		return nil
	}
	if err := s.Analyses.Energy.AddUnknownsAndResiduals(s); err != nil {
		return s.tagError(err)
	}
	s.networkDone = true
	return nil
}

func (s *Segment) tagError(err error) error {
	var ce *ConfigError
	if errors.As(err, &ce) {
		if ce.Segment == "" {
			ce.Segment = s.Tag
		}
		return err
	}
	var ne *ConvergenceError
	if errors.As(err, &ne) {
		return err
	}
	return fmt.Errorf("segment %s: %w", s.Tag, err)
}

// requireInherited returns v when set, otherwise the value the previous segment ends
// with. With neither, the segment is misconfigured.
func (s *Segment) requireInherited(field string, v *float64, inherit func(c *Conditions) float64) (float64, error) {
	if v != nil {
		return *v, nil
	}
	if s.State.Initials == nil {
		return 0, &ConfigError{Segment: s.Tag, Field: field, Reason: "not set and no previous segment to inherit from"}
	}
	return inherit(s.State.Initials), nil
}

// Float returns a pointer to v, for the optional inputs of segments.
func Float(v float64) *float64 {
	return &v
}
