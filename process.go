package amp

import (
	"fmt"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Stage is one step of a segment process.
type Stage interface {
	Evaluate(seg *Segment) error
}

// StageFunc adapts a function to a Stage.
type StageFunc func(seg *Segment) error

// Evaluate calls f(seg).
func (f StageFunc) Evaluate(seg *Segment) error {
	return f(seg)
}

type skip struct{}

func (skip) Evaluate(*Segment) error { return nil }

// Skip is the stage that does nothing. A segment sets it on a slot it has nothing to
// contribute to.
var Skip Stage = skip{}

// Process is an ordered set of named stages. A Process is itself a Stage, which is how
// `iterate` holds `unknowns`, `conditions` and `residuals`.
type Process struct {
	stages *orderedmap.OrderedMap // name -> Stage
}

// NewProcess returns an empty process.
func NewProcess() *Process {
	return &Process{stages: orderedmap.New()}
}

// Set stores a stage under a dotted path, creating intermediate processes. Replacing an
// existing stage keeps its position.
func (p *Process) Set(path string, s Stage) {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		p.stages.Set(head, s)
		return
	}
	child, ok := p.lookup(head)
	sub, isProcess := child.(*Process)
	if !ok || !isProcess {
		sub = NewProcess()
		p.stages.Set(head, sub)
	}
	sub.Set(rest, s)
}

// Get returns the stage at a dotted path.
func (p *Process) Get(path string) (Stage, error) {
	head, rest, nested := strings.Cut(path, ".")
	s, ok := p.lookup(head)
	if !ok {
		return nil, configErrorf("process."+path, "no such stage")
	}
	if !nested {
		return s, nil
	}
	sub, ok := s.(*Process)
	if !ok {
		return nil, configErrorf("process."+path, "%s is not a process", head)
	}
	return sub.Get(rest)
}

// Names returns the stage names in order.
func (p *Process) Names() []string {
	return p.stages.Keys()
}

func (p *Process) lookup(name string) (Stage, bool) {
	v, ok := p.stages.Get(name)
	if !ok {
		return nil, false
	}
	return v.(Stage), true
}

// Evaluate runs every stage in order. Each stage is looked up by name when it is its turn.
func (p *Process) Evaluate(seg *Segment) error {
	for _, name := range p.stages.Keys() {
		s, ok := p.lookup(name)
		if !ok {
			continue
		}
		if err := s.Evaluate(seg); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Run evaluates the stage at path.
func (p *Process) Run(path string, seg *Segment) error {
	s, err := p.Get(path)
	if err != nil {
		return err
	}
	if err := s.Evaluate(seg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
