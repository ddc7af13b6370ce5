package amp

import (
	"errors"
	"strings"
	"testing"
)

func recorder(calls *[]string, name string) Stage {
	return StageFunc(func(*Segment) error {
		*calls = append(*calls, name)
		return nil
	})
}

func TestProcessOrder(t *testing.T) {
	var calls []string
	p := NewProcess()
	p.Set("initialize.a", recorder(&calls, "a"))
	p.Set("iterate.b", recorder(&calls, "b"))
	p.Set("iterate.c", recorder(&calls, "c"))
	p.Set("initialize.d", recorder(&calls, "d"))
	// Replacing a stage keeps its slot.
	p.Set("iterate.b", recorder(&calls, "b2"))
	if err := p.Evaluate(nil); err != nil {
		t.Fatal(err)
	}
	if strings.Join(calls, ",") != "a,d,b2,c" {
		t.Fatalf("stages ran as %v", calls)
	}
	if names := p.Names(); len(names) != 2 || names[0] != "initialize" || names[1] != "iterate" {
		t.Fatalf("names %v", names)
	}
}

func TestProcessSkipAndRun(t *testing.T) {
	var calls []string
	p := NewProcess()
	p.Set("post_process.noise", recorder(&calls, "noise"))
	p.Set("post_process.noise", Skip)
	if err := p.Run("post_process", nil); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 0 {
		t.Fatal("a skipped stage ran")
	}
	s, err := p.Get("post_process.noise")
	if err != nil || s != Skip {
		t.Fatalf("Get returned %v, %v", s, err)
	}
	if _, err := p.Get("post_process.missing"); !errors.Is(err, ErrConfig) {
		t.Fatalf("missing stage: %v", err)
	}
	if _, err := p.Get("post_process.noise.deeper"); !errors.Is(err, ErrConfig) {
		t.Fatalf("stage used as a process: %v", err)
	}
}

func TestProcessLooksUpStagesWhenRunning(t *testing.T) {
	var calls []string
	p := NewProcess()
	p.Set("first", StageFunc(func(*Segment) error {
		// A stage may replace a later one before it runs.
		p.Set("second", recorder(&calls, "replaced"))
		return nil
	}))
	p.Set("second", recorder(&calls, "original"))
	if err := p.Evaluate(nil); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "replaced" {
		t.Fatalf("ran %v", calls)
	}
}

func TestProcessErrorNamesTheStage(t *testing.T) {
	boom := errors.New("boom")
	p := NewProcess()
	p.Set("iterate.conditions.energy", StageFunc(func(*Segment) error { return boom }))
	err := p.Run("iterate", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("error lost: %v", err)
	}
	if !strings.Contains(err.Error(), "conditions: energy: boom") {
		t.Fatalf("stage path missing from %q", err)
	}
}
