package amp

import (
	"context"
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Leg is a segment of a mission. Every concrete segment type embeds *Segment and is a Leg.
type Leg interface {
	Base() *Segment
}

// Mission flies its segments in order. Each segment starts from a copy of the last control
// point of the segment before it.
type Mission struct {
	Tag      string
	Segments []Leg
	Export   ExportConfig
	// Noise, when set, replaces the noise stage of every segment that computes noise so
	// that they share one surrogate.
	Noise *NoiseAnalysis

	logger kitlog.Logger
}

// NewMission returns a mission flying the segments in order.
func NewMission(tag string, conf ExportConfig, segments ...Leg) *Mission {
	return &Mission{Tag: tag, Segments: segments, Export: conf, logger: kitlog.NewNopLogger()}
}

// SetLogger sets the logger of the mission and of its segments.
func (m *Mission) SetLogger(l kitlog.Logger) {
	m.logger = l
}

// preProcess checks the segment tags, shares the noise surrogate and sets up the energy
// network of every segment.
func (m *Mission) preProcess() error {
	tags := make(map[string]bool, len(m.Segments))
	for i, leg := range m.Segments {
		if leg == nil || leg.Base() == nil {
			return configErrorf(fmt.Sprintf("mission.segments[%d]", i), "not set")
		}
		seg := leg.Base()
		if tags[seg.Tag] {
			return &ConfigError{Segment: seg.Tag, Field: "tag", Reason: "duplicate segment tag"}
		}
		tags[seg.Tag] = true
		seg.SetLogger(kitlog.With(m.logger, "mission", m.Tag))
		if m.Noise != nil {
			if st, err := seg.Process.Get("post_process.noise"); err == nil && st != Skip {
				seg.Process.Set("post_process.noise", StageFunc(m.Noise.Evaluate))
			}
		}
		if err := seg.checkAnalyses(); err != nil {
			return err
		}
		if err := seg.setupNetwork(); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate flies the mission. It stops at the first segment that fails; the results then
// hold every segment evaluated so far, the failed one included.
func (m *Mission) Evaluate(ctx context.Context) (*Results, error) {
	res := &Results{RunID: uuid.New(), Mission: m.Tag, Created: time.Now().UTC()}
	if err := m.preProcess(); err != nil {
		return res, err
	}

	var g errgroup.Group
	var stream chan SegmentResult
	if !m.Export.IsUseless() {
		stream = make(chan SegmentResult, len(m.Segments))
		g.Go(func() error {
			return StreamResults(m.Export, res.RunID, stream)
		})
	}
	err := m.fly(ctx, res, stream)
	if stream != nil {
		close(stream)
	}
	if exportErr := g.Wait(); exportErr != nil {
		level.Error(m.logger).Log("subsys", "export", "mission", m.Tag, "err", exportErr)
		if err == nil {
			err = exportErr
		}
	}
	if m.Export.Snapshot {
		if snapErr := SaveSnapshot(m.Export, res); snapErr != nil && err == nil {
			err = snapErr
		}
	}
	return res, err
}

func (m *Mission) fly(ctx context.Context, res *Results, stream chan<- SegmentResult) error {
	var initials *Conditions
	for _, leg := range m.Segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		seg := leg.Base()
		seg.State.Initials = initials
		start := time.Now()
		err := seg.Evaluate()
		sr := newSegmentResult(seg, err)
		res.Segments = append(res.Segments, sr)
		if stream != nil {
			stream <- sr
		}
		if err != nil {
			level.Error(m.logger).Log("subsys", "mission", "mission", m.Tag, "segment", seg.Tag, "err", err)
			return err
		}
		initials = seg.State.Conditions.LastRow()
		level.Info(m.logger).Log("subsys", "mission", "mission", m.Tag, "segment", seg.Tag,
			"duration(s)", seg.State.Numerics.Duration, "iterations", seg.Convergence.Iterations,
			"mass(kg)", initials.Weights.TotalMass.At(0, 0), "elapsed", time.Since(start))
	}
	return nil
}

// Results are the read-only outcome of a mission run.
type Results struct {
	RunID    uuid.UUID       `msgpack:"run_id"`
	Mission  string          `msgpack:"mission"`
	Created  time.Time       `msgpack:"created"`
	Segments []SegmentResult `msgpack:"segments"`
}

// Segment returns the result of the segment with that tag.
func (r *Results) Segment(tag string) (SegmentResult, bool) {
	for _, s := range r.Segments {
		if s.Tag == tag {
			return s, true
		}
	}
	return SegmentResult{}, false
}

// SegmentResult is a copy of the conditions of a segment once it is done.
type SegmentResult struct {
	Tag         string            `msgpack:"tag"`
	Converged   bool              `msgpack:"converged"`
	Iterations  int               `msgpack:"iterations"`
	Evaluations int               `msgpack:"evaluations"`
	Residual    float64           `msgpack:"residual"`
	Error       string            `msgpack:"error,omitempty"`
	Paths       []string          `msgpack:"paths"` // condition paths in walk order
	Conditions  map[string]*Array `msgpack:"conditions"`
}

func newSegmentResult(seg *Segment, err error) SegmentResult {
	sr := SegmentResult{
		Tag:         seg.Tag,
		Converged:   seg.Convergence.Converged,
		Iterations:  seg.Convergence.Iterations,
		Evaluations: seg.Convergence.Evaluations,
		Residual:    seg.Convergence.Residual,
		Conditions:  make(map[string]*Array),
	}
	if err != nil {
		sr.Error = err.Error()
	}
	seg.State.Conditions.Walk(func(path string, a *Array) {
		sr.Paths = append(sr.Paths, path)
		sr.Conditions[path] = a.Clone()
	})
	return sr
}

// Last returns the value of the last control point at path, component j.
func (s SegmentResult) Last(path string, j int) (float64, bool) {
	a, ok := s.Conditions[path]
	if !ok || a.Rows == 0 {
		return 0, false
	}
	return a.Last()[j], true
}
