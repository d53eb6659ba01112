// Package metrics summarizes robot trajectories. Per-robot metrics observe
// one history sample at a time; Summarize aggregates a whole batch.
package metrics

import (
	"math"

	"github.com/san-kum/linesim/internal/kinematics"
	"github.com/san-kum/linesim/internal/sim"
)

type Metric interface {
	Name() string
	Observe(h sim.HistoryItem)
	Value() float64
	Reset()
}

// PathLength is the distance travelled along the sampled poses.
type PathLength struct {
	last   kinematics.Pose
	seen   bool
	length float64
}

func NewPathLength() *PathLength { return &PathLength{} }

func (p *PathLength) Name() string { return "path_length" }

func (p *PathLength) Observe(h sim.HistoryItem) {
	if p.seen {
		p.length += kinematics.Distance(p.last, h.Pose)
	}
	p.last, p.seen = h.Pose, true
}

func (p *PathLength) Value() float64 { return p.length }
func (p *PathLength) Reset()         { *p = PathLength{} }

// Displacement is the straight distance between the first and the last pose.
type Displacement struct {
	first, last kinematics.Pose
	seen        bool
}

func NewDisplacement() *Displacement { return &Displacement{} }

func (d *Displacement) Name() string { return "displacement" }

func (d *Displacement) Observe(h sim.HistoryItem) {
	if !d.seen {
		d.first, d.seen = h.Pose, true
	}
	d.last = h.Pose
}

func (d *Displacement) Value() float64 { return kinematics.Distance(d.first, d.last) }
func (d *Displacement) Reset()         { *d = Displacement{} }

// Turning accumulates the absolute change of heading.
type Turning struct {
	last  float64
	seen  bool
	total float64
}

func NewTurning() *Turning { return &Turning{} }

func (t *Turning) Name() string { return "turning" }

func (t *Turning) Observe(h sim.HistoryItem) {
	if t.seen {
		t.total += math.Abs(h.Pose.Rotation - t.last)
	}
	t.last, t.seen = h.Pose.Rotation, true
}

func (t *Turning) Value() float64 { return t.total }
func (t *Turning) Reset()         { *t = Turning{} }

// Evaluate runs the metrics over samples and returns their values by name.
func Evaluate(samples []sim.HistoryItem, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, h := range samples {
			m.Observe(h)
		}
		out[m.Name()] = m.Value()
	}
	return out
}

// Spread is the mean distance of the final positions from their centroid.
func Spread(trajectories []sim.Trajectory) float64 {
	var finals []kinematics.Pose
	for _, t := range trajectories {
		if n := len(t.Samples); n > 0 {
			finals = append(finals, t.Samples[n-1].Pose)
		}
	}
	if len(finals) == 0 {
		return 0
	}

	var c kinematics.Pose
	for _, p := range finals {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(finals))
	c.Y /= float64(len(finals))

	var sum float64
	for _, p := range finals {
		sum += math.Hypot(p.X-c.X, p.Y-c.Y)
	}
	return sum / float64(len(finals))
}

type Summary struct {
	Robots           int
	Moved            int
	DurationMs       int
	MeanPathLength   float64
	MaxPathLength    float64
	MeanDisplacement float64
	MeanTurning      float64
	FinalSpread      float64
}

func Summarize(trajectories []sim.Trajectory) Summary {
	s := Summary{Robots: len(trajectories)}
	if len(trajectories) == 0 {
		return s
	}

	path, disp, turn := NewPathLength(), NewDisplacement(), NewTurning()
	for _, t := range trajectories {
		if t.Moved {
			s.Moved++
		}
		if n := len(t.Samples); n > 0 {
			s.DurationMs = max(s.DurationMs, t.Samples[n-1].Time)
		}
		v := Evaluate(t.Samples, path, disp, turn)
		s.MeanPathLength += v[path.Name()]
		s.MaxPathLength = max(s.MaxPathLength, v[path.Name()])
		s.MeanDisplacement += v[disp.Name()]
		s.MeanTurning += v[turn.Name()]
	}
	n := float64(len(trajectories))
	s.MeanPathLength /= n
	s.MeanDisplacement /= n
	s.MeanTurning /= n
	s.FinalSpread = Spread(trajectories)
	return s
}

// Map flattens the summary for run metadata.
func (s Summary) Map() map[string]float64 {
	return map[string]float64{
		"robots":            float64(s.Robots),
		"moved":             float64(s.Moved),
		"duration_ms":       float64(s.DurationMs),
		"mean_path_length":  s.MeanPathLength,
		"max_path_length":   s.MaxPathLength,
		"mean_displacement": s.MeanDisplacement,
		"mean_turning":      s.MeanTurning,
		"final_spread":      s.FinalSpread,
	}
}
