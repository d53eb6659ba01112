package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/san-kum/linesim/internal/hardware"
	"github.com/san-kum/linesim/internal/track"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Factory creates a fresh control program instance.
type Factory func() (hardware.Robot, error)

type BatchConfig struct {
	RobotCount         int         `json:"robot_count" yaml:"robots"`
	IterationCount     int         `json:"iteration_count" yaml:"iterations"`
	IntervalMs         int         `json:"interval_ms" yaml:"interval_ms"`
	MinPointDistanceMs int         `json:"min_point_distance_ms" yaml:"min_point_distance_ms"`
	Workers            int         `json:"workers" yaml:"workers"`
	Seed               int64       `json:"seed" yaml:"seed"`
	Noise              NoiseConfig `json:"noise" yaml:"noise"`
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		RobotCount:         50,
		IterationCount:     10_000,
		IntervalMs:         6,
		MinPointDistanceMs: 200,
		Noise:              DefaultNoise(),
	}
}

func (c BatchConfig) Validate() error {
	switch {
	case c.RobotCount <= 0:
		return fmt.Errorf("%w: robot count must be positive, got %d", ErrInvalidConfig, c.RobotCount)
	case c.IterationCount < 0:
		return fmt.Errorf("%w: iteration count must not be negative, got %d", ErrInvalidConfig, c.IterationCount)
	case c.IntervalMs <= 0:
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidConfig, c.IntervalMs)
	case c.Noise.RandomInterval && c.Noise.IntervalDifference > c.IntervalMs:
		return fmt.Errorf("%w: interval jitter %d exceeds interval %d", ErrInvalidConfig, c.Noise.IntervalDifference, c.IntervalMs)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Trajectory is the downsampled position history of one batch member.
type Trajectory struct {
	Index   int
	Seed    int64
	Moved   bool
	Samples []HistoryItem
}

// Points returns the world-space positions of the samples.
func (t Trajectory) Points() []Point {
	points := make([]Point, len(t.Samples))
	for i, s := range t.Samples {
		points[i] = Point{X: s.Pose.X, Y: s.Pose.Y}
	}
	return points
}

// RenderPoints returns the positions in screen space of a track of the given
// size, where y grows downward.
func (t Trajectory) RenderPoints(size float64) []Point {
	points := t.Points()
	for i := range points {
		points[i].Y = size - points[i].Y
	}
	return points
}

type BatchOption func(*Batch)

func WithLogger(log *zap.Logger) BatchOption {
	return func(b *Batch) {
		if log != nil {
			b.log = log
		}
	}
}

func WithPool(p *HistoryPool) BatchOption {
	return func(b *Batch) { b.pool = p }
}

// Batch runs RobotCount independent simulators of the same control program
// with randomized start pose, tick timing, sensor errors and motor output.
// Supported actions are Prepare, Run, Trajectories and Cancel. A Batch runs
// once; build a new one to run again.
type Batch struct {
	factory Factory
	setup   Setup
	track   *track.Map
	cfg     BatchConfig
	log     *zap.Logger
	pool    *HistoryPool

	members  []*Simulator
	rngs     []*rand.Rand
	seeds    []int64
	faults   []error
	prepared bool
	ran      atomic.Bool
	finished atomic.Bool
	canceled atomic.Bool
}

func NewBatch(factory Factory, setup Setup, m *track.Map, cfg BatchConfig, opts ...BatchOption) *Batch {
	b := &Batch{
		factory: factory,
		setup:   setup,
		track:   m,
		cfg:     cfg,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Batch) Config() BatchConfig { return b.cfg }

// Prepare caches the track bitmap and builds every member with its own
// seed, start pose and bitmap clone. Seeds are drawn from a master source
// seeded with BatchConfig.Seed, so a batch is reproducible.
func (b *Batch) Prepare(ctx context.Context) error {
	if err := b.cfg.Validate(); err != nil {
		return err
	}
	if b.factory == nil || b.track == nil || b.track.Bitmap == nil {
		return fmt.Errorf("%w: batch needs a robot factory and a track", ErrInvalidConfig)
	}
	if b.prepared || b.ran.Load() {
		return ErrBatchReused
	}
	if b.isCanceled(ctx) {
		return ErrCanceled
	}

	// the only write to shared state; it completes before any clone
	if err := b.track.Bitmap.PopulateCache(); err != nil {
		return err
	}

	n := b.cfg.RobotCount
	b.members = make([]*Simulator, 0, n)
	b.rngs = make([]*rand.Rand, 0, n)
	b.seeds = make([]int64, 0, n)
	b.faults = make([]error, n)
	master := rand.New(rand.NewSource(b.cfg.Seed))

	for i := 0; i < n; i++ {
		if b.isCanceled(ctx) {
			b.discard()
			return ErrCanceled
		}

		seed := master.Int63()
		rng := rand.New(rand.NewSource(seed))

		robot, err := b.factory()
		if err != nil {
			b.discard()
			return fmt.Errorf("sim: create robot %d: %w", i, err)
		}

		setup := Setup{
			Pose:   b.cfg.Noise.JitterPose(rng, b.setup.Pose),
			Config: b.setup.Config,
		}
		bitmap, err := b.track.Bitmap.Clone()
		if err != nil {
			b.discard()
			return err
		}

		opts := []Option{WithNoise(rng, b.cfg.Noise)}
		if b.pool != nil {
			opts = append(opts, WithHistoryBuffer(b.pool.Get()))
		}
		s, err := New(robot, setup, bitmap, b.track.Scale, opts...)
		if err != nil {
			b.faults[i] = err
			b.log.Warn("robot faulted during prepare", zap.Int("index", i), zap.Int64("seed", seed), zap.Error(err))
			b.discard()
			return fmt.Errorf("sim: prepare robot %d: %w", i, err)
		}

		b.members = append(b.members, s)
		b.rngs = append(b.rngs, rng)
		b.seeds = append(b.seeds, seed)
	}

	b.prepared = true
	b.log.Debug("batch prepared",
		zap.Int("robots", n),
		zap.Int64("seed", b.cfg.Seed),
		zap.Int("bitmap_width", b.track.Bitmap.Width()),
		zap.Int("bitmap_height", b.track.Bitmap.Height()),
	)
	return nil
}

// Run ticks every member IterationCount times in parallel. If a control
// program faults, its siblings are stopped and the first fault is returned
// once all workers have returned. A canceled run discards its history and
// returns ErrCanceled.
func (b *Batch) Run(ctx context.Context) error {
	if !b.prepared {
		return ErrNotPrepared
	}
	if !b.ran.CompareAndSwap(false, true) {
		return ErrBatchReused
	}

	workers := b.cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range b.members {
		i := i
		g.Go(func() error {
			err := b.runMember(gctx, i)
			if err != nil && !errors.Is(err, ErrCanceled) {
				b.faults[i] = err
				b.log.Warn("robot faulted", zap.Int("index", i), zap.Int64("seed", b.seeds[i]), zap.Error(err))
			}
			return err
		})
	}
	err := g.Wait()

	if b.isCanceled(ctx) {
		b.canceled.Store(true)
		b.discard()
		b.log.Info("batch canceled", zap.Duration("elapsed", time.Since(start)))
		return ErrCanceled
	}

	b.finished.Store(true)
	b.log.Info("batch finished",
		zap.Int("robots", len(b.members)),
		zap.Int("iterations", b.cfg.IterationCount),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("faulted", err != nil),
	)
	return err
}

// Start prepares and runs the batch on a background goroutine. The returned
// channel receives the outcome and is then closed.
func (b *Batch) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		if err := b.Prepare(ctx); err != nil {
			done <- err
			return
		}
		done <- b.Run(ctx)
	}()
	return done
}

func (b *Batch) runMember(ctx context.Context, i int) error {
	s, rng := b.members[i], b.rngs[i]
	for it := 0; it < b.cfg.IterationCount; it++ {
		if b.isCanceled(ctx) {
			return ErrCanceled
		}
		if err := s.Step(b.cfg.Noise.Interval(rng, b.cfg.IntervalMs)); err != nil {
			return fmt.Errorf("robot %d (seed %d): %w", i, b.seeds[i], err)
		}
	}
	return nil
}

// Cancel stops an in-flight Prepare or Run. Workers observe it before their
// next tick. It has no effect on a finished run.
func (b *Batch) Cancel() {
	if b.finished.Load() {
		return
	}
	b.canceled.Store(true)
}

func (b *Batch) Canceled() bool {
	return b.canceled.Load()
}

func (b *Batch) isCanceled(ctx context.Context) bool {
	return b.canceled.Load() || ctx.Err() != nil
}

// Trajectories downsamples every member's history so consecutive points are
// at least MinPointDistanceMs apart. It returns nil for a canceled or
// unprepared batch.
func (b *Batch) Trajectories() []Trajectory {
	if !b.prepared {
		return nil
	}
	out := make([]Trajectory, len(b.members))
	for i, s := range b.members {
		out[i] = Trajectory{
			Index:   i,
			Seed:    b.seeds[i],
			Moved:   s.Moved(),
			Samples: Downsample(s.History(), b.cfg.MinPointDistanceMs),
		}
	}
	return out
}

func (b *Batch) Simulators() []*Simulator { return b.members }
func (b *Batch) Seeds() []int64           { return b.seeds }

// Faults returns the per-member errors of Prepare or Run, nil where a member
// completed.
func (b *Batch) Faults() []error { return b.faults }

func (b *Batch) AnyRobotMoved() bool {
	for _, s := range b.members {
		if s.Moved() {
			return true
		}
	}
	return false
}

// Release hands history buffers back to the pool. The batch must not be
// used afterwards.
func (b *Batch) Release() {
	b.discard()
}

func (b *Batch) discard() {
	if b.pool != nil {
		for _, s := range b.members {
			b.pool.Put(s.history)
		}
	}
	b.members = nil
	b.rngs = nil
	b.prepared = false
}

// Downsample keeps the history items at least minDeltaMs apart, starting
// with the first one.
func Downsample(history []HistoryItem, minDeltaMs int) []HistoryItem {
	out := make([]HistoryItem, 0, len(history))
	last := -minDeltaMs
	for _, item := range history {
		if item.Time-last >= minDeltaMs {
			last = item.Time
			out = append(out, item)
		}
	}
	return out
}
