// Package live drives a single simulated robot in real time. A Session can
// be run, paused and disposed; each Run advances the robot in fixed ticks
// until it is paused, faults or reaches its iteration limit.
package live

import (
	"context"
	"errors"
	"time"

	"github.com/san-kum/linesim/internal/sim"
	"go.uber.org/zap"
)

const (
	DefaultIntervalMs     = 6
	DefaultIterationLimit = 100_000
)

var ErrDisposed = errors.New("live: session disposed")

type Option func(*Session)

func WithInterval(ms int) Option {
	return func(s *Session) {
		if ms > 0 {
			s.intervalMs = ms
		}
	}
}

func WithIterationLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.limit = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// Session is not safe for concurrent use. The terminal UI calls Tick from
// its update loop; headless callers use Loop.
type Session struct {
	sim        *sim.Simulator
	intervalMs int
	limit      int
	log        *zap.Logger

	running    bool
	disposed   bool
	iterations int
}

func New(s *sim.Simulator, opts ...Option) *Session {
	sess := &Session{
		sim:        s,
		intervalMs: DefaultIntervalMs,
		limit:      DefaultIterationLimit,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(sess)
	}
	return sess
}

func (s *Session) Simulator() *sim.Simulator { return s.sim }
func (s *Session) Running() bool             { return s.running }
func (s *Session) Disposed() bool            { return s.disposed }
func (s *Session) Interval() time.Duration   { return time.Duration(s.intervalMs) * time.Millisecond }

// Iterations returns the number of ticks since the last Run.
func (s *Session) Iterations() int { return s.iterations }

// Run starts a new run of up to the iteration limit. A faulted robot
// cannot be run again.
func (s *Session) Run() error {
	if s.disposed {
		return ErrDisposed
	}
	if err := s.sim.Fault(); err != nil {
		return err
	}
	s.running = true
	s.iterations = 0
	s.log.Debug("live run started", zap.Int("time_ms", s.sim.Time()))
	return nil
}

func (s *Session) Pause() {
	if s.running {
		s.log.Debug("live run paused", zap.Int("time_ms", s.sim.Time()))
	}
	s.running = false
}

func (s *Session) Toggle() error {
	if s.running {
		s.Pause()
		return nil
	}
	return s.Run()
}

// Tick advances the robot by one interval if the session is running. It
// reports whether the robot was stepped. A robot fault stops the session
// and is returned.
func (s *Session) Tick() (bool, error) {
	if !s.running || s.disposed {
		return false, nil
	}
	if s.iterations >= s.limit {
		s.running = false
		s.log.Info("live iteration limit reached", zap.Int("limit", s.limit))
		return false, nil
	}
	s.iterations++
	if err := s.sim.Step(s.intervalMs); err != nil {
		s.running = false
		s.log.Warn("robot fault", zap.Error(err))
		return true, err
	}
	return true, nil
}

// SetButton presses or releases a button pin of the robot.
func (s *Session) SetButton(pin int, down bool) error {
	if s.disposed {
		return ErrDisposed
	}
	return s.sim.SetButton(pin, down)
}

// Loop runs the session in real time until it stops or ctx is done.
func (s *Session) Loop(ctx context.Context) error {
	if err := s.Run(); err != nil {
		return err
	}
	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Pause()
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Tick(); err != nil {
				return err
			}
			if !s.running {
				return nil
			}
		}
	}
}

func (s *Session) Dispose() {
	s.running = false
	s.disposed = true
}
