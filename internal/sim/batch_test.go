package sim

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/linesim/internal/hardware"
	"github.com/san-kum/linesim/internal/kinematics"
	"github.com/san-kum/linesim/internal/track"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Batch", func() {
	var (
		m     *track.Map
		setup Setup
		cfg   BatchConfig
	)

	steeringFactory := func() (hardware.Robot, error) { return &steering{}, nil }

	BeforeEach(func() {
		m = track.NewMap(track.NewBitmap(stripeTrack(100, 48, 4)), 200)
		setup = Setup{
			Pose:   kinematics.Pose{X: 100, Y: 20, Rotation: math.Pi / 2},
			Config: DefaultRobotConfig(),
		}
		cfg = DefaultBatchConfig()
		cfg.RobotCount = 8
		cfg.IterationCount = 300
		cfg.Workers = 4
		cfg.Seed = 42
		cfg.Noise.SensorErrorLikelihood = 0.01
	})

	run := func(c BatchConfig) []Trajectory {
		b := NewBatch(steeringFactory, setup, m, c)
		Expect(b.Prepare(context.Background())).To(Succeed())
		Expect(b.Run(context.Background())).To(Succeed())
		return b.Trajectories()
	}

	It("caches the shared bitmap and gives every member its own clone", func() {
		b := NewBatch(steeringFactory, setup, m, cfg)
		Expect(m.Bitmap.Cached()).To(BeFalse())
		Expect(b.Prepare(context.Background())).To(Succeed())
		Expect(m.Bitmap.Cached()).To(BeTrue())

		seen := map[*track.Bitmap]bool{m.Bitmap: true}
		for _, s := range b.Simulators() {
			Expect(seen).NotTo(HaveKey(s.bitmap))
			seen[s.bitmap] = true
		}
		Expect(b.Simulators()).To(HaveLen(cfg.RobotCount))
	})

	It("jitters start poses within bounds", func() {
		b := NewBatch(steeringFactory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(Succeed())

		distinct := map[kinematics.Pose]bool{}
		for _, s := range b.Simulators() {
			start := s.History()[0].Pose
			Expect(math.Abs(start.X - setup.Pose.X)).To(BeNumerically("<=", cfg.Noise.PositionDifference))
			Expect(math.Abs(start.Y - setup.Pose.Y)).To(BeNumerically("<=", cfg.Noise.PositionDifference))
			Expect(math.Abs(start.Rotation - setup.Pose.Rotation)).To(BeNumerically("<=", cfg.Noise.RotationDifference))
			distinct[start] = true
		}
		Expect(distinct).To(HaveLen(cfg.RobotCount))
	})

	It("is reproducible for a fixed seed despite parallel execution", func() {
		first := run(cfg)
		second := run(cfg)

		Expect(first).To(HaveLen(cfg.RobotCount))
		Expect(second).To(Equal(first))
	})

	It("produces different trajectories for different seeds", func() {
		first := run(cfg)
		cfg.Seed = 7
		second := run(cfg)
		Expect(second).NotTo(Equal(first))
	})

	It("downsamples trajectories and detects movement", func() {
		b := NewBatch(steeringFactory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(Succeed())
		Expect(b.Run(context.Background())).To(Succeed())
		Expect(b.AnyRobotMoved()).To(BeTrue())

		for i, tr := range b.Trajectories() {
			Expect(tr.Index).To(Equal(i))
			Expect(tr.Seed).To(Equal(b.Seeds()[i]))
			Expect(tr.Moved).To(BeTrue())
			Expect(tr.Samples[0].Time).To(Equal(0))
			for j := 1; j < len(tr.Samples); j++ {
				Expect(tr.Samples[j].Time - tr.Samples[j-1].Time).To(BeNumerically(">=", cfg.MinPointDistanceMs))
			}
			Expect(len(b.Simulators()[i].History())).To(Equal(cfg.IterationCount + 1))
		}
	})

	It("surfaces the first robot fault after all workers settle", func() {
		created := 0
		factory := func() (hardware.Robot, error) {
			created++
			r := &fakeRobot{}
			if created == 3 {
				r.onLoop = func(f *fakeRobot) error {
					if f.Millis() > 100 {
						return errors.New("motor driver overheated")
					}
					return nil
				}
			}
			return r, nil
		}

		b := NewBatch(factory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(Succeed())
		err := b.Run(context.Background())

		var fault *RobotFault
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("robot 2"))
		Expect(b.Faults()[2]).To(HaveOccurred())
	})

	It("records a robot that faults during Prepare and aborts the batch", func() {
		created := 0
		factory := func() (hardware.Robot, error) {
			created++
			r := &fakeRobot{}
			if created == 3 {
				r.setupErr = errors.New("servo not attached")
			}
			return r, nil
		}

		b := NewBatch(factory, setup, m, cfg)
		err := b.Prepare(context.Background())

		var fault *RobotFault
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(fault.Phase).To(Equal("setup"))
		Expect(err.Error()).To(ContainSubstring("robot 2"))
		Expect(b.Faults()).To(HaveLen(cfg.RobotCount))
		Expect(b.Faults()[2]).To(MatchError(fault))
		Expect(b.Faults()[1]).NotTo(HaveOccurred())
		Expect(b.Trajectories()).To(BeNil())
		Expect(b.Run(context.Background())).To(MatchError(ErrNotPrepared))
	})

	It("keeps a finished run when canceled afterwards", func() {
		b := NewBatch(steeringFactory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(Succeed())
		Expect(b.Run(context.Background())).To(Succeed())

		b.Cancel()
		Expect(b.Canceled()).To(BeFalse())
		Expect(b.Trajectories()).To(HaveLen(cfg.RobotCount))
	})

	It("runs only once", func() {
		b := NewBatch(steeringFactory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(Succeed())
		Expect(b.Prepare(context.Background())).To(MatchError(ErrBatchReused))
		Expect(b.Run(context.Background())).To(Succeed())
		times := make([]int, cfg.RobotCount)
		for i, s := range b.Simulators() {
			times[i] = s.Time()
		}

		Expect(b.Run(context.Background())).To(MatchError(ErrBatchReused))
		Expect(b.Prepare(context.Background())).To(MatchError(ErrBatchReused))
		for i, s := range b.Simulators() {
			Expect(s.Time()).To(Equal(times[i]))
		}
	})

	It("stops promptly and discards history when canceled mid-run", func() {
		var b *Batch
		factory := func() (hardware.Robot, error) {
			return &fakeRobot{onLoop: func(f *fakeRobot) error {
				if f.Millis() > 600 {
					b.Cancel()
				}
				return nil
			}}, nil
		}
		cfg.IterationCount = 1_000_000

		b = NewBatch(factory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(Succeed())
		Expect(b.Run(context.Background())).To(MatchError(ErrCanceled))
		Expect(b.Canceled()).To(BeTrue())
		Expect(b.Trajectories()).To(BeNil())
	})

	It("honours context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		b := NewBatch(steeringFactory, setup, m, cfg)
		Expect(b.Prepare(ctx)).To(Succeed())
		cancel()
		Expect(b.Run(ctx)).To(MatchError(ErrCanceled))
		Expect(b.Trajectories()).To(BeNil())
	})

	It("does not prepare a canceled batch", func() {
		b := NewBatch(steeringFactory, setup, m, cfg)
		b.Cancel()
		Expect(b.Prepare(context.Background())).To(MatchError(ErrCanceled))
		Expect(b.Run(context.Background())).To(MatchError(ErrNotPrepared))
	})

	It("runs in the background and reports completion", func() {
		b := NewBatch(steeringFactory, setup, m, cfg)
		var err error
		Eventually(b.Start(context.Background())).Should(Receive(&err))
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Trajectories()).To(HaveLen(cfg.RobotCount))
	})

	It("validates its configuration", func() {
		cfg.RobotCount = 0
		b := NewBatch(steeringFactory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(MatchError(ErrInvalidConfig))

		cfg.RobotCount = 1
		cfg.Noise.IntervalDifference = cfg.IntervalMs + 1
		b = NewBatch(steeringFactory, setup, m, cfg)
		Expect(b.Prepare(context.Background())).To(MatchError(ErrInvalidConfig))
	})

	It("reports a source-less track", func() {
		empty := track.NewMap(track.NewBitmap(nil), 200)
		b := NewBatch(steeringFactory, setup, empty, cfg)
		Expect(b.Prepare(context.Background())).To(MatchError(track.ErrNoSource))
	})

	It("recycles history buffers through a pool", func() {
		pool := NewHistoryPool(cfg.IterationCount + 1)
		b := NewBatch(steeringFactory, setup, m, cfg, WithPool(pool))
		Expect(b.Prepare(context.Background())).To(Succeed())
		Expect(b.Run(context.Background())).To(Succeed())
		b.Release()
		Expect(b.Simulators()).To(BeEmpty())

		buf := pool.Get()
		Expect(buf).To(BeEmpty())
		Expect(cap(buf)).To(BeNumerically(">=", cfg.IterationCount+1))
	})
})

var _ = Describe("Downsample", func() {
	It("keeps points at least the minimum distance apart", func() {
		var history []HistoryItem
		for t := 0; t <= 1000; t += 6 {
			history = append(history, HistoryItem{Time: t})
		}
		out := Downsample(history, 200)
		times := make([]int, len(out))
		for i, h := range out {
			times[i] = h.Time
		}
		Expect(times).To(Equal([]int{0, 204, 408, 612, 816}))
	})

	It("keeps everything for a zero distance", func() {
		history := []HistoryItem{{Time: 0}, {Time: 0}, {Time: 5}}
		Expect(Downsample(history, 0)).To(HaveLen(3))
	})
})

var _ = Describe("Trajectory", func() {
	It("flips y for rendering", func() {
		tr := Trajectory{Samples: []HistoryItem{{Pose: kinematics.Pose{X: 1, Y: 30}}}}
		Expect(tr.Points()).To(Equal([]Point{{X: 1, Y: 30}}))
		Expect(tr.RenderPoints(100)).To(Equal([]Point{{X: 1, Y: 70}}))
	})
})

var _ = Describe("HistoryPool", func() {
	It("drops undersized buffers", func() {
		pool := NewHistoryPool(16)
		pool.Put(make([]HistoryItem, 0, 4))
		Expect(cap(pool.Get())).To(BeNumerically(">=", 16))
	})
})
