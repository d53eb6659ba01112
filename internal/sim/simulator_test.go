package sim

import (
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/san-kum/linesim/internal/hardware"
	"github.com/san-kum/linesim/internal/kinematics"
	"github.com/san-kum/linesim/internal/track"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Simulator", func() {
	var (
		robot *fakeRobot
		setup Setup
	)

	BeforeEach(func() {
		robot = &fakeRobot{}
		setup = Setup{Config: RobotConfig{Size: 1, SensorDistance: 1, Speed: 1}}
	})

	newSim := func(opts ...Option) *Simulator {
		s, err := New(robot, setup, emptyBitmap(), 1, opts...)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	Describe("lifecycle", func() {
		It("calls Setup exactly once", func() {
			Expect(robot.setupCalled).To(Equal(0))
			s := newSim()
			Expect(robot.setupCalled).To(Equal(1))
			Expect(s.Step(10)).To(Succeed())
			Expect(robot.setupCalled).To(Equal(1))
		})

		It("calls Loop once on construction and once per step", func() {
			s := newSim()
			Expect(robot.loopCalled).To(Equal(1))
			Expect(s.Step(10)).To(Succeed())
			Expect(robot.loopCalled).To(Equal(2))
			Expect(s.Step(10)).To(Succeed())
			Expect(robot.loopCalled).To(Equal(3))
		})

		It("advances the robot clock", func() {
			s := newSim()
			Expect(s.Step(6)).To(Succeed())
			Expect(s.Step(7)).To(Succeed())
			Expect(robot.Millis()).To(Equal(int64(13)))
			Expect(s.Time()).To(Equal(13))
		})

		It("rejects invalid arguments", func() {
			_, err := New(robot, setup, emptyBitmap(), 0)
			Expect(err).To(MatchError(ErrInvalidConfig))
			_, err = New(robot, setup, nil, 1)
			Expect(err).To(MatchError(ErrInvalidConfig))
			_, err = New(nil, setup, emptyBitmap(), 1)
			Expect(err).To(MatchError(ErrInvalidConfig))
		})

		It("rejects negative steps without moving the clock", func() {
			s := newSim()
			Expect(s.Step(10)).To(Succeed())
			Expect(s.Step(-5)).To(MatchError(ErrInvalidConfig))
			Expect(s.Time()).To(Equal(10))
			Expect(robot.Millis()).To(Equal(int64(10)))
			Expect(s.History()).To(HaveLen(2))
			Expect(s.Fault()).NotTo(HaveOccurred())
			Expect(s.Step(0)).To(Succeed())
		})
	})

	Describe("pins", func() {
		It("lists buttons and leds", func() {
			s := newSim()
			Expect(s.Leds()).To(Equal([]int{1, 2}))
			Expect(s.Buttons()).To(Equal([]int{3, 4}))
		})

		It("presses and releases buttons", func() {
			s := newSim()
			buttons := s.Buttons()
			Expect(s.PinStatus(buttons[0])).To(BeTrue())
			Expect(s.PinStatus(buttons[1])).To(BeTrue())

			Expect(s.SetButton(buttons[0], true)).To(Succeed())
			Expect(s.PinStatus(buttons[0])).To(BeFalse())
			Expect(s.PinStatus(buttons[1])).To(BeTrue())

			Expect(s.SetButton(buttons[0], false)).To(Succeed())
			Expect(s.PinStatus(buttons[0])).To(BeTrue())
		})

		It("refuses to press a pin that is not a button", func() {
			s := newSim()
			Expect(s.SetButton(1, true)).To(MatchError(hardware.ErrInvalidPinAccess))
		})
	})

	Describe("position history", func() {
		It("records one entry per step with accumulated time", func() {
			s := newSim()
			times := []int{5, 6, 4, 15, 25, 3}
			for _, t := range times {
				Expect(s.Step(t)).To(Succeed())
			}

			history := s.History()
			Expect(history).To(HaveLen(len(times) + 1))
			Expect(history[0].Time).To(Equal(0))

			total := 0
			for i := 1; i < len(history); i++ {
				total += times[i-1]
				Expect(history[i].Time).To(Equal(total))
			}
		})
	})

	DescribeTable("driving straight for one second",
		func(angleDeg float64, check func(p1, p2 kinematics.Pose)) {
			setup.Pose = kinematics.Pose{Rotation: angleDeg / 180 * math.Pi}
			s := newSim()
			robot.leftSpeed = 50
			robot.rightSpeed = 50
			Expect(s.Step(1000)).To(Succeed())

			history := s.History()
			Expect(history).To(HaveLen(2))
			check(history[0].Pose, history[1].Pose)
			Expect(s.Moved()).To(BeTrue())
		},
		Entry("diagonal", 45.0, func(p1, p2 kinematics.Pose) {
			Expect(p2.X).To(BeNumerically(">", p1.X))
			Expect(p2.Y).To(BeNumerically(">", p1.Y))
			Expect(p2.X).To(BeNumerically("~", p2.Y, 1e-3))
		}),
		Entry("horizontal", 0.0, func(p1, p2 kinematics.Pose) {
			Expect(p2.X).To(BeNumerically(">", p1.X))
			Expect(p2.Y).To(BeNumerically("~", p1.Y, 1e-3))
		}),
		Entry("vertical", 90.0, func(p1, p2 kinematics.Pose) {
			Expect(p2.X).To(BeNumerically("~", p1.X, 1e-3))
			Expect(p2.Y).To(BeNumerically(">", p1.Y))
		}),
	)

	Describe("sensors", func() {
		It("reads the middle sensor from the bitmap", func() {
			img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
			s, err := New(robot, setup, track.NewBitmap(img), 1)
			Expect(err).NotTo(HaveOccurred())

			// world (1, 0) is bitmap pixel (1, 4)
			img.Set(1, 4, color.NRGBA{255, 255, 255, 255})
			Expect(s.Step(10)).To(Succeed())
			Expect(s.PinStatus(12)).To(BeTrue())

			img.Set(1, 4, color.NRGBA{0, 0, 0, 255})
			Expect(s.Step(10)).To(Succeed())
			Expect(s.PinStatus(12)).To(BeFalse())
		})

		It("reads white outside the bitmap", func() {
			img := stripeTrack(5, 0, 5)
			setup.Pose = kinematics.Pose{X: 100, Y: 100}
			s, err := New(robot, setup, track.NewBitmap(img), 1)
			Expect(err).NotTo(HaveOccurred())
			for pin := 10; pin < 15; pin++ {
				Expect(s.PinStatus(pin)).To(BeTrue())
			}
		})

		It("places sensors across the front of the robot", func() {
			setup.Config.SensorDistance = 15
			s := newSim()
			positions := s.SensorPositions()
			for i, p := range positions {
				Expect(p.X).To(BeNumerically("~", 15, 1e-9))
				Expect(p.Y).To(BeNumerically("~", SensorOffsetsY[i], 1e-9))
			}
		})

		It("honours the map scale", func() {
			// 10x10 bitmap on a 20px world: pixel (5, 4) sits at world (10, 10)
			img := stripeTrack(10, 5, 1)
			setup.Config.SensorDistance = 10
			setup.Pose = kinematics.Pose{Y: 10}
			s, err := New(robot, setup, track.NewBitmap(img), 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.PinStatus(12)).To(BeFalse())
			Expect(s.PinStatus(10)).To(BeTrue())
		})
	})

	Describe("faults", func() {
		It("wraps errors returned by Loop and keeps them", func() {
			s := newSim()
			boom := errors.New("boom")
			robot.loopErr = boom

			err := s.Step(10)
			var fault *RobotFault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Phase).To(Equal("loop"))
			Expect(fault.Time).To(Equal(10))
			Expect(err).To(MatchError(boom))

			robot.loopErr = nil
			Expect(s.Step(10)).To(MatchError(boom))
			Expect(s.Fault()).To(HaveOccurred())
		})

		It("recovers panics raised by the control program", func() {
			s := newSim()
			robot.onLoop = func(*fakeRobot) error { panic("index out of range") }

			err := s.Step(10)
			var fault *RobotFault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("panic: index out of range"))
		})

		It("surfaces pin contract violations", func() {
			s := newSim()
			robot.onLoop = func(f *fakeRobot) error {
				_, err := f.DigitalRead(1)
				return err
			}
			Expect(s.Step(10)).To(MatchError(hardware.ErrInvalidPinAccess))
		})

		DescribeTable("rejects sensor pins outside the board",
			func(first, pin int) {
				robot.sensorPin = func() int { return first }
				_, err := New(robot, setup, emptyBitmap(), 1)
				Expect(err).To(MatchError(hardware.ErrInvalidPinAccess))

				var fault *RobotFault
				Expect(errors.As(err, &fault)).To(BeTrue())
				Expect(fault.Phase).To(Equal("sensor pins"))
				var pinErr *hardware.PinError
				Expect(errors.As(err, &pinErr)).To(BeTrue())
				Expect(pinErr.Pin).To(Equal(pin))
				Expect(robot.setupCalled).To(Equal(0))
			},
			Entry("past the last pin", 30, 34),
			Entry("negative", -1, -1),
			Entry("one too far", hardware.PinCount-hardware.SensorCount+1, hardware.PinCount),
		)

		It("accepts the last sensor pin window", func() {
			robot.sensorPin = func() int { return hardware.PinCount - hardware.SensorCount }
			_, err := New(robot, setup, emptyBitmap(), 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reads the sensor pin once and recovers its panics", func() {
			calls := 0
			robot.sensorPin = func() int {
				calls++
				if calls > 1 {
					panic("sensor pin read twice")
				}
				return 10
			}
			s := newSim()
			Expect(s.Step(10)).To(Succeed())
			Expect(s.Step(10)).To(Succeed())
			Expect(calls).To(Equal(1))

			robot = &fakeRobot{sensorPin: func() int { panic("no sensors wired") }}
			_, err := New(robot, setup, emptyBitmap(), 1)
			var fault *RobotFault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Phase).To(Equal("sensor pins"))
			Expect(err.Error()).To(ContainSubstring("panic: no sensors wired"))
		})

		It("fails construction when Setup faults", func() {
			robot.setupErr = errors.New("servo not attached")
			_, err := New(robot, setup, emptyBitmap(), 1)
			var fault *RobotFault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Phase).To(Equal("setup"))
			Expect(robot.loopCalled).To(Equal(0))
		})

		It("fails construction when the first Loop faults", func() {
			robot.onLoop = func(*fakeRobot) error { return errors.New("not ready") }
			_, err := New(robot, setup, emptyBitmap(), 1)
			var fault *RobotFault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Phase).To(Equal("loop"))
		})
	})

	Describe("noise", func() {
		It("flips sensor readings", func() {
			noise := NoiseConfig{RandomSensors: true, SensorErrorLikelihood: 1}
			s := newSim(WithNoise(rand.New(rand.NewSource(1)), noise))
			for pin := 10; pin < 15; pin++ {
				Expect(s.PinStatus(pin)).To(BeFalse())
			}
		})

		It("perturbs motor output", func() {
			noise := NoiseConfig{RandomMotors: true, MotorDifference: 20}
			s := newSim(WithNoise(rand.New(rand.NewSource(1)), noise))
			for i := 0; i < 10; i++ {
				Expect(s.Step(6)).To(Succeed())
			}
			Expect(s.Moved()).To(BeTrue())
		})

		It("leaves a stopped robot in place without noise", func() {
			s := newSim()
			for i := 0; i < 10; i++ {
				Expect(s.Step(6)).To(Succeed())
			}
			Expect(s.Moved()).To(BeFalse())
		})
	})
})
