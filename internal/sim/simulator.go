package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/linesim/internal/hardware"
	"github.com/san-kum/linesim/internal/kinematics"
	"github.com/san-kum/linesim/internal/track"
)

type Simulator struct {
	robot    hardware.Robot
	board    hardware.Harness
	bitmap   *track.Bitmap
	mapScale float64
	cfg      RobotConfig
	start    kinematics.Pose
	pose     kinematics.Pose
	rng      *rand.Rand
	noise    NoiseConfig

	firstSensor int
	currentTime int
	history     []HistoryItem
	moved       bool
	fault       error

	sensors         [hardware.SensorCount]Point
	sensorDistances [hardware.SensorCount]float64
	sensorAngles    [hardware.SensorCount]float64
}

type Option func(*Simulator)

// WithNoise perturbs motor output and sensor readings from rng according
// to noise. rng must not be shared with another simulator.
func WithNoise(rng *rand.Rand, noise NoiseConfig) Option {
	return func(s *Simulator) {
		s.rng = rng
		s.noise = noise
	}
}

// WithHistoryBuffer records the position history into buf, reusing its
// capacity.
func WithHistoryBuffer(buf []HistoryItem) Option {
	return func(s *Simulator) {
		s.history = buf[:0]
	}
}

// New binds robot to a track and runs its Setup and first Loop. bitmap is
// owned by the simulator from here on; mapScale converts world pixels into
// bitmap pixels.
func New(robot hardware.Robot, setup Setup, bitmap *track.Bitmap, mapScale float64, opts ...Option) (*Simulator, error) {
	if robot == nil || robot.Hardware() == nil {
		return nil, fmt.Errorf("%w: robot without hardware", ErrInvalidConfig)
	}
	if bitmap == nil {
		return nil, fmt.Errorf("%w: nil track bitmap", ErrInvalidConfig)
	}
	if mapScale <= 0 {
		return nil, fmt.Errorf("%w: map scale must be positive, got %f", ErrInvalidConfig, mapScale)
	}

	s := &Simulator{
		robot:    robot,
		board:    hardware.Attach(robot.Hardware()),
		bitmap:   bitmap,
		mapScale: mapScale,
		cfg:      setup.Config,
		start:    setup.Pose,
		pose:     setup.Pose,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = append(s.history, HistoryItem{Pose: setup.Pose, Time: 0})
	s.prepareSensors()

	err := s.call("sensor pins", func() error {
		s.firstSensor = robot.FirstSensorPin()
		return hardware.CheckSensorPins(s.firstSensor)
	})
	if err != nil {
		return nil, err
	}

	if err := s.call("setup", robot.Setup); err != nil {
		return nil, err
	}
	if err := s.checkSensors(); err != nil {
		return nil, err
	}
	if err := s.call("loop", robot.Loop); err != nil {
		return nil, err
	}
	return s, nil
}

// Step advances the simulation by elapsedMillis. After a robot fault every
// further Step returns the same fault.
func (s *Simulator) Step(elapsedMillis int) error {
	if s.fault != nil {
		return s.fault
	}
	if elapsedMillis < 0 {
		return fmt.Errorf("%w: negative step of %d ms", ErrInvalidConfig, elapsedMillis)
	}

	s.currentTime += elapsedMillis
	s.board.AddMillis(elapsedMillis)

	if err := s.move(elapsedMillis); err != nil {
		return err
	}
	if err := s.checkSensors(); err != nil {
		return err
	}
	return s.call("loop", s.robot.Loop)
}

func (s *Simulator) Robot() hardware.Robot                        { return s.robot }
func (s *Simulator) Pose() kinematics.Pose                        { return s.pose }
func (s *Simulator) Config() RobotConfig                          { return s.cfg }
func (s *Simulator) Time() int                                    { return s.currentTime }
func (s *Simulator) History() []HistoryItem                       { return s.history }
func (s *Simulator) SensorPositions() [hardware.SensorCount]Point { return s.sensors }
func (s *Simulator) Fault() error                                 { return s.fault }

// Moved reports whether the robot ever left its start pose.
func (s *Simulator) Moved() bool { return s.moved }

// Buttons returns the InputPullup pins.
func (s *Simulator) Buttons() []int { return s.board.Pins(hardware.InputPullup) }

// Leds returns the Output pins.
func (s *Simulator) Leds() []int { return s.board.Pins(hardware.Output) }

func (s *Simulator) PinStatus(pin int) bool { return s.board.Value(pin) }

// SetButton presses or releases a button. A released button reads true.
func (s *Simulator) SetButton(pin int, down bool) error {
	if s.board.Mode(pin) != hardware.InputPullup {
		return &hardware.PinError{Op: "set button", Pin: pin, Mode: s.board.Mode(pin)}
	}
	return s.board.SetValue(pin, !down)
}

func (s *Simulator) move(elapsedMillis int) error {
	var motors hardware.Motors
	err := s.call("motors", func() error {
		motors = s.robot.MotorsMicroseconds()
		return nil
	})
	if err != nil {
		return err
	}

	if s.rng != nil && s.noise.RandomMotors {
		motors.Left += RandomIntPM(s.rng, s.noise.MotorDifference)
		motors.Right += RandomIntPM(s.rng, s.noise.MotorDifference)
	}

	s.pose = kinematics.NextPose(s.pose, motors, elapsedMillis, s.cfg.Size, s.cfg.Speed)
	if s.pose != s.start {
		s.moved = true
	}
	s.history = append(s.history, HistoryItem{Pose: s.pose, Time: s.currentTime})
	return nil
}

func (s *Simulator) prepareSensors() {
	d := s.cfg.SensorDistance
	for i, offset := range SensorOffsetsY {
		s.sensorDistances[i] = math.Hypot(d, offset)
		s.sensorAngles[i] = math.Atan2(offset, d)
	}
}

func (s *Simulator) checkSensors() error {
	canvas := max(s.bitmap.Width(), s.bitmap.Height()) - 1

	for i := range s.sensors {
		angle := s.pose.Rotation + s.sensorAngles[i]
		reach := s.cfg.Size * s.sensorDistances[i]
		p := Point{
			X: s.pose.X + reach*math.Cos(angle),
			Y: s.pose.Y + reach*math.Sin(angle),
		}
		s.sensors[i] = p

		// world y grows upward, bitmap rows grow downward
		px := int(math.RoundToEven(p.X / s.mapScale))
		py := canvas - int(math.RoundToEven(p.Y/s.mapScale))

		// outside the bitmap the table is white
		white := true
		if s.bitmap.Contains(px, py) {
			v, err := s.bitmap.Pixel(px, py)
			if err != nil {
				s.fault = fmt.Errorf("sim: sensor %d: %w", i, err)
				return s.fault
			}
			white = v
		}

		if s.rng != nil && s.noise.RandomSensors && s.rng.Float64() < s.noise.SensorErrorLikelihood {
			white = !white
		}
		if err := s.board.SetValue(s.firstSensor+i, white); err != nil {
			s.fault = err
			return err
		}
	}
	return nil
}

func (s *Simulator) call(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RobotFault{Phase: phase, Time: s.currentTime, Wrapped: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			s.fault = err
		}
	}()

	if err := fn(); err != nil {
		return &RobotFault{Phase: phase, Time: s.currentTime, Wrapped: err}
	}
	return nil
}
