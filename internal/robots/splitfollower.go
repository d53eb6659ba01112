package robots

import (
	"fmt"

	"github.com/san-kum/linesim/internal/hardware"
)

type splitState int

const (
	onTrack splitState = iota
	insideSplit
)

const (
	updateMillis = 50
	// if too large, the robot may circle at turns or splits
	splitDoubleHitMillis = 150
	rampGain             = 0.8
	rampCoefficient      = 2
)

// SplitFollower follows a line with side markers announcing which branch to
// take at the next split, stops at a finish line and jumps gaps toward the
// side where the line was last seen. Motors ramp instead of switching
// instantly and are updated every updateMillis.
type SplitFollower struct {
	hardware.Board
	leftMotor  *RampMotor
	rightMotor *RampMotor
	sensors    sensorBar

	// Follow turns toward a marker; otherwise away from it.
	Follow     bool
	PreferLeft bool

	black     [hardware.SensorCount]bool
	lastBlack [hardware.SensorCount]bool
	ride      bool
	direction direction
	split     splitState
	hitLeft   int
	hitRight  int
	nextLeft  bool
	lastTime  int64
}

func NewSplitFollower() *SplitFollower {
	r := &SplitFollower{
		leftMotor:  NewRampMotor(true, rampGain, rampCoefficient),
		rightMotor: NewRampMotor(false, rampGain, rampCoefficient),
		Follow:     true,
		ride:       true,
	}
	r.sensors = sensorBar{board: &r.Board, first: sensorPin}
	r.nextLeft = r.PreferLeft
	return r
}

func (r *SplitFollower) FirstSensorPin() int { return sensorPin }

func (r *SplitFollower) MotorsMicroseconds() hardware.Motors {
	return hardware.Motors{Left: r.leftMotor.Microseconds(), Right: r.rightMotor.Microseconds()}
}

func (r *SplitFollower) InternalState() string {
	return fmt.Sprintf("direction: %s, inside split: %t, next turn left: %t, riding: %t",
		r.direction, r.split == insideSplit, r.nextLeft, r.ride)
}

// Finished reports whether the robot stopped at a finish line.
func (r *SplitFollower) Finished() bool { return !r.ride }

func (r *SplitFollower) Setup() error {
	r.sensors.setup()
	r.PinMode(buttonPin, hardware.InputPullup)
	r.PinMode(ledPin, hardware.Output)
	return nil
}

func (r *SplitFollower) Loop() error {
	released, err := r.DigitalRead(buttonPin)
	if err != nil {
		return err
	}
	if !released {
		r.ride = true
	}
	if !r.ride {
		r.leftMotor.Go(0)
		r.rightMotor.Go(0)
		return nil
	}

	r.lastBlack = r.black
	if err := r.sensors.readAll(&r.black); err != nil {
		return err
	}
	b, last := r.black, r.lastBlack

	now := r.Millis()
	tick := now-r.lastTime >= updateMillis
	if tick {
		r.lastTime = now
		r.hitLeft = max(r.hitLeft-1, 0)
		r.hitRight = max(r.hitRight-1, 0)
	}

	// an outer sensor just hit black on its own
	if (!last[0] && b[0] && !b[1]) || (!last[4] && b[4] && !b[3]) {
		switch {
		case b[0] && b[4] && b[2]:
			r.ride = false
			r.split = onTrack
		case !b[1] && !b[2] && !b[3]:
			if b[0] {
				r.direction = left
			} else {
				r.direction = right
			}
			r.split = onTrack
		case r.split == onTrack:
			r.nextLeft = b[0] == r.Follow
			r.split = insideSplit
		default:
			r.split = onTrack
		}
	}

	if err := r.DigitalWrite(ledPin, r.split == onTrack); err != nil {
		return err
	}

	switch {
	case b[2]:
		r.direction = forward
	case b[1]:
		r.direction = left
	case b[3]:
		r.direction = right
	}

	if b[1] {
		r.hitLeft = splitDoubleHitMillis / updateMillis
	}
	if b[3] {
		r.hitRight = splitDoubleHitMillis / updateMillis
	}
	if (r.hitLeft > 0 && r.hitRight > 0) || (b[2] && (b[1] || b[3])) {
		if r.nextLeft {
			r.direction = left
		} else {
			r.direction = right
		}
	}

	if !r.ride {
		r.leftMotor.Go(0)
		r.rightMotor.Go(0)
		return nil
	}
	if tick {
		drive(r.leftMotor, r.rightMotor, r.direction)
	}
	return nil
}
