package robots

import (
	"fmt"

	"github.com/san-kum/linesim/internal/hardware"
)

type direction int

const (
	forward direction = iota
	left
	right
)

func (d direction) String() string {
	switch d {
	case left:
		return "left"
	case right:
		return "right"
	default:
		return "forward"
	}
}

const (
	buttonPin = 2
	ledPin    = 11
	sensorPin = 3
)

// LineFollower steers by the three middle sensors and blinks its LED once a
// second. Holding the button stops the motors.
type LineFollower struct {
	hardware.Board
	leftMotor  *Motor
	rightMotor *Motor
	sensors    sensorBar

	ride      bool
	direction direction
	lastTime  int64
	ledState  bool
}

const (
	forwardPercentage        = 100
	turnCorrectionPercentage = -10
	blinkMillis              = 1000
)

func NewLineFollower() *LineFollower {
	r := &LineFollower{
		leftMotor:  NewMotor(true),
		rightMotor: NewMotor(false),
		// batch runs need the robot to drive without a button press
		ride: true,
	}
	r.sensors = sensorBar{board: &r.Board, first: sensorPin}
	return r
}

func (r *LineFollower) FirstSensorPin() int { return sensorPin }

func (r *LineFollower) MotorsMicroseconds() hardware.Motors {
	return hardware.Motors{Left: r.leftMotor.Microseconds(), Right: r.rightMotor.Microseconds()}
}

func (r *LineFollower) InternalState() string {
	return fmt.Sprintf("left motor speed: %d, direction: %s", r.leftMotor.Speed(), r.direction)
}

func (r *LineFollower) Setup() error {
	r.sensors.setup()
	r.PinMode(buttonPin, hardware.InputPullup)
	r.PinMode(ledPin, hardware.Output)
	return nil
}

func (r *LineFollower) Loop() error {
	released, err := r.DigitalRead(buttonPin)
	if err != nil {
		return err
	}
	pressed := !released
	if pressed {
		r.ride = true
	}

	if !r.ride {
		r.leftMotor.Go(0)
		r.rightMotor.Go(0)
		return nil
	}

	if now := r.Millis(); now-r.lastTime >= blinkMillis {
		r.lastTime = now
		r.ledState = !r.ledState
		if err := r.DigitalWrite(ledPin, r.ledState); err != nil {
			return err
		}
	}

	var black [hardware.SensorCount]bool
	if err := r.sensors.readAll(&black); err != nil {
		return err
	}
	switch {
	case black[2]:
		r.direction = forward
	case black[1]:
		r.direction = left
	case black[3]:
		r.direction = right
	}

	if pressed {
		r.leftMotor.Go(0)
		r.rightMotor.Go(0)
		return nil
	}
	drive(r.leftMotor, r.rightMotor, r.direction)
	return nil
}

type percentageMotor interface {
	Go(percentage int)
}

func drive(l, r percentageMotor, d direction) {
	switch d {
	case forward:
		l.Go(forwardPercentage)
		r.Go(forwardPercentage)
	case left:
		l.Go(turnCorrectionPercentage)
		r.Go(forwardPercentage)
	case right:
		l.Go(forwardPercentage)
		r.Go(turnCorrectionPercentage)
	}
}
