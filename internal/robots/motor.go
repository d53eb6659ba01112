package robots

import "github.com/san-kum/linesim/internal/hardware"

// Motor drives a continuous rotation servo by percentage. Mirrored motors
// are created with forward set to false.
type Motor struct {
	hardware.Servo
	forward bool
	speed   int
}

func NewMotor(forward bool) *Motor {
	return &Motor{forward: forward}
}

func (m *Motor) Go(percentage int) {
	m.speed = percentage
	m.WriteMicroseconds(hardware.StopMicroseconds + m.direction()*percentage)
}

func (m *Motor) Speed() int { return m.speed }

func (m *Motor) direction() int {
	if m.forward {
		return 1
	}
	return -1
}

// RampMotor approaches its target percentage with a proportional
// controller evaluated once per call.
type RampMotor struct {
	Motor
	gain        float64
	coefficient int
}

func NewRampMotor(forward bool, gain float64, coefficient int) *RampMotor {
	return &RampMotor{Motor: Motor{forward: forward}, gain: gain, coefficient: coefficient}
}

func (m *RampMotor) Go(percentage int) {
	if percentage == m.speed {
		return
	}
	m.speed += int(m.gain * float64(percentage-m.speed))
	if d := m.speed - percentage; d == 1 || d == -1 {
		m.speed = percentage
	}
	m.WriteMicroseconds(hardware.StopMicroseconds + m.direction()*m.speed*m.coefficient)
}
