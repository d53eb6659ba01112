package hardware

// Servo tracks the pulse width written to a continuous rotation servo.
// The zero value is stopped.
type Servo struct {
	offset int
}

func (s *Servo) WriteMicroseconds(us int) {
	s.offset = us - StopMicroseconds
}

func (s *Servo) Microseconds() int {
	return StopMicroseconds + s.offset
}
