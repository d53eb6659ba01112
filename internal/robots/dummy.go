package robots

import "github.com/san-kum/linesim/internal/hardware"

// Dummy stands still. It is used when no control program was chosen.
type Dummy struct {
	hardware.Board
}

func (d *Dummy) Setup() error        { return nil }
func (d *Dummy) Loop() error         { return nil }
func (d *Dummy) FirstSensorPin() int { return 3 }

func (d *Dummy) MotorsMicroseconds() hardware.Motors {
	return hardware.Motors{Left: hardware.StopMicroseconds, Right: hardware.StopMicroseconds}
}
