package robots

import "github.com/san-kum/linesim/internal/hardware"

// sensorBar reads the five line sensors of a board.
type sensorBar struct {
	board *hardware.Board
	first int
}

func (s sensorBar) setup() {
	for i := 0; i < hardware.SensorCount; i++ {
		s.board.PinMode(s.first+i, hardware.Input)
	}
}

// black reports whether sensor i sees the line.
func (s sensorBar) black(i int) (bool, error) {
	white, err := s.board.DigitalRead(s.first + i)
	return !white, err
}

func (s sensorBar) readAll(dst *[hardware.SensorCount]bool) error {
	for i := range dst {
		v, err := s.black(i)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}
