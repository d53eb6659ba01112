package hardware

// Harness is the simulator side of a Board: it advances the clock and
// drives pin values regardless of their mode. Control programs only see
// the Board methods; Attach is for the simulator and for tests.
type Harness struct {
	b *Board
}

func Attach(b *Board) Harness { return Harness{b: b} }

func (h Harness) Board() *Board { return h.b }

// AddMillis advances the clock. Negative values are ignored.
func (h Harness) AddMillis(ms int) {
	if ms > 0 {
		h.b.millis += int64(ms)
	}
}

func (h Harness) Mode(pin int) PinMode {
	if !validPin(pin) {
		return Input
	}
	return h.b.modes[pin]
}

func (h Harness) Value(pin int) bool {
	if !validPin(pin) {
		return false
	}
	return h.b.values[pin]
}

// SetValue overwrites a pin value regardless of its mode.
func (h Harness) SetValue(pin int, value bool) error {
	if !validPin(pin) {
		return &PinError{Op: "set value", Pin: pin}
	}
	h.b.values[pin] = value
	return nil
}

// Pins returns the pins currently in mode, in ascending order.
func (h Harness) Pins(mode PinMode) []int {
	var pins []int
	for i, m := range h.b.modes {
		if m == mode {
			pins = append(pins, i)
		}
	}
	return pins
}

// CheckSensorPins reports whether all SensorCount pins starting at first
// exist on the board.
func CheckSensorPins(first int) error {
	switch {
	case first < 0:
		return &PinError{Op: "sensor pins", Pin: first}
	case first+SensorCount > PinCount:
		return &PinError{Op: "sensor pins", Pin: first + SensorCount - 1}
	}
	return nil
}
