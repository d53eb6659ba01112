package hardware

const (
	PinCount         = 32
	SensorCount      = 5
	StopMicroseconds = 1500
)

type PinMode int

const (
	Input PinMode = iota
	Output
	InputPullup
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	case InputPullup:
		return "input_pullup"
	default:
		return "unknown"
	}
}

// Motors holds the pulse widths of both motors in microseconds.
type Motors struct {
	Left  int
	Right int
}

// Robot is the capability set of a control program.
type Robot interface {
	Setup() error
	Loop() error
	MotorsMicroseconds() Motors
	FirstSensorPin() int
	// Hardware exposes the pin and clock state to the simulator. It is
	// provided by an embedded Board.
	Hardware() *Board
}

// Describer is implemented by control programs that can summarize their
// internal state for display.
type Describer interface {
	InternalState() string
}

// Board holds the pin modes, pin values and clock of one control program.
// The zero value has every pin in Input mode and the clock at zero.
type Board struct {
	millis int64
	modes  [PinCount]PinMode
	values [PinCount]bool
}

func (b *Board) Hardware() *Board { return b }

func (b *Board) Millis() int64 { return b.millis }

// PinMode sets the mode of pin. InputPullup pins read true (released)
// right after the mode is assigned.
func (b *Board) PinMode(pin int, mode PinMode) {
	if !validPin(pin) {
		return
	}
	b.modes[pin] = mode
	if mode == InputPullup {
		b.values[pin] = true
	}
}

func (b *Board) DigitalRead(pin int) (bool, error) {
	if !validPin(pin) {
		return false, &PinError{Op: "digital read", Pin: pin}
	}
	if m := b.modes[pin]; m != Input && m != InputPullup {
		return false, &PinError{Op: "digital read", Pin: pin, Mode: m}
	}
	return b.values[pin], nil
}

func (b *Board) DigitalWrite(pin int, value bool) error {
	if !validPin(pin) {
		return &PinError{Op: "digital write", Pin: pin}
	}
	if m := b.modes[pin]; m != Output {
		return &PinError{Op: "digital write", Pin: pin, Mode: m}
	}
	b.values[pin] = value
	return nil
}

func validPin(pin int) bool {
	return pin >= 0 && pin < PinCount
}
