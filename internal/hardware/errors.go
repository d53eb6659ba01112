package hardware

import (
	"errors"
	"fmt"
)

// ErrInvalidPinAccess indicates a read of a non-input pin or a write of a
// non-output pin.
var ErrInvalidPinAccess = errors.New("hardware: invalid pin access")

// PinError describes a pin access that violated the pin's mode.
type PinError struct {
	Op   string
	Pin  int
	Mode PinMode
}

func (e *PinError) Error() string {
	if e.Pin < 0 || e.Pin >= PinCount {
		return fmt.Sprintf("hardware: %s: pin %d out of range [0, %d)", e.Op, e.Pin, PinCount)
	}
	return fmt.Sprintf("hardware: %s: pin %d is in %s mode", e.Op, e.Pin, e.Mode)
}

func (e *PinError) Unwrap() error {
	return ErrInvalidPinAccess
}
