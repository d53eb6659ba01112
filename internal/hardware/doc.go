// Package hardware defines the contract a line-following control program
// implements and the board state the simulator drives through it.
//
// A control program embeds [Board] and provides the remaining [Robot]
// methods:
//
//   - Setup: called once when the simulation is constructed
//   - Loop: called once per simulation tick
//   - MotorsMicroseconds: the current pulse width of both motors
//   - FirstSensorPin: sensor i occupies pin FirstSensorPin()+i
//
// # Example
//
//	type Blinker struct {
//	    hardware.Board
//	    left, right hardware.Servo
//	}
//
//	func (b *Blinker) Setup() error { b.PinMode(13, hardware.Output); return nil }
//	func (b *Blinker) Loop() error  { return b.DigitalWrite(13, b.Millis()/500%2 == 0) }
//
// # Pin Modes
//
// Reading a pin is only allowed in [Input] or [InputPullup] mode, writing
// only in [Output] mode. Violations return an error wrapping
// [ErrInvalidPinAccess].
//
// # Simulator Side
//
// The clock and the sensor pins are driven through a [Harness] obtained
// with [Attach]. A Harness writes pins regardless of their mode.
package hardware
