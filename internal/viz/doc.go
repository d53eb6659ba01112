// Package viz renders the live mode in the terminal.
//
// The track is sampled once into a braille [Canvas]; every frame the robot
// body, its sensor rays and optionally its trajectory are drawn on a copy.
// [Model] is a Bubble Tea model that ticks a live.Session at roughly wall
// clock pace.
//
// # Key Bindings
//
//	Space - Run/Pause
//	Tab   - Select next button pin
//	B     - Press or release the selected button
//	T     - Toggle the trajectory
//	Q     - Quit
package viz
