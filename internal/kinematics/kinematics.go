// Package kinematics integrates the pose of a two-wheel differential-drive
// robot over one tick.
package kinematics

import (
	"math"

	"github.com/san-kum/linesim/internal/hardware"
)

const (
	// WheelDistance is the wheel separation in pixels at size 1.
	WheelDistance = 20.0
	// SpeedCoefficient converts microseconds off neutral to px/s at speed 1:
	// 1600 µs drives the left wheel at 50 px/s.
	SpeedCoefficient = 0.5
)

// Pose is a position in world pixels (y grows upward) and a heading in
// radians, 0 facing +x.
type Pose struct {
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
}

// WheelSpeeds converts motor pulse widths into wheel speeds in px/s. The
// right motor is mounted mirrored, so its sign is inverted.
func WheelSpeeds(m hardware.Motors, speedScale float64) (left, right float64) {
	left = float64(m.Left-hardware.StopMicroseconds) * SpeedCoefficient * speedScale
	right = float64(hardware.StopMicroseconds-m.Right) * SpeedCoefficient * speedScale
	return left, right
}

// NextPose moves old along the exact circular arc described by the wheel
// speeds during elapsedMillis.
func NextPose(old Pose, m hardware.Motors, elapsedMillis int, sizeScale, speedScale float64) Pose {
	elapsed := float64(elapsedMillis) / 1000
	left, right := WheelSpeeds(m, speedScale)

	// Pulse widths are integers, so unequal speeds differ by at least
	// 0.5*speedScale and the turn radius below stays finite.
	if left == right {
		distance := left * elapsed
		return Pose{
			X:        old.X + distance*math.Cos(old.Rotation),
			Y:        old.Y + distance*math.Sin(old.Rotation),
			Rotation: old.Rotation,
		}
	}

	wheels := sizeScale * WheelDistance
	dTheta := (right - left) * elapsed / wheels
	radius := wheels * (right + left) / (2 * (right - left))
	theta := old.Rotation + dTheta

	return Pose{
		X:        old.X + radius*(math.Sin(theta)-math.Sin(old.Rotation)),
		Y:        old.Y - radius*(math.Cos(theta)-math.Cos(old.Rotation)),
		Rotation: theta,
	}
}

// Distance returns the euclidean distance between the positions of a and b.
func Distance(a, b Pose) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
