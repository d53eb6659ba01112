package sim

import (
	"math/rand"

	"github.com/san-kum/linesim/internal/kinematics"
)

// NoiseConfig controls the randomization applied to batch members. Each
// kind of noise has its own toggle.
type NoiseConfig struct {
	RandomInterval     bool `json:"random_interval" yaml:"random_interval"`
	IntervalDifference int  `json:"interval_difference" yaml:"interval_difference"`

	RandomPosition     bool    `json:"random_position" yaml:"random_position"`
	PositionDifference float64 `json:"position_difference" yaml:"position_difference"`
	RotationDifference float64 `json:"rotation_difference" yaml:"rotation_difference"`

	RandomSensors         bool    `json:"random_sensors" yaml:"random_sensors"`
	SensorErrorLikelihood float64 `json:"sensor_error_likelihood" yaml:"sensor_error_likelihood"`

	RandomMotors    bool `json:"random_motors" yaml:"random_motors"`
	MotorDifference int  `json:"motor_difference" yaml:"motor_difference"`
}

func DefaultNoise() NoiseConfig {
	return NoiseConfig{
		RandomInterval:        true,
		IntervalDifference:    3,
		RandomPosition:        true,
		PositionDifference:    10,
		RotationDifference:    0.25,
		RandomSensors:         true,
		SensorErrorLikelihood: 0.00001,
		RandomMotors:          true,
		MotorDifference:       20,
	}
}

// RandomIntPM returns a uniform integer in [-v, v].
func RandomIntPM(r *rand.Rand, v int) int {
	if v <= 0 {
		return 0
	}
	return r.Intn(2*v+1) - v
}

// RandomFloatPM returns a uniform float in [-1, 1).
func RandomFloatPM(r *rand.Rand) float64 {
	return r.Float64()*2 - 1
}

// JitterPose shifts p by up to PositionDifference on each axis and rotates
// it by up to RotationDifference.
func (n NoiseConfig) JitterPose(r *rand.Rand, p kinematics.Pose) kinematics.Pose {
	if !n.RandomPosition {
		return p
	}
	return kinematics.Pose{
		X:        p.X + RandomFloatPM(r)*n.PositionDifference,
		Y:        p.Y + RandomFloatPM(r)*n.PositionDifference,
		Rotation: p.Rotation + RandomFloatPM(r)*n.RotationDifference,
	}
}

// Interval returns base jittered by up to IntervalDifference.
func (n NoiseConfig) Interval(r *rand.Rand, base int) int {
	if !n.RandomInterval {
		return base
	}
	return base + RandomIntPM(r, n.IntervalDifference)
}
