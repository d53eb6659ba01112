package sim

import (
	"fmt"

	"github.com/san-kum/linesim/internal/hardware"
	"github.com/san-kum/linesim/internal/kinematics"
)

// SensorOffsetsY are the lateral sensor offsets in robot-local pixels at
// size 1, left to right when facing +x.
var SensorOffsetsY = [hardware.SensorCount]float64{10, 3, 0, -3, -10}

// RobotConfig scales a robot. Size scales the wheel separation and sensor
// placement, SensorDistance is the forward offset of the sensor bar and
// Speed scales the motor-to-velocity conversion.
type RobotConfig struct {
	Size           float64 `json:"size" yaml:"size"`
	SensorDistance float64 `json:"sensor_distance" yaml:"sensor_distance"`
	Speed          float64 `json:"speed" yaml:"speed"`
}

func DefaultRobotConfig() RobotConfig {
	return RobotConfig{Size: 1, SensorDistance: 15, Speed: 1}
}

type Setup struct {
	Pose   kinematics.Pose `json:"pose" yaml:"pose"`
	Config RobotConfig     `json:"config" yaml:"config"`
}

type HistoryItem struct {
	Pose kinematics.Pose
	Time int
}

type Point struct {
	X, Y float64
}

// RobotFault wraps an error returned or a panic raised by the control
// program.
type RobotFault struct {
	Phase   string
	Time    int
	Wrapped error
}

func (e *RobotFault) Error() string {
	return fmt.Sprintf("sim: robot fault in %s at %d ms: %v", e.Phase, e.Time, e.Wrapped)
}

func (e *RobotFault) Unwrap() error {
	return e.Wrapped
}
