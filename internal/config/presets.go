package config

import (
	"sort"

	"github.com/san-kum/linesim/internal/sim"
)

// Presets adjust the batch section of the default configuration.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"exact": func(c *Config) {
		c.Batch.RobotCount = 1
		c.Batch.Noise = sim.NoiseConfig{}
	},
	"calm": func(c *Config) {
		c.Batch.RobotCount = 20
		c.Batch.Noise.IntervalDifference = 1
		c.Batch.Noise.PositionDifference = 2
		c.Batch.Noise.RotationDifference = 0.05
		c.Batch.Noise.RandomSensors = false
		c.Batch.Noise.MotorDifference = 5
	},
	"stress": func(c *Config) {
		c.Batch.RobotCount = 200
		c.Batch.IterationCount = 20_000
		c.Batch.Noise.IntervalDifference = 5
		c.Batch.Noise.PositionDifference = 25
		c.Batch.Noise.RotationDifference = 0.5
		c.Batch.Noise.SensorErrorLikelihood = 0.001
		c.Batch.Noise.MotorDifference = 50
	},
	"quick": func(c *Config) {
		c.Batch.RobotCount = 10
		c.Batch.IterationCount = 2_000
	},
}

// GetPreset returns the default configuration with the named preset
// applied, or nil if there is no such preset.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
