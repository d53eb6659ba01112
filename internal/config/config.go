package config

import (
	"fmt"
	"os"

	"github.com/san-kum/linesim/internal/kinematics"
	"github.com/san-kum/linesim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTrackSize      = 1000.0
	DefaultRobot          = "linefollower"
	DefaultLiveIntervalMs = 6
	DefaultIterationLimit = 100_000
	DefaultStartX         = 500.0
	DefaultStartY         = 100.0
)

type Config struct {
	Track TrackConfig     `yaml:"track"`
	Robot RobotConfig     `yaml:"robot"`
	Live  LiveConfig      `yaml:"live"`
	Batch sim.BatchConfig `yaml:"batch"`
}

type TrackConfig struct {
	// Path is a file path or an http(s) URL of a png, jpeg or gif image.
	Path string  `yaml:"path"`
	Size float64 `yaml:"size"`
}

type RobotConfig struct {
	Name           string  `yaml:"name"`
	X              float64 `yaml:"x"`
	Y              float64 `yaml:"y"`
	Rotation       float64 `yaml:"rotation"`
	Size           float64 `yaml:"size"`
	SensorDistance float64 `yaml:"sensor_distance"`
	Speed          float64 `yaml:"speed"`
}

type LiveConfig struct {
	IntervalMs     int `yaml:"interval_ms"`
	IterationLimit int `yaml:"iteration_limit"`
}

func DefaultConfig() *Config {
	rc := sim.DefaultRobotConfig()
	return &Config{
		Track: TrackConfig{Size: DefaultTrackSize},
		Robot: RobotConfig{
			Name:           DefaultRobot,
			X:              DefaultStartX,
			Y:              DefaultStartY,
			Size:           rc.Size,
			SensorDistance: rc.SensorDistance,
			Speed:          rc.Speed,
		},
		Live: LiveConfig{
			IntervalMs:     DefaultLiveIntervalMs,
			IterationLimit: DefaultIterationLimit,
		},
		Batch: sim.DefaultBatchConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Setup returns the initial pose and scale factors of the robot.
func (c *Config) Setup() sim.Setup {
	return sim.Setup{
		Pose: kinematics.Pose{X: c.Robot.X, Y: c.Robot.Y, Rotation: c.Robot.Rotation},
		Config: sim.RobotConfig{
			Size:           c.Robot.Size,
			SensorDistance: c.Robot.SensorDistance,
			Speed:          c.Robot.Speed,
		},
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Track.Size <= 0:
		return fmt.Errorf("config: track size must be positive, got %g", c.Track.Size)
	case c.Robot.Size <= 0:
		return fmt.Errorf("config: robot size must be positive, got %g", c.Robot.Size)
	case c.Live.IntervalMs <= 0:
		return fmt.Errorf("config: live interval must be positive, got %d", c.Live.IntervalMs)
	case c.Live.IterationLimit <= 0:
		return fmt.Errorf("config: iteration limit must be positive, got %d", c.Live.IterationLimit)
	}
	return c.Batch.Validate()
}
