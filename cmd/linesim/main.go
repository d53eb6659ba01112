package main

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/linesim/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string

	trackPath string
	trackSize float64
	robotName string
	startX    float64
	startY    float64
	rotation  float64

	robotCount int
	iterations int
	seed       int64
	workers    int
	noNoise    bool
	svgOut     string

	iterationLimit int
	headless       bool

	plotRobots int
	braille    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "linesim",
		Short:         "line-following robot simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".linesim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "drive one robot in real time in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSetupFlags(liveCmd)
	liveCmd.Flags().IntVar(&iterationLimit, "limit", config.DefaultIterationLimit, "ticks per run")
	liveCmd.Flags().BoolVar(&headless, "headless", false, "run without the terminal UI and print the final pose")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "run many randomized robots in parallel and save their trajectories",
		Args:  cobra.NoArgs,
		RunE:  runBatch,
	}
	addSetupFlags(batchCmd)
	batchCmd.Flags().IntVar(&robotCount, "robots", 50, "number of simulated robots")
	batchCmd.Flags().IntVar(&iterations, "iterations", 10_000, "ticks per robot")
	batchCmd.Flags().Int64Var(&seed, "seed", 0, "master seed (0 picks one from the clock)")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 uses GOMAXPROCS)")
	batchCmd.Flags().BoolVar(&noNoise, "no-noise", false, "disable all randomization")
	batchCmd.Flags().StringVar(&svgOut, "svg", "", "also write the trajectories to this SVG file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved batch runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot robot positions over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotRobots, "robots", 3, "number of robots to plot")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [file]",
		Short: "render a run's track and trajectories as SVG",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().BoolVar(&braille, "braille", false, "render the terminal preview instead of the full track")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available batch presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	robotsCmd := &cobra.Command{
		Use:   "robots",
		Short: "list available control programs",
		Args:  cobra.NoArgs,
		RunE:  listRobots,
	}

	rootCmd.AddCommand(liveCmd, batchCmd, listCmd, plotCmd, exportSVGCmd, presetsCmd, robotsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSetupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVarP(&trackPath, "track", "t", "", "track image path or URL")
	cmd.Flags().Float64Var(&trackSize, "size", config.DefaultTrackSize, "world size of the longer track side")
	cmd.Flags().StringVarP(&robotName, "robot", "r", config.DefaultRobot, "control program")
	cmd.Flags().Float64Var(&startX, "x", config.DefaultStartX, "start x")
	cmd.Flags().Float64Var(&startY, "y", config.DefaultStartY, "start y")
	cmd.Flags().Float64Var(&rotation, "rotation", 0, "start rotation in radians")
}

// loadConfig layers defaults, preset, config file and changed flags, in
// that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("track") {
		cfg.Track.Path = trackPath
	}
	if flags.Changed("size") {
		cfg.Track.Size = trackSize
	}
	if flags.Changed("robot") {
		cfg.Robot.Name = robotName
	}
	if flags.Changed("x") {
		cfg.Robot.X = startX
	}
	if flags.Changed("y") {
		cfg.Robot.Y = startY
	}
	if flags.Changed("rotation") {
		cfg.Robot.Rotation = rotation
	}
	if flags.Changed("limit") {
		cfg.Live.IterationLimit = iterationLimit
	}
	if flags.Changed("robots") {
		cfg.Batch.RobotCount = robotCount
	}
	if flags.Changed("iterations") {
		cfg.Batch.IterationCount = iterations
	}
	if flags.Changed("seed") {
		cfg.Batch.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Batch.Workers = workers
	}
	if noNoise {
		cfg.Batch.Noise = config.GetPreset("exact").Batch.Noise
	}
	if cfg.Batch.Seed == 0 {
		cfg.Batch.Seed = time.Now().UnixNano()
	}

	if cfg.Track.Path == "" {
		return nil, fmt.Errorf("no track given: use --track or set track.path in the config")
	}
	return cfg, cfg.Validate()
}

func newLogger() (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.DisableStacktrace = !verbose
	return zc.Build()
}
