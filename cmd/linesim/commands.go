package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/linesim/internal/config"
	"github.com/san-kum/linesim/internal/export"
	"github.com/san-kum/linesim/internal/hardware"
	"github.com/san-kum/linesim/internal/live"
	"github.com/san-kum/linesim/internal/metrics"
	"github.com/san-kum/linesim/internal/robots"
	"github.com/san-kum/linesim/internal/sim"
	"github.com/san-kum/linesim/internal/storage"
	"github.com/san-kum/linesim/internal/track"
	"github.com/san-kum/linesim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	dummyNotice = "notice: the %s robot is a placeholder that stands still, choose a control program with --robot\n"
	movedNotice = "notice: no simulated robot moved. A batch robot has to start driving on its own; " +
		"it cannot wait for a button press.\n"
)

func loadTrack(ctx context.Context, cfg *config.Config, log *zap.Logger) (*track.Map, error) {
	m, err := track.Load(ctx, cfg.Track.Path, cfg.Track.Size)
	if err != nil {
		return nil, err
	}
	if err := m.Bitmap.PopulateCache(); err != nil {
		return nil, err
	}
	log.Debug("track loaded",
		zap.String("path", cfg.Track.Path),
		zap.Int("width", m.Bitmap.Width()),
		zap.Int("height", m.Bitmap.Height()),
		zap.Float64("scale", m.Scale),
	)
	return m, nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m, err := loadTrack(ctx, cfg, log)
	if err != nil {
		return err
	}
	robot, err := robots.NewRegistry().Get(cfg.Robot.Name)
	if err != nil {
		return err
	}
	if cfg.Robot.Name == robots.Placeholder {
		fmt.Printf(dummyNotice, cfg.Robot.Name)
	}

	s, err := sim.New(robot, cfg.Setup(), m.Bitmap, m.Scale)
	if err != nil {
		return err
	}
	session := live.New(s,
		live.WithInterval(cfg.Live.IntervalMs),
		live.WithIterationLimit(cfg.Live.IterationLimit),
		live.WithLogger(log),
	)
	defer session.Dispose()

	if headless {
		err := session.Loop(ctx)
		p := s.Pose()
		fmt.Printf("time: %d ms\n", s.Time())
		fmt.Printf("pose: x=%.2f y=%.2f rotation=%.3f\n", p.X, p.Y, p.Rotation)
		if d, ok := robot.(hardware.Describer); ok {
			fmt.Printf("state: %s\n", d.InternalState())
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	final, err := tea.NewProgram(viz.NewModel(session, m, cfg.Robot.Name), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if model, ok := final.(viz.Model); ok && model.Err() != nil {
		return model.Err()
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m, err := loadTrack(ctx, cfg, log)
	if err != nil {
		return err
	}
	factory, err := robots.NewRegistry().Factory(cfg.Robot.Name)
	if err != nil {
		return err
	}

	pool := sim.NewHistoryPool(cfg.Batch.IterationCount + 1)
	batch := sim.NewBatch(factory, cfg.Setup(), m, cfg.Batch,
		sim.WithLogger(log),
		sim.WithPool(pool),
	)

	fmt.Printf("running %d %s robots for %d iterations (seed %d)...\n",
		cfg.Batch.RobotCount, cfg.Robot.Name, cfg.Batch.IterationCount, cfg.Batch.Seed)
	start := time.Now()

	if err := batch.Prepare(ctx); err != nil {
		if errors.Is(err, sim.ErrCanceled) {
			fmt.Println("canceled")
			return nil
		}
		return err
	}
	defer batch.Release()

	runErr := batch.Run(ctx)
	if errors.Is(runErr, sim.ErrCanceled) {
		fmt.Println("canceled")
		return nil
	}
	var fault *sim.RobotFault
	if runErr != nil && !errors.As(runErr, &fault) {
		return runErr
	}

	elapsed := time.Since(start)
	trajectories := batch.Trajectories()
	summary := metrics.Summarize(trajectories)

	var faults []string
	for _, f := range batch.Faults() {
		if f != nil {
			faults = append(faults, f.Error())
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Robot:     cfg.Robot.Name,
		Track:     cfg.Track.Path,
		TrackSize: cfg.Track.Size,
		Setup:     cfg.Setup(),
		Batch:     cfg.Batch,
		Moved:     batch.AnyRobotMoved(),
		Faults:    faults,
		Metrics:   summary.Map(),
	}, trajectories)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n\n", runID)
	if err := printSummary(summary, len(faults)); err != nil {
		return err
	}

	if svgOut != "" {
		if err := writeSVG(svgOut, m, trajectories); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", svgOut)
	}

	switch {
	case cfg.Robot.Name == robots.Placeholder:
		fmt.Printf("\n"+dummyNotice, cfg.Robot.Name)
	case !batch.AnyRobotMoved():
		fmt.Print("\n" + movedNotice)
	}

	if runErr != nil {
		return fmt.Errorf("%d of %d robots faulted, first: %w", len(faults), cfg.Batch.RobotCount, runErr)
	}
	return nil
}

func printSummary(s metrics.Summary, faults int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "robots\t%d\n", s.Robots)
	fmt.Fprintf(w, "moved\t%d\n", s.Moved)
	fmt.Fprintf(w, "faulted\t%d\n", faults)
	fmt.Fprintf(w, "duration\t%.2fs\n", float64(s.DurationMs)/1000)
	fmt.Fprintf(w, "mean path length\t%.1f\n", s.MeanPathLength)
	fmt.Fprintf(w, "max path length\t%.1f\n", s.MaxPathLength)
	fmt.Fprintf(w, "mean displacement\t%.1f\n", s.MeanDisplacement)
	fmt.Fprintf(w, "mean turning\t%.2f rad\n", s.MeanTurning)
	fmt.Fprintf(w, "final spread\t%.1f\n", s.FinalSpread)
	return w.Flush()
}

func writeSVG(path string, m *track.Map, trajectories []sim.Trajectory) error {
	svg, err := export.TrajectoriesSVG(m, trajectories)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(svg), 0644)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROBOT\tTIME\tROBOTS\tITER\tSEED\tMOVED\tFAULTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%t\t%d\n",
			run.ID,
			run.Robot,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Batch.RobotCount,
			run.Batch.IterationCount,
			run.Batch.Seed,
			run.Moved,
			len(run.Faults),
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	trajectories, err := st.LoadTrajectories(runID)
	if err != nil {
		return err
	}
	if len(trajectories) == 0 {
		return fmt.Errorf("no data to plot")
	}

	n := min(max(plotRobots, 1), len(trajectories))
	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("robot: %s\n", meta.Robot)
	fmt.Printf("plotting %d of %d robots\n\n", n, len(trajectories))

	xs := make([][]float64, n)
	ys := make([][]float64, n)
	colors := []asciigraph.AnsiColor{asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow, asciigraph.Cyan}
	for i := 0; i < n; i++ {
		for _, h := range trajectories[i].Samples {
			xs[i] = append(xs[i], h.Pose.X)
			ys[i] = append(ys[i], h.Pose.Y)
		}
	}

	for _, series := range []struct {
		caption string
		data    [][]float64
	}{
		{"x vs time", xs},
		{"y vs time", ys},
	} {
		graph := asciigraph.PlotMany(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.SeriesColors(colors[:min(n, len(colors))]...),
			asciigraph.Caption(series.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID, out := args[0], args[1]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	trajectories, err := st.LoadTrajectories(runID)
	if err != nil {
		return err
	}
	m, err := track.Load(cmd.Context(), meta.Track, meta.TrackSize)
	if err != nil {
		return fmt.Errorf("reload track of run %s: %w", runID, err)
	}

	if !braille {
		return writeSVG(out, m, trajectories)
	}

	c := viz.NewCanvas(60, 30)
	viz.DrawTrack(c, m.Bitmap)
	view := viz.NewViewport(c, m.Size)
	for _, t := range trajectories {
		viz.DrawPath(c, view, t.Points())
	}
	return os.WriteFile(out, []byte(export.CanvasToSVG(c, 4)), 0644)
}

func listRobots(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEFAULT")
	for _, name := range robots.NewRegistry().List() {
		mark := ""
		if name == config.DefaultRobot {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, mark)
	}
	return w.Flush()
}
