package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/linesim/internal/kinematics"
	"github.com/san-kum/linesim/internal/sim"
)

const (
	metadataFile     = "metadata.json"
	trajectoriesFile = "trajectories.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes a finished batch run. ID and Timestamp are set by
// Save.
type RunMetadata struct {
	ID        string             `json:"id"`
	Robot     string             `json:"robot"`
	Track     string             `json:"track"`
	TrackSize float64            `json:"track_size"`
	Timestamp time.Time          `json:"timestamp"`
	Setup     sim.Setup          `json:"setup"`
	Batch     sim.BatchConfig    `json:"batch"`
	Moved     bool               `json:"moved"`
	Faults    []string           `json:"faults,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

func (s *Store) Save(meta RunMetadata, trajectories []sim.Trajectory) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now().UTC()
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trajectoriesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"robot", "seed", "time_ms", "x", "y", "rotation"}); err != nil {
		return "", err
	}
	for _, t := range trajectories {
		robot, seed := strconv.Itoa(t.Index), strconv.FormatInt(t.Seed, 10)
		for _, h := range t.Samples {
			row := []string{
				robot,
				seed,
				strconv.Itoa(h.Time),
				strconv.FormatFloat(h.Pose.X, 'g', -1, 64),
				strconv.FormatFloat(h.Pose.Y, 'g', -1, 64),
				strconv.FormatFloat(h.Pose.Rotation, 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns all readable runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrajectories reads the trajectories of a run in the order they were
// saved.
func (s *Store) LoadTrajectories(runID string) ([]sim.Trajectory, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoriesFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 6
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read trajectories: %w", err)
	}

	var trajectories []sim.Trajectory
	index := make(map[int]int)
	for line, rec := range records {
		if line == 0 {
			continue
		}
		item, robot, seed, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("storage: trajectories line %d: %w", line+1, err)
		}
		i, ok := index[robot]
		if !ok {
			i = len(trajectories)
			index[robot] = i
			trajectories = append(trajectories, sim.Trajectory{Index: robot, Seed: seed})
		}
		trajectories[i].Samples = append(trajectories[i].Samples, item)
	}
	return trajectories, nil
}

func parseRow(rec []string) (sim.HistoryItem, int, int64, error) {
	var (
		item sim.HistoryItem
		errs []error
	)
	robot, err := strconv.Atoi(rec[0])
	errs = append(errs, err)
	seed, err := strconv.ParseInt(rec[1], 10, 64)
	errs = append(errs, err)
	item.Time, err = strconv.Atoi(rec[2])
	errs = append(errs, err)

	var p kinematics.Pose
	p.X, err = strconv.ParseFloat(rec[3], 64)
	errs = append(errs, err)
	p.Y, err = strconv.ParseFloat(rec[4], 64)
	errs = append(errs, err)
	p.Rotation, err = strconv.ParseFloat(rec[5], 64)
	errs = append(errs, err)
	item.Pose = p

	return item, robot, seed, errors.Join(errs...)
}
