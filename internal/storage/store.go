package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/models"
	"github.com/san-kum/aeropinn/internal/trainer"
)

const (
	metadataFile  = "metadata.json"
	historyFile   = "history.csv"
	checkpointDir = "checkpoints"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

type RunMetadata struct {
	ID            string              `json:"id"`
	Preset        string              `json:"preset,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
	Status        Status              `json:"status"`
	Error         string              `json:"error,omitempty"`
	Dataset       string              `json:"dataset"`
	Samples       int                 `json:"samples"`
	TrainSize     int                 `json:"train_size"`
	ValSize       int                 `json:"val_size"`
	Seed          int64               `json:"seed"`
	Epochs        int                 `json:"epochs"`
	BatchSize     int                 `json:"batch_size"`
	ValFraction   float64             `json:"val_fraction"`
	PhysicsWeight float64             `json:"physics_weight"`
	LearningRate  float64             `json:"learning_rate"`
	Optimizer     string              `json:"optimizer"`
	Condition     aero.FlowCondition  `json:"condition"`
	Architecture  models.Architecture `json:"architecture"`
	Checkpoints   []string            `json:"checkpoints,omitempty"`
	Metrics       map[string]float64  `json:"metrics,omitempty"`
}

// Create allocates a run directory and fills in meta.ID and
// meta.Timestamp.
func (s *Store) Create(meta *RunMetadata) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%s", now.Format("20060102-150405"), uuid.NewString()[:8])
	meta.Timestamp = now
	if meta.Status == "" {
		meta.Status = StatusRunning
	}
	if err := os.MkdirAll(filepath.Join(s.RunDir(meta.ID), checkpointDir), 0755); err != nil {
		return "", err
	}
	if err := s.writeMetadata(meta); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (s *Store) RunDir(runID string) string { return filepath.Join(s.baseDir, runID) }

func (s *Store) CheckpointDir(runID string) string {
	return filepath.Join(s.RunDir(runID), checkpointDir)
}

// Save rewrites the metadata and history of an existing run.
func (s *Store) Save(meta *RunMetadata, h trainer.History) error {
	if meta.ID == "" {
		return errors.New("storage: run has no id")
	}
	if err := s.writeMetadata(meta); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(s.RunDir(meta.ID), historyFile))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteHistory(f, h); err != nil {
		return err
	}
	return f.Close()
}

func (s *Store) writeMetadata(meta *RunMetadata) error {
	f, err := os.Create(filepath.Join(s.RunDir(meta.ID), metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadHistory(runID string) (trainer.History, error) {
	f, err := os.Open(filepath.Join(s.RunDir(runID), historyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s has no history", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()
	return ReadHistory(f)
}

var historyHeader = []string{
	"epoch", "data_loss", "physics_loss", "total_loss", "learning_rate", "val_data", "val_physics",
}

func WriteHistory(w io.Writer, h trainer.History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}
	for _, r := range h {
		row := []string{strconv.Itoa(r.Epoch)}
		for _, v := range []float64{r.DataLoss, r.PhysicsLoss, r.TotalLoss, r.LearningRate, r.ValData, r.ValPhysics} {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadHistory(r io.Reader) (trainer.History, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(historyHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, errors.New("history: missing header")
	}

	h := make(trainer.History, 0, len(records)-1)
	for i, rec := range records[1:] {
		epoch, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("history line %d: %w", i+2, err)
		}
		var vals [6]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return nil, fmt.Errorf("history line %d: %w", i+2, err)
			}
		}
		h = append(h, trainer.Record{
			Epoch:        epoch,
			DataLoss:     vals[0],
			PhysicsLoss:  vals[1],
			TotalLoss:    vals[2],
			LearningRate: vals[3],
			ValData:      vals[4],
			ValPhysics:   vals[5],
		})
	}
	return h, nil
}
