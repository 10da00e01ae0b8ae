package trainer

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/models"
	"github.com/san-kum/aeropinn/internal/optim"
	"github.com/san-kum/aeropinn/internal/physics"
)

const DefaultCheckpointEvery = 10

var ErrAlreadyRun = errors.New("trainer: already run")

type State int

const (
	Idle State = iota
	Training
	Checkpointing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Training:
		return "training"
	case Checkpointing:
		return "checkpointing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	Epochs          int
	PhysicsWeight   float64
	LearningRate    float64
	ClipNorm        float64
	CheckpointEvery int
	DecayStep       int
	DecayGamma      float64
	Condition       aero.FlowCondition
}

func DefaultConfig() Config {
	return Config{
		Epochs:          100,
		PhysicsWeight:   1.0,
		LearningRate:    optim.DefaultLearningRate,
		ClipNorm:        optim.DefaultClipNorm,
		CheckpointEvery: DefaultCheckpointEvery,
		DecayStep:       optim.DefaultDecayStep,
		DecayGamma:      optim.DefaultDecayGamma,
		Condition:       aero.FlowCondition{Reynolds: 1e6, Mach: 0.3},
	}
}

func (c Config) Validate() error {
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be at least 1, got %d", c.Epochs)
	}
	if c.PhysicsWeight < 0 || !aero.IsFinite(c.PhysicsWeight) {
		return fmt.Errorf("physics weight must be finite and non-negative, got %g", c.PhysicsWeight)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.ClipNorm <= 0 {
		return fmt.Errorf("clip norm must be positive, got %g", c.ClipNorm)
	}
	if c.DecayStep < 1 {
		return fmt.Errorf("decay step must be at least 1, got %d", c.DecayStep)
	}
	if c.DecayGamma <= 0 || c.DecayGamma > 1 {
		return fmt.Errorf("decay gamma must be in (0, 1], got %g", c.DecayGamma)
	}
	return c.Condition.Validate()
}

// Record is one epoch of training history. The validation fields are zero
// when no validation batches are attached.
type Record struct {
	Epoch        int     `json:"epoch"`
	DataLoss     float64 `json:"data_loss"`
	PhysicsLoss  float64 `json:"physics_loss"`
	TotalLoss    float64 `json:"total_loss"`
	LearningRate float64 `json:"learning_rate"`
	ValData      float64 `json:"val_data,omitempty"`
	ValPhysics   float64 `json:"val_physics,omitempty"`
}

type History []Record

func (h History) Last() (Record, bool) {
	if len(h) == 0 {
		return Record{}, false
	}
	return h[len(h)-1], true
}

// Column extracts one series by name: data, physics, total, lr, val_data
// or val_physics.
func (h History) Column(name string) ([]float64, error) {
	pick, ok := columns[name]
	if !ok {
		return nil, fmt.Errorf("unknown history column: %s", name)
	}
	out := make([]float64, len(h))
	for i, r := range h {
		out[i] = pick(r)
	}
	return out, nil
}

var columns = map[string]func(Record) float64{
	"data":        func(r Record) float64 { return r.DataLoss },
	"physics":     func(r Record) float64 { return r.PhysicsLoss },
	"total":       func(r Record) float64 { return r.TotalLoss },
	"lr":          func(r Record) float64 { return r.LearningRate },
	"val_data":    func(r Record) float64 { return r.ValData },
	"val_physics": func(r Record) float64 { return r.ValPhysics },
}

// Residual computes the physics penalty of a tape and its seed.
// *physics.Evaluator is the production implementation.
type Residual interface {
	Evaluate(tape *models.Tape) (*physics.Result, error)
}

// CheckpointSink persists snapshots by name. *checkpoint.Store satisfies it.
type CheckpointSink interface {
	Save(ctx context.Context, name string, snap *models.Snapshot) error
}

type Observer interface {
	OnTrainBegin(cfg Config, batches int)
	OnEpochEnd(r Record)
	OnCheckpoint(epoch int, name string)
	OnTrainEnd(h History, err error)
}

// RunError reports where a run stopped. History holds every epoch completed
// before the failure.
type RunError struct {
	Epoch       int
	Batch       int
	DataLoss    float64
	PhysicsLoss float64
	History     History
	Err         error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("training failed at epoch %d", e.Epoch)
	if e.Batch >= 0 {
		msg += fmt.Sprintf(", batch %d (data=%.6g physics=%.6g)", e.Batch, e.DataLoss, e.PhysicsLoss)
	}
	return msg + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error { return e.Err }
