package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/checkpoint"
	"github.com/san-kum/aeropinn/internal/dataset"
	"github.com/san-kum/aeropinn/internal/models"
	"github.com/san-kum/aeropinn/internal/optim"
	"github.com/san-kum/aeropinn/internal/physics"
)

type Trainer struct {
	cfg       Config
	model     *models.FlowModel
	train     *dataset.Loader
	val       *dataset.Loader
	opt       optim.Optimizer
	residual  Residual
	sink      CheckpointSink
	observers []Observer

	mu      sync.Mutex
	state   State
	ran     bool
	history History
}

// New prepares a run of model over the train loader. Adam at
// cfg.LearningRate and the Navier-Stokes evaluator for cfg.Condition are
// used unless replaced before Train.
func New(model *models.FlowModel, train *dataset.Loader, cfg Config) (*Trainer, error) {
	if model == nil || train == nil {
		return nil, errors.New("trainer: model and training loader are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	residual, err := physics.New(cfg.Condition)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	return &Trainer{
		cfg:       cfg,
		model:     model,
		train:     train,
		opt:       optim.NewAdam(cfg.LearningRate),
		residual:  residual,
		observers: make([]Observer, 0),
		history:   make(History, 0, cfg.Epochs),
	}, nil
}

func (t *Trainer) SetOptimizer(opt optim.Optimizer) { t.opt = opt }
func (t *Trainer) SetResidual(r Residual)          { t.residual = r }
func (t *Trainer) SetValidation(l *dataset.Loader) { t.val = l }
func (t *Trainer) SetCheckpoints(s CheckpointSink) { t.sink = s }
func (t *Trainer) AddObserver(o Observer)          { t.observers = append(t.observers, o) }

func (t *Trainer) Config() Config { return t.cfg }

func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// History returns a copy of the records appended so far.
func (t *Trainer) History() History {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append(History(nil), t.history...)
}

func (t *Trainer) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Train runs every configured epoch and returns the history. ctx is checked
// only between epochs. On failure the error is a *RunError carrying the
// history completed so far.
func (t *Trainer) Train(ctx context.Context) (History, error) {
	t.mu.Lock()
	if t.ran {
		t.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	t.ran = true
	t.state = Training
	t.mu.Unlock()

	t.opt.SetLearningRate(t.cfg.LearningRate)
	sched := optim.NewStepLR(t.opt, t.cfg.DecayStep, t.cfg.DecayGamma)
	w := newWriter(ctx, t.sink)

	for _, o := range t.observers {
		o.OnTrainBegin(t.cfg, t.train.NumBatches())
	}

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return t.fail(w, &RunError{Epoch: epoch, Batch: -1, Err: err})
		}
		if w.Failed() {
			return t.fail(w, &RunError{Epoch: epoch, Batch: -1, Err: w.Wait()})
		}

		rec, runErr := t.runEpoch(epoch)
		if runErr != nil {
			return t.fail(w, runErr)
		}
		rec.LearningRate = t.opt.LearningRate()

		if t.val != nil {
			vd, vp, err := Evaluate(t.model, t.val.Epoch(), t.residual, t.cfg.Condition)
			if err != nil {
				return t.fail(w, &RunError{Epoch: epoch, Batch: -1, Err: fmt.Errorf("validation: %w", err)})
			}
			rec.ValData, rec.ValPhysics = vd, vp
		}

		t.mu.Lock()
		t.history = append(t.history, rec)
		t.mu.Unlock()
		for _, o := range t.observers {
			o.OnEpochEnd(rec)
		}

		if every := t.cfg.CheckpointEvery; every > 0 && (epoch+1)%every == 0 {
			t.setState(Checkpointing)
			name := checkpoint.Name(epoch + 1)
			for _, o := range t.observers {
				o.OnCheckpoint(epoch+1, name)
			}
			w.Submit(name, t.model.Snapshot())
			t.setState(Training)
		}

		sched.Step()
	}

	if err := w.Wait(); err != nil {
		return t.fail(w, &RunError{Epoch: t.cfg.Epochs - 1, Batch: -1, Err: err})
	}

	t.setState(Completed)
	h := t.History()
	for _, o := range t.observers {
		o.OnTrainEnd(h, nil)
	}
	return h, nil
}

func (t *Trainer) fail(w *writer, e *RunError) (History, error) {
	if werr := w.Wait(); werr != nil && !errors.Is(e.Err, werr) {
		e.Err = errors.Join(e.Err, werr)
	}
	t.setState(Failed)
	e.History = t.History()
	for _, o := range t.observers {
		o.OnTrainEnd(e.History, e)
	}
	return e.History, e
}

func (t *Trainer) runEpoch(epoch int) (Record, *RunError) {
	batches := t.train.Epoch()
	var data, phys, total float64
	for i, b := range batches {
		d, p, err := t.step(b)
		if err != nil {
			return Record{}, &RunError{Epoch: epoch, Batch: i, DataLoss: d, PhysicsLoss: p, Err: err}
		}
		data += d
		phys += p
		total += d + t.cfg.PhysicsWeight*p
	}
	n := float64(len(batches))
	return Record{
		Epoch:       epoch,
		DataLoss:    data / n,
		PhysicsLoss: phys / n,
		TotalLoss:   total / n,
	}, nil
}

// step performs one optimizer update and returns the batch's data and
// physics losses.
func (t *Trainer) step(b dataset.Batch) (float64, float64, error) {
	in, err := models.Features(b.X, b.Y, b.AoA, t.cfg.Condition)
	if err != nil {
		return 0, 0, err
	}
	tape, err := t.model.Forward(in, models.WithCoordinateGradients)
	if err != nil {
		return 0, 0, err
	}

	data, dataSeed := DataLoss(tape.Fields(), b)
	res, err := t.residual.Evaluate(tape)
	if err != nil {
		return data, 0, err
	}
	w := t.cfg.PhysicsWeight
	if !aero.IsFinite(data, res.Loss, data+w*res.Loss) {
		return data, res.Loss, fmt.Errorf("%w: non-finite loss", aero.ErrNumericalInstability)
	}

	grads, err := tape.Backward(combineSeed(dataSeed, res.Seed, w))
	if err != nil {
		return data, res.Loss, err
	}
	if !grads.IsFinite() {
		return data, res.Loss, fmt.Errorf("%w: non-finite gradient", aero.ErrNumericalInstability)
	}

	g := grads.Slices()
	optim.ClipGradNorm(g, t.cfg.ClipNorm)
	if err := t.opt.Step(t.model.Parameters(), g); err != nil {
		return data, res.Loss, err
	}
	return data, res.Loss, nil
}

// Evaluate returns the mean data and physics losses of model over batches
// without updating parameters.
func Evaluate(model *models.FlowModel, batches []dataset.Batch, residual Residual, cond aero.FlowCondition) (float64, float64, error) {
	if len(batches) == 0 {
		return 0, 0, fmt.Errorf("evaluate: %w: no batches", aero.ErrInsufficientData)
	}
	var data, phys float64
	for _, b := range batches {
		in, err := models.Features(b.X, b.Y, b.AoA, cond)
		if err != nil {
			return 0, 0, err
		}
		tape, err := model.Forward(in, models.WithCoordinateGradients)
		if err != nil {
			return 0, 0, err
		}
		d, _ := DataLoss(tape.Fields(), b)
		res, err := residual.Evaluate(tape)
		if err != nil {
			return 0, 0, err
		}
		data += d
		phys += res.Loss
	}
	n := float64(len(batches))
	return data / n, phys / n, nil
}
