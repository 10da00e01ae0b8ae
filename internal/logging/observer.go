package logging

import (
	"time"

	"github.com/san-kum/aeropinn/internal/trainer"
)

// Observer reports trainer events to a Logger. Every epoch is logged at
// debug level; every Every-th epoch and the last one at info.
type Observer struct {
	log    Logger
	Every  int
	epochs int
	start  time.Time
}

func NewObserver(log Logger, every int) *Observer {
	return &Observer{log: log, Every: every}
}

func (o *Observer) OnTrainBegin(cfg trainer.Config, batches int) {
	o.epochs = cfg.Epochs
	o.start = time.Now()
	o.log.Info("training started",
		Int("epochs", cfg.Epochs),
		Int("batches", batches),
		Float64("physics_weight", cfg.PhysicsWeight),
		Float64("lr", cfg.LearningRate),
		Any("condition", cfg.Condition),
	)
}

func (o *Observer) OnEpochEnd(r trainer.Record) {
	fields := []Field{
		Int("epoch", r.Epoch+1),
		Float64("data", r.DataLoss),
		Float64("physics", r.PhysicsLoss),
		Float64("total", r.TotalLoss),
		Float64("lr", r.LearningRate),
	}
	if r.ValData != 0 || r.ValPhysics != 0 {
		fields = append(fields, Float64("val_data", r.ValData), Float64("val_physics", r.ValPhysics))
	}
	if (o.Every > 0 && (r.Epoch+1)%o.Every == 0) || r.Epoch+1 == o.epochs {
		o.log.Info("epoch", fields...)
		return
	}
	o.log.Debug("epoch", fields...)
}

func (o *Observer) OnCheckpoint(epoch int, name string) {
	o.log.Info("checkpoint", Int("epoch", epoch), String("file", name))
}

func (o *Observer) OnTrainEnd(h trainer.History, err error) {
	elapsed := time.Since(o.start).Round(time.Millisecond)
	if err != nil {
		o.log.Error("training failed", Int("epochs_completed", len(h)), Duration("elapsed", elapsed), Err(err))
		return
	}
	fields := []Field{Int("epochs", len(h)), Duration("elapsed", elapsed)}
	if last, ok := h.Last(); ok {
		fields = append(fields, Float64("total", last.TotalLoss))
	}
	o.log.Info("training completed", fields...)
}
