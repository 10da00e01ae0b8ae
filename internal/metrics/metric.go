// Package metrics scores flow predictions against reference samples.
package metrics

import (
	"fmt"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/dataset"
	"github.com/san-kum/aeropinn/internal/models"
)

type Metric interface {
	Name() string
	Observe(pred []aero.Prediction, b dataset.Batch)
	Value() float64
	Reset()
}

// Field selects one predicted quantity.
type Field int

const (
	FieldU Field = iota
	FieldV
	FieldP
)

func (f Field) String() string {
	switch f {
	case FieldU:
		return "u"
	case FieldV:
		return "v"
	case FieldP:
		return "p"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func (f Field) split(pred []aero.Prediction, b dataset.Batch) (got, want []float64) {
	got = make([]float64, len(pred))
	for i, p := range pred {
		switch f {
		case FieldU:
			got[i] = p.U
		case FieldV:
			got[i] = p.V
		default:
			got[i] = p.P
		}
	}
	switch f {
	case FieldU:
		return got, b.U
	case FieldV:
		return got, b.V
	default:
		return got, b.P
	}
}

// Standard is the set reported after training.
func Standard() []Metric {
	return []Metric{
		NewRMSE(FieldU), NewRMSE(FieldV), NewRMSE(FieldP),
		NewBias(FieldU), NewBias(FieldV), NewBias(FieldP),
		NewDataMSE(),
		NewWithinTolerance(0.1),
	}
}

// Collect resets ms, observes model predictions on every batch and returns
// the values by metric name.
func Collect(model *models.FlowModel, batches []dataset.Batch, cond aero.FlowCondition, ms ...Metric) (map[string]float64, error) {
	for _, m := range ms {
		m.Reset()
	}
	for _, b := range batches {
		pred, err := model.Predict(b.X, b.Y, b.AoA, cond)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			m.Observe(pred, b)
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out, nil
}
