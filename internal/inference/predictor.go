// Package inference serves predictions from trained checkpoints.
package inference

import (
	"fmt"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/checkpoint"
	"github.com/san-kum/aeropinn/internal/models"
)

// Point is one query location.
type Point struct {
	X, Y float64
	AoA  float64
}

// Predictor answers flow queries from a fixed set of parameters. It never
// mutates the model, so concurrent Predict calls are safe.
type Predictor struct {
	model *models.FlowModel
	name  string
}

func New(model *models.FlowModel) *Predictor {
	return &Predictor{model: model}
}

// Load restores the named checkpoint into a fresh model. A zero arch
// accepts the architecture stored in the file; otherwise the file must
// match arch.
func Load(store *checkpoint.Store, name string, arch models.Architecture) (*Predictor, error) {
	snap, err := store.Read(name)
	if err != nil {
		return nil, err
	}
	if arch != (models.Architecture{}) {
		if err := snap.Check(arch); err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", name, err)
		}
	}
	model, err := models.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	return &Predictor{model: model, name: name}, nil
}

// LoadLatest loads the highest-epoch checkpoint in store.
func LoadLatest(store *checkpoint.Store, arch models.Architecture) (*Predictor, error) {
	latest, err := store.Latest()
	if err != nil {
		return nil, err
	}
	return Load(store, latest.Name, arch)
}

// Checkpoint names the file the predictor was loaded from, if any.
func (p *Predictor) Checkpoint() string { return p.name }

func (p *Predictor) Architecture() models.Architecture { return p.model.Architecture() }

func (p *Predictor) Predict(points []Point, cond aero.FlowCondition) ([]aero.Prediction, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	aoa := make([]float64, len(points))
	for i, pt := range points {
		xs[i], ys[i], aoa[i] = pt.X, pt.Y, pt.AoA
	}
	return p.model.Predict(xs, ys, aoa, cond)
}

func (p *Predictor) PredictOne(pt Point, cond aero.FlowCondition) (aero.Prediction, error) {
	out, err := p.Predict([]Point{pt}, cond)
	if err != nil {
		return aero.Prediction{}, err
	}
	return out[0], nil
}
