package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/metrics"
	"github.com/san-kum/aeropinn/internal/models"
	"github.com/san-kum/aeropinn/internal/optim"
	"github.com/san-kum/aeropinn/internal/physics"
)

type Registry struct {
	optimizers map[string]func(lr float64) optim.Optimizer
	residuals  map[string]func(cond aero.FlowCondition) (physics.Residual, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		optimizers: make(map[string]func(float64) optim.Optimizer),
		residuals:  make(map[string]func(aero.FlowCondition) (physics.Residual, error)),
	}

	r.optimizers["adam"] = func(lr float64) optim.Optimizer { return optim.NewAdam(lr) }
	r.optimizers["sgd"] = func(lr float64) optim.Optimizer { return optim.NewSGD(lr, 0) }
	r.optimizers["momentum"] = func(lr float64) optim.Optimizer { return optim.NewSGD(lr, 0.9) }

	for _, name := range physics.Names() {
		name := name
		r.residuals[name] = func(cond aero.FlowCondition) (physics.Residual, error) {
			return physics.ByName(name, cond)
		}
	}
	return r
}

func (r *Registry) GetOptimizer(name string, lr float64) (optim.Optimizer, error) {
	if name == "" {
		name = "adam"
	}
	fn, ok := r.optimizers[name]
	if !ok {
		return nil, fmt.Errorf("unknown optimizer: %s", name)
	}
	return fn(lr), nil
}

func (r *Registry) GetResidual(name string, cond aero.FlowCondition) (physics.Residual, error) {
	if name == "" {
		name = "navier_stokes"
	}
	fn, ok := r.residuals[name]
	if !ok {
		return nil, fmt.Errorf("unknown residual: %s", name)
	}
	return fn(cond)
}

func (r *Registry) ListOptimizers() []string { return sortedKeys(r.optimizers) }
func (r *Registry) ListResiduals() []string  { return sortedKeys(r.residuals) }
func (r *Registry) ListActivations() []string { return models.ListActivations() }

func (r *Registry) DefaultMetrics() []metrics.Metric {
	return metrics.Standard()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
