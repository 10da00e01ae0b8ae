package models

import (
	"fmt"
	"math"
	"sort"
)

// Activation is a smooth elementwise nonlinearity. Eval returns the value and
// its first three derivatives; the third is needed to back-propagate through
// second-order coordinate tangents.
type Activation interface {
	Name() string
	Eval(z float64) (f, d1, d2, d3 float64)
}

type tanhActivation struct{}

func (tanhActivation) Name() string { return "tanh" }

func (tanhActivation) Eval(z float64) (float64, float64, float64, float64) {
	t := math.Tanh(z)
	d1 := 1 - t*t
	return t, d1, -2 * t * d1, d1 * (6*t*t - 2)
}

type sigmoidActivation struct{}

func (sigmoidActivation) Name() string { return "sigmoid" }

func (sigmoidActivation) Eval(z float64) (float64, float64, float64, float64) {
	s := sigmoid(z)
	d1 := s * (1 - s)
	return s, d1, d1 * (1 - 2*s), d1 * (1 - 6*s + 6*s*s)
}

type softplusActivation struct{}

func (softplusActivation) Name() string { return "softplus" }

func (softplusActivation) Eval(z float64) (float64, float64, float64, float64) {
	var f float64
	if z > 30 {
		f = z
	} else {
		f = math.Log1p(math.Exp(z))
	}
	s := sigmoid(z)
	d2 := s * (1 - s)
	return f, s, d2, d2 * (1 - 2*s)
}

type sineActivation struct{}

func (sineActivation) Name() string { return "sine" }

func (sineActivation) Eval(z float64) (float64, float64, float64, float64) {
	s, c := math.Sincos(z)
	return s, c, -s, -c
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

var activations = map[string]Activation{
	"tanh":     tanhActivation{},
	"sigmoid":  sigmoidActivation{},
	"softplus": softplusActivation{},
	"sine":     sineActivation{},
}

func ActivationByName(name string) (Activation, error) {
	act, ok := activations[name]
	if !ok {
		return nil, fmt.Errorf("unknown activation: %s (available: %v)", name, ListActivations())
	}
	return act, nil
}

func ListActivations() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
