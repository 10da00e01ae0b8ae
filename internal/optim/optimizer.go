package optim

import (
	"fmt"
	"math"
)

const (
	DefaultLearningRate = 1e-3
	DefaultBeta1        = 0.9
	DefaultBeta2        = 0.999
	DefaultEpsilon      = 1e-8
)

// Optimizer updates parameters in place from gradients laid out in the same
// order. State such as momentum is owned by the optimizer and allocated on
// the first step.
type Optimizer interface {
	Step(params, grads [][]float64) error
	LearningRate() float64
	SetLearningRate(lr float64)
	Name() string
}

type SGD struct {
	lr         float64
	Momentum   float64
	velocities [][]float64
}

func NewSGD(lr, momentum float64) *SGD {
	return &SGD{lr: lr, Momentum: momentum}
}

func (s *SGD) Step(params, grads [][]float64) error {
	if err := checkLayout(params, grads); err != nil {
		return err
	}
	if s.Momentum != 0 && s.velocities == nil {
		s.velocities = zerosLike(params)
	}
	for i, p := range params {
		g := grads[i]
		for j := range p {
			d := g[j]
			if s.Momentum != 0 {
				s.velocities[i][j] = s.Momentum*s.velocities[i][j] + d
				d = s.velocities[i][j]
			}
			p[j] -= s.lr * d
		}
	}
	return nil
}

func (s *SGD) LearningRate() float64      { return s.lr }
func (s *SGD) SetLearningRate(lr float64) { s.lr = lr }
func (s *SGD) Name() string               { return "sgd" }

// Adam implements adaptive moment estimation with bias correction.
type Adam struct {
	lr      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64
	m, v    [][]float64
	t       int
}

func NewAdam(lr float64) *Adam {
	return &Adam{
		lr:      lr,
		Beta1:   DefaultBeta1,
		Beta2:   DefaultBeta2,
		Epsilon: DefaultEpsilon,
	}
}

func (a *Adam) Step(params, grads [][]float64) error {
	if err := checkLayout(params, grads); err != nil {
		return err
	}
	if a.m == nil {
		a.m = zerosLike(params)
		a.v = zerosLike(params)
	}
	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for i, p := range params {
		g, m, v := grads[i], a.m[i], a.v[i]
		for j := range p {
			m[j] = a.Beta1*m[j] + (1-a.Beta1)*g[j]
			v[j] = a.Beta2*v[j] + (1-a.Beta2)*g[j]*g[j]
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			p[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
	return nil
}

func (a *Adam) LearningRate() float64      { return a.lr }
func (a *Adam) SetLearningRate(lr float64) { a.lr = lr }
func (a *Adam) Name() string               { return "adam" }

// ByName builds an optimizer from its configuration name.
func ByName(name string, lr float64) (Optimizer, error) {
	switch name {
	case "adam", "":
		return NewAdam(lr), nil
	case "sgd":
		return NewSGD(lr, 0), nil
	case "momentum":
		return NewSGD(lr, 0.9), nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %s", name)
	}
}

func checkLayout(params, grads [][]float64) error {
	if len(params) != len(grads) {
		return fmt.Errorf("optimizer: %d parameter tensors, %d gradients", len(params), len(grads))
	}
	for i := range params {
		if len(params[i]) != len(grads[i]) {
			return fmt.Errorf("optimizer: tensor %d has %d values, gradient %d", i, len(params[i]), len(grads[i]))
		}
	}
	return nil
}

func zerosLike(params [][]float64) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = make([]float64, len(p))
	}
	return out
}
