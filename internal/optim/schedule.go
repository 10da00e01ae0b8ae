package optim

import (
	"fmt"
	"math"
)

const (
	DefaultDecayStep  = 50
	DefaultDecayGamma = 0.9
)

// StepLR multiplies the base learning rate by Gamma once every StepSize
// epochs. Step is called once per completed epoch.
type StepLR struct {
	opt      Optimizer
	base     float64
	StepSize int
	Gamma    float64
	epoch    int
}

// NewStepLR panics on a non-positive stepSize; trainer configs reject it
// before a schedule is built.
func NewStepLR(opt Optimizer, stepSize int, gamma float64) *StepLR {
	if stepSize <= 0 {
		panic(fmt.Sprintf("optim: step size must be positive, got %d", stepSize))
	}
	return &StepLR{
		opt:      opt,
		base:     opt.LearningRate(),
		StepSize: stepSize,
		Gamma:    gamma,
	}
}

func (s *StepLR) Step() {
	s.epoch++
	s.opt.SetLearningRate(s.base * math.Pow(s.Gamma, float64(s.epoch/s.StepSize)))
}

func (s *StepLR) Epoch() int { return s.epoch }

func (s *StepLR) LearningRate() float64 { return s.opt.LearningRate() }
