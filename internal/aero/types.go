package aero

import (
	"fmt"
	"math"
)

type FlowSample struct {
	X   float64
	Y   float64
	AoA float64
	U   float64
	V   float64
	P   float64
}

// FlowCondition holds the dimensionless parameters shared by a training run.
type FlowCondition struct {
	Reynolds float64 `yaml:"reynolds" toml:"reynolds" json:"reynolds"`
	Mach     float64 `yaml:"mach" toml:"mach" json:"mach"`
}

// Validate reports ErrInvalidCondition for non-physical values. Mach is
// restricted to the subsonic range where the compressibility factor 1-M² stays
// positive.
func (c FlowCondition) Validate() error {
	if !(c.Reynolds > 0) || math.IsInf(c.Reynolds, 0) {
		return fmt.Errorf("%w: reynolds number %g must be positive", ErrInvalidCondition, c.Reynolds)
	}
	if !(c.Mach >= 0 && c.Mach < 1) {
		return fmt.Errorf("%w: mach number %g outside [0, 1)", ErrInvalidCondition, c.Mach)
	}
	return nil
}

func (c FlowCondition) String() string {
	return fmt.Sprintf("Re=%g M=%g", c.Reynolds, c.Mach)
}

type Prediction struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
	P float64 `json:"p"`
}

// IsFinite reports whether every value is neither NaN nor Inf.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
