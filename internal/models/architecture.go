package models

import (
	"fmt"
	"strings"
)

const (
	DefaultInputSize    = 5
	DefaultHiddenSize   = 128
	DefaultHiddenLayers = 3
	DefaultOutputSize   = 3
	DefaultActivation   = "tanh"
)

// Output columns.
const (
	ColU = iota
	ColV
	ColP
)

type Architecture struct {
	InputSize    int    `json:"input_size" yaml:"input_size" toml:"input_size"`
	HiddenSize   int    `json:"hidden_size" yaml:"hidden_size" toml:"hidden_size"`
	HiddenLayers int    `json:"hidden_layers" yaml:"hidden_layers" toml:"hidden_layers"`
	OutputSize   int    `json:"output_size" yaml:"output_size" toml:"output_size"`
	Activation   string `json:"activation" yaml:"activation" toml:"activation"`
}

func DefaultArchitecture() Architecture {
	return Architecture{
		InputSize:    DefaultInputSize,
		HiddenSize:   DefaultHiddenSize,
		HiddenLayers: DefaultHiddenLayers,
		OutputSize:   DefaultOutputSize,
		Activation:   DefaultActivation,
	}
}

func (a Architecture) Validate() error {
	if a.InputSize != DefaultInputSize {
		return fmt.Errorf("input size must be %d (x, y, aoa, log10 Re, mach), got %d", DefaultInputSize, a.InputSize)
	}
	if a.HiddenSize <= 0 {
		return fmt.Errorf("hidden size must be positive, got %d", a.HiddenSize)
	}
	if a.HiddenLayers <= 0 {
		return fmt.Errorf("hidden layers must be positive, got %d", a.HiddenLayers)
	}
	if a.OutputSize != DefaultOutputSize {
		return fmt.Errorf("output size must be %d (u, v, p), got %d", DefaultOutputSize, a.OutputSize)
	}
	if _, err := ActivationByName(a.Activation); err != nil {
		return err
	}
	return nil
}

// LayerShapes returns the (in, out) shape of every weight matrix.
func (a Architecture) LayerShapes() [][2]int {
	shapes := make([][2]int, 0, a.HiddenLayers+1)
	in := a.InputSize
	for i := 0; i < a.HiddenLayers; i++ {
		shapes = append(shapes, [2]int{in, a.HiddenSize})
		in = a.HiddenSize
	}
	return append(shapes, [2]int{in, a.OutputSize})
}

// NumParams is the total count of learnable scalars.
func (a Architecture) NumParams() int {
	total := 0
	for _, s := range a.LayerShapes() {
		total += s[0]*s[1] + s[1]
	}
	return total
}

func (a Architecture) String() string {
	parts := []string{fmt.Sprint(a.InputSize)}
	for i := 0; i < a.HiddenLayers; i++ {
		parts = append(parts, fmt.Sprint(a.HiddenSize))
	}
	parts = append(parts, fmt.Sprint(a.OutputSize))
	return fmt.Sprintf("%s [%s]", strings.Join(parts, "-"), a.Activation)
}
