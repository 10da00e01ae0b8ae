package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/aeropinn/internal/aero"
)

// Snapshot is a deep copy of a model's parameters. It never aliases the
// model it was taken from.
type Snapshot struct {
	Architecture Architecture
	Weights      []*mat.Dense
	Biases       [][]float64
}

func (m *FlowModel) Snapshot() *Snapshot {
	s := &Snapshot{
		Architecture: m.arch,
		Weights:      make([]*mat.Dense, len(m.layers)),
		Biases:       make([][]float64, len(m.layers)),
	}
	for i, l := range m.layers {
		s.Weights[i] = mat.DenseCopyOf(l.W)
		s.Biases[i] = append([]float64(nil), l.B...)
	}
	return s
}

// Check verifies that the snapshot matches arch layer by layer.
func (s *Snapshot) Check(arch Architecture) error {
	if s.Architecture != arch {
		return fmt.Errorf("%w: checkpoint architecture %s, model %s", aero.ErrIncompatibleCheckpoint, s.Architecture, arch)
	}
	shapes := arch.LayerShapes()
	if len(s.Weights) != len(shapes) || len(s.Biases) != len(shapes) {
		return fmt.Errorf("%w: %d layers stored, model has %d", aero.ErrIncompatibleCheckpoint, len(s.Weights), len(shapes))
	}
	for i, shape := range shapes {
		if s.Weights[i] == nil {
			return fmt.Errorf("%w: layer %d has no weights", aero.ErrIncompatibleCheckpoint, i)
		}
		r, c := s.Weights[i].Dims()
		if r != shape[0] || c != shape[1] || len(s.Biases[i]) != shape[1] {
			return fmt.Errorf("%w: layer %d is %dx%d (bias %d), want %dx%d",
				aero.ErrIncompatibleCheckpoint, i, r, c, len(s.Biases[i]), shape[0], shape[1])
		}
	}
	return nil
}

// Restore copies s into the model. The model is left untouched when s does
// not match its architecture.
func (m *FlowModel) Restore(s *Snapshot) error {
	if err := s.Check(m.arch); err != nil {
		return err
	}
	for i := range m.layers {
		m.layers[i].W.Copy(s.Weights[i])
		copy(m.layers[i].B, s.Biases[i])
	}
	return nil
}

// FromSnapshot builds a fresh model holding a copy of s.
func FromSnapshot(s *Snapshot) (*FlowModel, error) {
	m, err := New(s.Architecture, 0)
	if err != nil {
		return nil, err
	}
	if err := m.Restore(s); err != nil {
		return nil, err
	}
	return m, nil
}
