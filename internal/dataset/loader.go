package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/aeropinn/internal/aero"
)

// Batch holds aligned columns of a group of samples.
type Batch struct {
	X, Y, AoA []float64
	U, V, P   []float64
}

func (b Batch) Len() int { return len(b.X) }

type Loader struct {
	samples   []aero.FlowSample
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	clamped   bool
	fixed     []Batch
}

// NewLoader serves samples in batches of batchSize. A batch size larger than
// the sample count is clamped to it, which degenerates into a single batch per
// epoch; Clamped reports that case. The final batch may be smaller than
// batchSize.
func NewLoader(samples []aero.FlowSample, batchSize int, shuffle bool, rng *rand.Rand) (*Loader, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("loader: %w: no samples", aero.ErrInsufficientData)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("loader: %w: batch size %d", aero.ErrInsufficientData, batchSize)
	}
	if shuffle && rng == nil {
		return nil, errors.New("loader: shuffling requires a random source")
	}

	l := &Loader{
		samples:   samples,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
	}
	if batchSize > len(samples) {
		l.batchSize = len(samples)
		l.clamped = true
	}
	if !shuffle {
		l.fixed = l.batches(identity(len(samples)))
	}
	return l, nil
}

func (l *Loader) Len() int       { return len(l.samples) }
func (l *Loader) BatchSize() int { return l.batchSize }
func (l *Loader) Clamped() bool  { return l.clamped }

func (l *Loader) NumBatches() int {
	return (len(l.samples) + l.batchSize - 1) / l.batchSize
}

// Epoch returns the batch sequence for one pass over the samples.
func (l *Loader) Epoch() []Batch {
	if !l.shuffle {
		return l.fixed
	}
	return l.batches(l.rng.Perm(len(l.samples)))
}

func (l *Loader) batches(order []int) []Batch {
	out := make([]Batch, 0, l.NumBatches())
	for start := 0; start < len(order); start += l.batchSize {
		end := start + l.batchSize
		if end > len(order) {
			end = len(order)
		}
		out = append(out, collect(l.samples, order[start:end]))
	}
	return out
}

func collect(samples []aero.FlowSample, idx []int) Batch {
	n := len(idx)
	b := Batch{
		X: make([]float64, n), Y: make([]float64, n), AoA: make([]float64, n),
		U: make([]float64, n), V: make([]float64, n), P: make([]float64, n),
	}
	for i, k := range idx {
		s := samples[k]
		b.X[i], b.Y[i], b.AoA[i] = s.X, s.Y, s.AoA
		b.U[i], b.V[i], b.P[i] = s.U, s.V, s.P
	}
	return b
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}
