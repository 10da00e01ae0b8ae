package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/aeropinn/internal/aero"
)

type SplitOptions struct {
	// Shuffle draws a random partition from Seed; otherwise the first rows
	// form the training split.
	Shuffle bool
	Seed    int64
}

type Partition struct {
	Train      []aero.FlowSample
	Validation []aero.FlowSample
}

// TrainSize is round((1-valFraction)·n).
func TrainSize(n int, valFraction float64) int {
	return int(math.Round((1 - valFraction) * float64(n)))
}

// Split partitions samples into training and validation subsets. Every input
// sample lands in exactly one subset; the same seed reproduces the same
// partition.
func Split(samples []aero.FlowSample, valFraction float64, opts SplitOptions) (*Partition, error) {
	n := len(samples)
	if n < 2 {
		return nil, fmt.Errorf("split: %w: %d samples, need at least 2", aero.ErrInsufficientData, n)
	}
	if !(valFraction > 0 && valFraction < 1) {
		return nil, fmt.Errorf("split: validation fraction %g outside (0, 1)", valFraction)
	}

	trainSize := TrainSize(n, valFraction)
	if trainSize == 0 || trainSize == n {
		return nil, fmt.Errorf("split: %w: %d samples with validation fraction %g leaves an empty subset",
			aero.ErrInsufficientData, n, valFraction)
	}

	order := identity(n)
	if opts.Shuffle {
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	p := &Partition{
		Train:      make([]aero.FlowSample, 0, trainSize),
		Validation: make([]aero.FlowSample, 0, n-trainSize),
	}
	for k, idx := range order {
		if k < trainSize {
			p.Train = append(p.Train, samples[idx])
		} else {
			p.Validation = append(p.Validation, samples[idx])
		}
	}
	return p, nil
}
