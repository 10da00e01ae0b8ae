package optim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultClipNorm is the gradient norm ceiling applied every step.
const DefaultClipNorm = 1.0

// GlobalNorm is the L2 norm over every entry of every tensor.
func GlobalNorm(grads [][]float64) float64 {
	sum := 0.0
	for _, g := range grads {
		n := floats.Norm(g, 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}

// ClipGradNorm rescales grads in place so their global norm does not exceed
// maxNorm and returns the norm before clipping.
func ClipGradNorm(grads [][]float64, maxNorm float64) float64 {
	total := GlobalNorm(grads)
	if maxNorm <= 0 || total <= maxNorm {
		return total
	}
	scale := maxNorm / total
	for _, g := range grads {
		floats.Scale(scale, g)
	}
	return total
}
