package dataset

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/aeropinn/internal/aero"
)

// Generate returns n synthetic samples on a square grid over [-1, 1]².
func Generate(n int, seed int64) []aero.FlowSample {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))

	side := int(math.Ceil(math.Sqrt(float64(n))))
	axis := make([]float64, side)
	if side == 1 {
		axis[0] = 0
	} else {
		floats.Span(axis, -1, 1)
	}

	samples := make([]aero.FlowSample, n)
	for i := range samples {
		x := axis[i%side]
		y := axis[i/side]
		aoa := -5 + 20*rng.Float64()
		rad := aoa * math.Pi / 180

		u := math.Cos(rad) + 0.1*math.Sin(y*math.Pi) + 0.05*rng.NormFloat64()
		v := math.Sin(rad) + 0.1*math.Sin(x*math.Pi) + 0.05*rng.NormFloat64()
		p := 1 - 0.5*(u*u+v*v) + 0.1*rng.NormFloat64()

		samples[i] = aero.FlowSample{X: x, Y: y, AoA: aoa, U: u, V: v, P: p}
	}
	return samples
}
