package trainer

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/aeropinn/internal/dataset"
	"github.com/san-kum/aeropinn/internal/models"
)

// DataLoss returns MSE(u) + MSE(v) + MSE(p) and its derivative with respect
// to the value channel of the model output. Channels are weighted equally.
func DataLoss(pred models.Fields, b dataset.Batch) (float64, *mat.Dense) {
	n := len(pred.U)
	seed := mat.NewDense(n, models.DefaultOutputSize, nil)
	a := 2 / float64(n)
	loss := 0.0
	for _, ch := range []struct {
		col          int
		pred, target []float64
	}{
		{models.ColU, pred.U, b.U},
		{models.ColV, pred.V, b.V},
		{models.ColP, pred.P, b.P},
	} {
		sum := 0.0
		for i := 0; i < n; i++ {
			d := ch.pred[i] - ch.target[i]
			sum += d * d
			seed.Set(i, ch.col, a*d)
		}
		loss += sum / float64(n)
	}
	return loss, seed
}

// combineSeed builds the seed of data + w·physics.
func combineSeed(data *mat.Dense, phys models.Seed, w float64) models.Seed {
	var seed models.Seed
	seed[models.Value] = data
	if w == 0 {
		return seed
	}
	for c, s := range phys {
		if s == nil {
			continue
		}
		var scaled mat.Dense
		scaled.Scale(w, s)
		if seed[c] == nil {
			seed[c] = &scaled
			continue
		}
		seed[c].Add(seed[c], &scaled)
	}
	return seed
}
