package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/dataset"
)

type RMSE struct {
	name    string
	field   Field
	sumSq   float64
	samples int
}

func NewRMSE(f Field) *RMSE {
	return &RMSE{name: "rmse_" + f.String(), field: f}
}

func (r *RMSE) Name() string { return r.name }

func (r *RMSE) Observe(pred []aero.Prediction, b dataset.Batch) {
	got, want := r.field.split(pred, b)
	d := floats.Distance(got, want, 2)
	r.sumSq += d * d
	r.samples += len(got)
}

func (r *RMSE) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return math.Sqrt(r.sumSq / float64(r.samples))
}

func (r *RMSE) Reset() {
	r.sumSq = 0
	r.samples = 0
}

// Bias is the mean signed error (prediction minus reference).
type Bias struct {
	name  string
	field Field
	diffs []float64
}

func NewBias(f Field) *Bias {
	return &Bias{name: "bias_" + f.String(), field: f}
}

func (b *Bias) Name() string { return b.name }

func (b *Bias) Observe(pred []aero.Prediction, batch dataset.Batch) {
	got, want := b.field.split(pred, batch)
	floats.Sub(got, want)
	b.diffs = append(b.diffs, got...)
}

func (b *Bias) Value() float64 {
	if len(b.diffs) == 0 {
		return 0
	}
	return stat.Mean(b.diffs, nil)
}

func (b *Bias) Reset() { b.diffs = b.diffs[:0] }

// DataMSE is MSE(u) + MSE(v) + MSE(p), the supervised term of the training
// loss.
type DataMSE struct {
	name    string
	sumSq   [3]float64
	samples int
}

func NewDataMSE() *DataMSE {
	return &DataMSE{name: "data_mse"}
}

func (m *DataMSE) Name() string { return m.name }

func (m *DataMSE) Observe(pred []aero.Prediction, b dataset.Batch) {
	for i, f := range []Field{FieldU, FieldV, FieldP} {
		got, want := f.split(pred, b)
		d := floats.Distance(got, want, 2)
		m.sumSq[i] += d * d
	}
	m.samples += len(pred)
}

func (m *DataMSE) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return floats.Sum(m.sumSq[:]) / float64(m.samples)
}

func (m *DataMSE) Reset() {
	m.sumSq = [3]float64{}
	m.samples = 0
}

// WithinTolerance is the fraction of samples whose u, v and p errors are all
// within threshold.
type WithinTolerance struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewWithinTolerance(threshold float64) *WithinTolerance {
	return &WithinTolerance{name: "within_tolerance", threshold: threshold}
}

func (w *WithinTolerance) Name() string { return w.name }

func (w *WithinTolerance) Observe(pred []aero.Prediction, b dataset.Batch) {
	for i, p := range pred {
		w.samples++
		if math.Abs(p.U-b.U[i]) > w.threshold ||
			math.Abs(p.V-b.V[i]) > w.threshold ||
			math.Abs(p.P-b.P[i]) > w.threshold {
			w.violations++
		}
	}
}

func (w *WithinTolerance) Value() float64 {
	if w.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(w.violations)/float64(w.samples)
}

func (w *WithinTolerance) Reset() {
	w.violations = 0
	w.samples = 0
}
