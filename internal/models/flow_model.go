package models

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/aeropinn/internal/aero"
)

// rowChunk is the minimum number of rows handed to one worker.
const rowChunk = 64

type layer struct {
	W *mat.Dense // in × out
	B []float64  // out
}

type FlowModel struct {
	arch   Architecture
	act    Activation
	layers []layer
}

// New builds a model with Xavier-uniform weights and zero biases drawn from
// a source seeded with seed.
func New(arch Architecture, seed int64) (*FlowModel, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	act, _ := ActivationByName(arch.Activation)

	rng := rand.New(rand.NewSource(seed))
	m := &FlowModel{arch: arch, act: act}
	for _, shape := range arch.LayerShapes() {
		fanIn, fanOut := shape[0], shape[1]
		limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
		data := make([]float64, fanIn*fanOut)
		for i := range data {
			data[i] = (2*rng.Float64() - 1) * limit
		}
		m.layers = append(m.layers, layer{
			W: mat.NewDense(fanIn, fanOut, data),
			B: make([]float64, fanOut),
		})
	}
	return m, nil
}

func (m *FlowModel) Architecture() Architecture { return m.arch }

// Parameters returns the learnable tensors as flat slices aliasing the model
// storage, ordered W0, b0, W1, b1, ...
func (m *FlowModel) Parameters() [][]float64 {
	params := make([][]float64, 0, 2*len(m.layers))
	for _, l := range m.layers {
		params = append(params, l.W.RawMatrix().Data, l.B)
	}
	return params
}

// Forward evaluates the network on in (one row per sample, InputSize
// columns). The returned tape is independent of every other call.
func (m *FlowModel) Forward(in mat.Matrix, mode Mode) (*Tape, error) {
	n, k := in.Dims()
	if k != m.arch.InputSize {
		return nil, &aero.ShapeError{Component: "flow model", Got: k, Want: m.arch.InputSize}
	}
	if n == 0 {
		return nil, fmt.Errorf("flow model: %w: empty batch", aero.ErrShape)
	}

	channels := 1
	if mode == WithCoordinateGradients {
		channels = int(NumChannels)
	}

	var a [NumChannels]*mat.Dense
	a[Value] = mat.DenseCopyOf(in)
	if channels > 1 {
		a[DX] = unitColumn(n, k, 0)
		a[DY] = unitColumn(n, k, 1)
		a[DXX] = mat.NewDense(n, k, nil)
		a[DYY] = mat.NewDense(n, k, nil)
	}

	t := &Tape{
		model:       m,
		rows:        n,
		derivatives: channels > 1,
		layers:      make([]layerTape, len(m.layers)),
	}

	last := len(m.layers) - 1
	for li, l := range m.layers {
		rec := &t.layers[li]
		rec.in = a
		_, out := l.W.Dims()
		for c := 0; c < channels; c++ {
			z := mat.NewDense(n, out, nil)
			z.Mul(a[c], l.W)
			rec.z[c] = z
		}
		addBias(rec.z[Value], l.B)

		if li == last {
			a = rec.z
			continue
		}
		a = m.activate(rec, channels)
	}
	t.out = a
	return t, nil
}

// activate applies the nonlinearity to the value channel and propagates
// tangents: a' = σ'(z) z', a'' = σ''(z) z'² + σ'(z) z''.
func (m *FlowModel) activate(rec *layerTape, channels int) [NumChannels]*mat.Dense {
	n, h := rec.z[Value].Dims()

	var out [NumChannels]*mat.Dense
	for c := 0; c < channels; c++ {
		out[c] = mat.NewDense(n, h, nil)
	}
	rec.d1 = mat.NewDense(n, h, nil)
	if channels > 1 {
		rec.d2 = mat.NewDense(n, h, nil)
		rec.d3 = mat.NewDense(n, h, nil)
	}

	z0 := raw(rec.z[Value])
	o0 := raw(out[Value])
	d1 := raw(rec.d1)
	if channels == 1 {
		aero.ParallelFor(n, rowChunk, func(start, end int) {
			for i := start * h; i < end*h; i++ {
				o0[i], d1[i], _, _ = m.act.Eval(z0[i])
			}
		})
		return out
	}

	d2, d3 := raw(rec.d2), raw(rec.d3)
	zx, zy := raw(rec.z[DX]), raw(rec.z[DY])
	zxx, zyy := raw(rec.z[DXX]), raw(rec.z[DYY])
	ox, oy := raw(out[DX]), raw(out[DY])
	oxx, oyy := raw(out[DXX]), raw(out[DYY])

	aero.ParallelFor(n, rowChunk, func(start, end int) {
		for i := start * h; i < end*h; i++ {
			f, s1, s2, s3 := m.act.Eval(z0[i])
			o0[i], d1[i], d2[i], d3[i] = f, s1, s2, s3
			ox[i] = s1 * zx[i]
			oy[i] = s1 * zy[i]
			oxx[i] = s2*zx[i]*zx[i] + s1*zxx[i]
			oyy[i] = s2*zy[i]*zy[i] + s1*zyy[i]
		}
	})
	return out
}

// Predict evaluates the model without recording coordinate tangents.
func (m *FlowModel) Predict(xs, ys, aoa []float64, cond aero.FlowCondition) ([]aero.Prediction, error) {
	in, err := Features(xs, ys, aoa, cond)
	if err != nil {
		return nil, err
	}
	tape, err := m.Forward(in, ValueOnly)
	if err != nil {
		return nil, err
	}
	f := tape.Fields()
	preds := make([]aero.Prediction, len(f.U))
	for i := range preds {
		preds[i] = aero.Prediction{U: f.U[i], V: f.V[i], P: f.P[i]}
	}
	return preds, nil
}

// Features assembles the network input: x, y, angle of attack in radians,
// log10 Re and Mach.
func Features(xs, ys, aoa []float64, cond aero.FlowCondition) (*mat.Dense, error) {
	n := len(xs)
	if len(ys) != n || len(aoa) != n {
		return nil, fmt.Errorf("features: %w: column lengths x=%d y=%d aoa=%d", aero.ErrShape, len(xs), len(ys), len(aoa))
	}
	if n == 0 {
		return nil, fmt.Errorf("features: %w: empty batch", aero.ErrShape)
	}
	logRe := math.Log10(cond.Reynolds)
	data := make([]float64, 0, n*DefaultInputSize)
	for i := 0; i < n; i++ {
		data = append(data, xs[i], ys[i], aoa[i]*math.Pi/180, logRe, cond.Mach)
	}
	return mat.NewDense(n, DefaultInputSize, data), nil
}

func unitColumn(rows, cols, col int) *mat.Dense {
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		d.Set(i, col, 1)
	}
	return d
}

func addBias(z *mat.Dense, b []float64) {
	n, h := z.Dims()
	data := raw(z)
	for i := 0; i < n; i++ {
		row := data[i*h : (i+1)*h]
		for j := range row {
			row[j] += b[j]
		}
	}
}

// raw exposes the row-major backing slice of a dense matrix allocated by
// mat.NewDense, whose stride equals its column count.
func raw(d *mat.Dense) []float64 {
	return d.RawMatrix().Data
}
