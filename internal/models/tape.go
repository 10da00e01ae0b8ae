package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/aeropinn/internal/aero"
)

// Mode selects what a forward pass records.
type Mode int

const (
	ValueOnly Mode = iota
	WithCoordinateGradients
)

// Channel identifies a recorded quantity: the value itself or one of its
// spatial derivatives.
type Channel int

const (
	Value Channel = iota
	DX
	DY
	DXX
	DYY
	NumChannels
)

func (c Channel) String() string {
	switch c {
	case Value:
		return "value"
	case DX:
		return "d/dx"
	case DY:
		return "d/dy"
	case DXX:
		return "d2/dx2"
	case DYY:
		return "d2/dy2"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Seed holds ∂loss/∂output for every channel (rows × OutputSize). Nil
// entries are treated as zero.
type Seed [NumChannels]*mat.Dense

type layerTape struct {
	in         [NumChannels]*mat.Dense
	z          [NumChannels]*mat.Dense
	d1, d2, d3 *mat.Dense
}

type Tape struct {
	model       *FlowModel
	rows        int
	derivatives bool
	layers      []layerTape
	out         [NumChannels]*mat.Dense
}

// Fields holds one column per output quantity.
type Fields struct {
	U, V, P []float64
}

func (t *Tape) Rows() int { return t.rows }

// HasCoordinateGradients reports whether the tape was recorded with spatial
// tangents.
func (t *Tape) HasCoordinateGradients() bool { return t.derivatives }

// Output returns the rows × OutputSize matrix of a channel. Derivative
// channels fail with ErrGradientUnavailable on a value-only tape.
func (t *Tape) Output(c Channel) (*mat.Dense, error) {
	if c < Value || c >= NumChannels {
		return nil, fmt.Errorf("tape: unknown channel %d", int(c))
	}
	if c != Value && !t.derivatives {
		return nil, fmt.Errorf("tape: %s: %w (forward pass recorded without coordinate gradients)", c, aero.ErrGradientUnavailable)
	}
	return t.out[c], nil
}

func (t *Tape) Fields() Fields {
	return columns(t.out[Value])
}

// FieldsOf splits a channel into u, v and p columns.
func (t *Tape) FieldsOf(c Channel) (Fields, error) {
	out, err := t.Output(c)
	if err != nil {
		return Fields{}, err
	}
	return columns(out), nil
}

func columns(d *mat.Dense) Fields {
	return Fields{
		U: mat.Col(nil, ColU, d),
		V: mat.Col(nil, ColV, d),
		P: mat.Col(nil, ColP, d),
	}
}

// Gradients holds ∂loss/∂parameter in the layout of FlowModel.Parameters.
type Gradients struct {
	Weights []*mat.Dense
	Biases  [][]float64
}

func newGradients(m *FlowModel) *Gradients {
	g := &Gradients{
		Weights: make([]*mat.Dense, len(m.layers)),
		Biases:  make([][]float64, len(m.layers)),
	}
	for i, l := range m.layers {
		r, c := l.W.Dims()
		g.Weights[i] = mat.NewDense(r, c, nil)
		g.Biases[i] = make([]float64, c)
	}
	return g
}

// Slices returns flat views ordered like FlowModel.Parameters.
func (g *Gradients) Slices() [][]float64 {
	out := make([][]float64, 0, 2*len(g.Weights))
	for i := range g.Weights {
		out = append(out, raw(g.Weights[i]), g.Biases[i])
	}
	return out
}

// Norm is the global L2 norm over every gradient entry.
func (g *Gradients) Norm() float64 {
	sum := 0.0
	for _, s := range g.Slices() {
		n := floats.Norm(s, 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}

func (g *Gradients) IsFinite() bool {
	for _, s := range g.Slices() {
		if !aero.IsFinite(s...) {
			return false
		}
	}
	return true
}

// Backward propagates seed through every recorded layer and returns fresh
// parameter gradients. The tape is not modified and may be differentiated
// again with another seed.
func (t *Tape) Backward(seed Seed) (*Gradients, error) {
	for c, s := range seed {
		if s == nil {
			continue
		}
		if Channel(c) != Value && !t.derivatives {
			return nil, fmt.Errorf("tape: seed on %s: %w", Channel(c), aero.ErrGradientUnavailable)
		}
		r, k := s.Dims()
		if r != t.rows || k != t.model.arch.OutputSize {
			return nil, fmt.Errorf("tape: %w: seed %s is %dx%d, want %dx%d",
				aero.ErrShape, Channel(c), r, k, t.rows, t.model.arch.OutputSize)
		}
	}

	grads := newGradients(t.model)
	ga := seed
	last := len(t.layers) - 1
	for li := last; li >= 0; li-- {
		rec := &t.layers[li]
		l := t.model.layers[li]

		var gz Seed
		if li == last {
			gz = ga
		} else {
			gz = t.backwardActivation(rec, ga)
		}

		var tmp mat.Dense
		for c, g := range gz {
			if g == nil {
				continue
			}
			tmp.Reset()
			tmp.Mul(rec.in[c].T(), g)
			grads.Weights[li].Add(grads.Weights[li], &tmp)
		}
		if gz[Value] != nil {
			n, h := gz[Value].Dims()
			data := raw(gz[Value])
			for i := 0; i < n; i++ {
				floats.Add(grads.Biases[li], data[i*h:(i+1)*h])
			}
		}

		if li == 0 {
			break
		}
		var prev Seed
		in, _ := l.W.Dims()
		for c, g := range gz {
			if g == nil {
				continue
			}
			p := mat.NewDense(t.rows, in, nil)
			p.Mul(g, l.W.T())
			prev[c] = p
		}
		ga = prev
	}
	return grads, nil
}

// backwardActivation maps output-channel gradients of a hidden layer onto
// its pre-activation channels, inverting the tangent rules used in activate.
func (t *Tape) backwardActivation(rec *layerTape, ga Seed) Seed {
	n, h := rec.z[Value].Dims()
	var gz Seed

	if !t.derivatives {
		if ga[Value] == nil {
			return gz
		}
		gz[Value] = mat.NewDense(n, h, nil)
		g0, d1, out := raw(ga[Value]), raw(rec.d1), raw(gz[Value])
		aero.ParallelFor(n, rowChunk, func(start, end int) {
			for i := start * h; i < end*h; i++ {
				out[i] = g0[i] * d1[i]
			}
		})
		return gz
	}

	for c := Value; c < NumChannels; c++ {
		gz[c] = mat.NewDense(n, h, nil)
	}
	var gin [NumChannels][]float64
	for c := Value; c < NumChannels; c++ {
		if ga[c] != nil {
			gin[c] = raw(ga[c])
		}
	}
	at := func(c Channel, i int) float64 {
		if gin[c] == nil {
			return 0
		}
		return gin[c][i]
	}

	d1, d2, d3 := raw(rec.d1), raw(rec.d2), raw(rec.d3)
	zx, zy := raw(rec.z[DX]), raw(rec.z[DY])
	zxx, zyy := raw(rec.z[DXX]), raw(rec.z[DYY])
	o0, ox, oy := raw(gz[Value]), raw(gz[DX]), raw(gz[DY])
	oxx, oyy := raw(gz[DXX]), raw(gz[DYY])

	aero.ParallelFor(n, rowChunk, func(start, end int) {
		for i := start * h; i < end*h; i++ {
			g0, gx, gy := at(Value, i), at(DX, i), at(DY, i)
			gxx, gyy := at(DXX, i), at(DYY, i)

			ox[i] = gx*d1[i] + 2*gxx*d2[i]*zx[i]
			oy[i] = gy*d1[i] + 2*gyy*d2[i]*zy[i]
			oxx[i] = gxx * d1[i]
			oyy[i] = gyy * d1[i]
			o0[i] = g0*d1[i] +
				gx*d2[i]*zx[i] + gy*d2[i]*zy[i] +
				gxx*(d3[i]*zx[i]*zx[i]+d2[i]*zxx[i]) +
				gyy*(d3[i]*zy[i]*zy[i]+d2[i]*zyy[i])
		}
	})
	return gz
}
