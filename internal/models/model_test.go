package models

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/aeropinn/internal/aero"
)

func smallArch() Architecture {
	return Architecture{InputSize: 5, HiddenSize: 8, HiddenLayers: 2, OutputSize: 3, Activation: "tanh"}
}

func randomInput(rng *rand.Rand, n, k int) *mat.Dense {
	data := make([]float64, n*k)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return mat.NewDense(n, k, data)
}

func evalValue(t *testing.T, m *FlowModel, in *mat.Dense) *mat.Dense {
	t.Helper()
	tape, err := m.Forward(in, ValueOnly)
	require.NoError(t, err)
	out, err := tape.Output(Value)
	require.NoError(t, err)
	return out
}

func shifted(in *mat.Dense, col int, h float64) *mat.Dense {
	c := mat.DenseCopyOf(in)
	n, _ := c.Dims()
	for i := 0; i < n; i++ {
		c.Set(i, col, c.At(i, col)+h)
	}
	return c
}

func TestCoordinateDerivativesMatchFiniteDifferences(t *testing.T) {
	m, err := New(smallArch(), 1)
	require.NoError(t, err)
	in := randomInput(rand.New(rand.NewSource(2)), 6, 5)

	tape, err := m.Forward(in, WithCoordinateGradients)
	require.NoError(t, err)

	checks := []struct {
		col    int
		first  Channel
		second Channel
	}{
		{0, DX, DXX},
		{1, DY, DYY},
	}

	const h1, h2 = 1e-5, 1e-3
	for _, c := range checks {
		f0 := evalValue(t, m, in)
		fp1 := evalValue(t, m, shifted(in, c.col, h1))
		fm1 := evalValue(t, m, shifted(in, c.col, -h1))
		fp2 := evalValue(t, m, shifted(in, c.col, h2))
		fm2 := evalValue(t, m, shifted(in, c.col, -h2))

		first, err := tape.Output(c.first)
		require.NoError(t, err)
		second, err := tape.Output(c.second)
		require.NoError(t, err)

		for i := 0; i < 6; i++ {
			for j := 0; j < 3; j++ {
				fd1 := (fp1.At(i, j) - fm1.At(i, j)) / (2 * h1)
				fd2 := (fp2.At(i, j) - 2*f0.At(i, j) + fm2.At(i, j)) / (h2 * h2)
				assert.InDelta(t, fd1, first.At(i, j), 1e-6, "%s row %d col %d", c.first, i, j)
				assert.InDelta(t, fd2, second.At(i, j), 1e-4, "%s row %d col %d", c.second, i, j)
			}
		}
	}
}

func contract(seed Seed, tape *Tape) float64 {
	total := 0.0
	for c, s := range seed {
		if s == nil {
			continue
		}
		out, _ := tape.Output(Channel(c))
		total += mat.Sum(mulElem(s, out))
	}
	return total
}

func mulElem(a, b *mat.Dense) *mat.Dense {
	var r mat.Dense
	r.MulElem(a, b)
	return &r
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	for _, act := range ListActivations() {
		t.Run(act, func(t *testing.T) {
			arch := smallArch()
			arch.Activation = act
			m, err := New(arch, 3)
			require.NoError(t, err)

			rng := rand.New(rand.NewSource(4))
			in := randomInput(rng, 5, 5)
			var seed Seed
			for c := Value; c < NumChannels; c++ {
				seed[c] = randomInput(rng, 5, 3)
			}

			tape, err := m.Forward(in, WithCoordinateGradients)
			require.NoError(t, err)
			grads, err := tape.Backward(seed)
			require.NoError(t, err)

			loss := func() float64 {
				tp, err := m.Forward(in, WithCoordinateGradients)
				require.NoError(t, err)
				return contract(seed, tp)
			}

			const h = 1e-6
			params := m.Parameters()
			gs := grads.Slices()
			require.Len(t, gs, len(params))
			for pi, p := range params {
				for _, idx := range []int{0, len(p) / 2, len(p) - 1} {
					orig := p[idx]
					p[idx] = orig + h
					lp := loss()
					p[idx] = orig - h
					lm := loss()
					p[idx] = orig

					fd := (lp - lm) / (2 * h)
					assert.InDelta(t, fd, gs[pi][idx], 1e-5*math.Max(1, math.Abs(fd)), "param %d index %d", pi, idx)
				}
			}
		})
	}
}

func TestForwardShapeError(t *testing.T) {
	m, err := New(smallArch(), 1)
	require.NoError(t, err)

	_, err = m.Forward(mat.NewDense(4, 3, nil), ValueOnly)
	require.Error(t, err)
	assert.True(t, errors.Is(err, aero.ErrShape))

	var shapeErr *aero.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 3, shapeErr.Got)
	assert.Equal(t, 5, shapeErr.Want)
}

func TestValueOnlyTapeHasNoCoordinateGradients(t *testing.T) {
	m, err := New(smallArch(), 1)
	require.NoError(t, err)
	tape, err := m.Forward(randomInput(rand.New(rand.NewSource(1)), 3, 5), ValueOnly)
	require.NoError(t, err)

	_, err = tape.Output(DX)
	assert.True(t, errors.Is(err, aero.ErrGradientUnavailable))

	var seed Seed
	seed[DY] = mat.NewDense(3, 3, nil)
	_, err = tape.Backward(seed)
	assert.True(t, errors.Is(err, aero.ErrGradientUnavailable))
}

func TestTapesAreIndependent(t *testing.T) {
	m, err := New(smallArch(), 5)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(6))
	a, b := randomInput(rng, 4, 5), randomInput(rng, 7, 5)

	tapeA, err := m.Forward(a, WithCoordinateGradients)
	require.NoError(t, err)
	var seedA Seed
	seedA[Value] = randomInput(rng, 4, 3)
	seedA[DX] = randomInput(rng, 4, 3)
	first, err := tapeA.Backward(seedA)
	require.NoError(t, err)

	tapeB, err := m.Forward(b, WithCoordinateGradients)
	require.NoError(t, err)
	var seedB Seed
	seedB[Value] = randomInput(rng, 7, 3)
	_, err = tapeB.Backward(seedB)
	require.NoError(t, err)

	again, err := tapeA.Backward(seedA)
	require.NoError(t, err)
	for i, s := range first.Slices() {
		assert.Equal(t, s, again.Slices()[i])
	}
}

func TestParallelRowsMatchSerial(t *testing.T) {
	m, err := New(smallArch(), 7)
	require.NoError(t, err)
	in := randomInput(rand.New(rand.NewSource(8)), 300, 5)

	saved := aero.Workers
	defer func() { aero.Workers = saved }()

	aero.Workers = 1
	serial, err := m.Forward(in, WithCoordinateGradients)
	require.NoError(t, err)
	aero.Workers = 4
	parallel, err := m.Forward(in, WithCoordinateGradients)
	require.NoError(t, err)

	for c := Value; c < NumChannels; c++ {
		s, _ := serial.Output(c)
		p, _ := parallel.Output(c)
		assert.True(t, mat.Equal(s, p), "channel %s differs", c)
	}
}

func TestSnapshotRestore(t *testing.T) {
	m, err := New(smallArch(), 9)
	require.NoError(t, err)
	snap := m.Snapshot()

	// snapshots must not alias the live parameters
	m.Parameters()[0][0] += 1
	assert.NotEqual(t, m.Parameters()[0][0], snap.Weights[0].At(0, 0))

	require.NoError(t, m.Restore(snap))
	assert.Equal(t, snap.Weights[0].At(0, 0), m.Parameters()[0][0])

	fresh, err := FromSnapshot(snap)
	require.NoError(t, err)
	in := randomInput(rand.New(rand.NewSource(10)), 3, 5)
	assert.True(t, mat.Equal(evalValue(t, m, in), evalValue(t, fresh, in)))
}

func TestRestoreIncompatibleLeavesModelUntouched(t *testing.T) {
	m, err := New(smallArch(), 11)
	require.NoError(t, err)
	before := m.Snapshot()

	other := smallArch()
	other.HiddenSize = 16
	donor, err := New(other, 12)
	require.NoError(t, err)

	err = m.Restore(donor.Snapshot())
	require.Error(t, err)
	assert.True(t, errors.Is(err, aero.ErrIncompatibleCheckpoint))

	after := m.Snapshot()
	for i := range before.Weights {
		assert.True(t, mat.Equal(before.Weights[i], after.Weights[i]))
		assert.Equal(t, before.Biases[i], after.Biases[i])
	}
}

func TestPredict(t *testing.T) {
	m, err := New(DefaultArchitecture(), 13)
	require.NoError(t, err)

	cond := aero.FlowCondition{Reynolds: 1e6, Mach: 0.3}
	preds, err := m.Predict([]float64{0, 0.5}, []float64{0, -0.5}, []float64{2, 4}, cond)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	for _, p := range preds {
		assert.True(t, aero.IsFinite(p.U, p.V, p.P))
	}

	_, err = m.Predict([]float64{0}, []float64{0, 1}, []float64{0}, cond)
	assert.True(t, errors.Is(err, aero.ErrShape))
}

func TestArchitectureValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Architecture)
	}{
		{"input too small", func(a *Architecture) { a.InputSize = 1 }},
		{"input not matching features", func(a *Architecture) { a.InputSize = 4 }},
		{"extra input column", func(a *Architecture) { a.InputSize = 6 }},
		{"no hidden units", func(a *Architecture) { a.HiddenSize = 0 }},
		{"no hidden layers", func(a *Architecture) { a.HiddenLayers = 0 }},
		{"wrong outputs", func(a *Architecture) { a.OutputSize = 2 }},
		{"unknown activation", func(a *Architecture) { a.Activation = "relu6" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultArchitecture()
			tt.mutate(&a)
			assert.Error(t, a.Validate())
		})
	}
	assert.NoError(t, DefaultArchitecture().Validate())
	assert.Equal(t, 5*128+128+2*(128*128+128)+128*3+3, DefaultArchitecture().NumParams())
}
