package physics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/aeropinn/internal/aero"
	"github.com/san-kum/aeropinn/internal/models"
)

type Evaluator struct {
	cond aero.FlowCondition
}

func New(cond aero.FlowCondition) (*Evaluator, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cond: cond}, nil
}

func (e *Evaluator) Condition() aero.FlowCondition { return e.cond }

// FieldSet holds the predicted fields and their spatial derivatives, one
// entry per sample.
type FieldSet struct {
	Value, DX, DY, DXX, DYY models.Fields
}

// Residuals holds the pointwise equation residuals.
type Residuals struct {
	Continuity []float64
	MomentumX  []float64
	MomentumY  []float64
}

type Result struct {
	Loss       float64
	Continuity float64
	MomentumX  float64
	MomentumY  float64
	// Seed is ∂Loss/∂output on every tape channel.
	Seed models.Seed
}

// Fields extracts a FieldSet from a tape recorded with coordinate gradients.
func Fields(tape *models.Tape) (FieldSet, error) {
	if !tape.HasCoordinateGradients() {
		return FieldSet{}, fmt.Errorf("physics residual: %w", aero.ErrGradientUnavailable)
	}
	fs := FieldSet{Value: tape.Fields()}
	var err error
	for _, ch := range []struct {
		c   models.Channel
		dst *models.Fields
	}{
		{models.DX, &fs.DX},
		{models.DY, &fs.DY},
		{models.DXX, &fs.DXX},
		{models.DYY, &fs.DYY},
	} {
		if *ch.dst, err = tape.FieldsOf(ch.c); err != nil {
			return FieldSet{}, fmt.Errorf("physics residual: %w", err)
		}
	}
	return fs, nil
}

// Evaluate computes the residual loss and its seed for back-propagation
// through tape.
func (e *Evaluator) Evaluate(tape *models.Tape) (*Result, error) {
	fs, err := Fields(tape)
	if err != nil {
		return nil, err
	}
	return e.EvaluateFields(fs)
}

func (e *Evaluator) Residuals(fs FieldSet) Residuals {
	n := len(fs.Value.U)
	beta := 1 - e.cond.Mach*e.cond.Mach
	nu := 1 / e.cond.Reynolds

	r := Residuals{
		Continuity: make([]float64, n),
		MomentumX:  make([]float64, n),
		MomentumY:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		u, v := fs.Value.U[i], fs.Value.V[i]
		ux, uy := fs.DX.U[i], fs.DY.U[i]
		vx, vy := fs.DX.V[i], fs.DY.V[i]
		px, py := fs.DX.P[i], fs.DY.P[i]

		r.Continuity[i] = beta*ux + vy
		r.MomentumX[i] = u*ux + v*uy + px - nu*(fs.DXX.U[i]+fs.DYY.U[i])
		r.MomentumY[i] = u*vx + v*vy + py - nu*(fs.DXX.V[i]+fs.DYY.V[i])
	}
	return r
}

func (e *Evaluator) EvaluateFields(fs FieldSet) (*Result, error) {
	n := len(fs.Value.U)
	if n == 0 {
		return nil, fmt.Errorf("physics residual: %w: empty batch", aero.ErrShape)
	}
	r := e.Residuals(fs)
	beta := 1 - e.cond.Mach*e.cond.Mach
	nu := 1 / e.cond.Reynolds

	res := &Result{}
	var seed [models.NumChannels][]float64
	for c := range seed {
		seed[c] = make([]float64, n*models.DefaultOutputSize)
	}
	set := func(c models.Channel, i, col int, v float64) {
		seed[c][i*models.DefaultOutputSize+col] = v
	}

	a := 2 / float64(n)
	for i := 0; i < n; i++ {
		rc, rx, ry := r.Continuity[i], r.MomentumX[i], r.MomentumY[i]
		res.Continuity += rc * rc
		res.MomentumX += rx * rx
		res.MomentumY += ry * ry

		u, v := fs.Value.U[i], fs.Value.V[i]
		set(models.Value, i, models.ColU, a*(rx*fs.DX.U[i]+ry*fs.DX.V[i]))
		set(models.Value, i, models.ColV, a*(rx*fs.DY.U[i]+ry*fs.DY.V[i]))

		set(models.DX, i, models.ColU, a*(beta*rc+rx*u))
		set(models.DX, i, models.ColV, a*ry*u)
		set(models.DX, i, models.ColP, a*rx)

		set(models.DY, i, models.ColU, a*rx*v)
		set(models.DY, i, models.ColV, a*(rc+ry*v))
		set(models.DY, i, models.ColP, a*ry)

		set(models.DXX, i, models.ColU, -a*nu*rx)
		set(models.DXX, i, models.ColV, -a*nu*ry)
		set(models.DYY, i, models.ColU, -a*nu*rx)
		set(models.DYY, i, models.ColV, -a*nu*ry)
	}

	res.Continuity /= float64(n)
	res.MomentumX /= float64(n)
	res.MomentumY /= float64(n)
	res.Loss = res.Continuity + res.MomentumX + res.MomentumY
	for c := range seed {
		res.Seed[c] = mat.NewDense(n, models.DefaultOutputSize, seed[c])
	}
	return res, nil
}

// Detached reports the residual loss of the wrapped evaluator with an empty
// seed, so the penalty is recorded without influencing parameter updates.
type Detached struct {
	*Evaluator
}

func (d Detached) Evaluate(tape *models.Tape) (*Result, error) {
	res, err := d.Evaluator.Evaluate(tape)
	if err != nil {
		return nil, err
	}
	res.Seed = models.Seed{}
	return res, nil
}

// Residual is implemented by Evaluator and Detached.
type Residual interface {
	Evaluate(tape *models.Tape) (*Result, error)
}

// Names lists the residual variants accepted by ByName.
func Names() []string { return []string{"detached", "navier_stokes"} }

func ByName(name string, cond aero.FlowCondition) (Residual, error) {
	eval, err := New(cond)
	if err != nil {
		return nil, err
	}
	switch name {
	case "navier_stokes", "":
		return eval, nil
	case "detached":
		return Detached{Evaluator: eval}, nil
	default:
		return nil, fmt.Errorf("unknown residual: %s", name)
	}
}
