// Package physics evaluates governing-equation residuals of a predicted flow
// field.
//
// The [Evaluator] penalizes violations of the steady two-dimensional
// equations for a fixed [aero.FlowCondition]:
//
//	continuity:  (1 - M²) u_x + v_y                    = 0
//	x-momentum:  u u_x + v u_y + p_x - (u_xx + u_yy)/Re = 0
//	y-momentum:  u v_x + v v_y + p_y - (v_xx + v_yy)/Re = 0
//
// The (1 - M²) factor is the Prandtl–Glauert compressibility correction. The
// scalar loss is the sum of the mean squared residual of each equation. Every
// derivative comes from the current forward pass of the flow model; nothing
// is cached between batches.
//
// # Example
//
//	eval, _ := physics.New(aero.FlowCondition{Reynolds: 1e6, Mach: 0.3})
//	tape, _ := model.Forward(features, models.WithCoordinateGradients)
//	res, _ := eval.Evaluate(tape)
//	grads, _ := tape.Backward(res.Seed)
package physics
