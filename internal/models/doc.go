// Package models provides the differentiable flow-field network.
//
// [FlowModel] is a fully connected network mapping input features
// (x, y, angle of attack, log10 Re, Mach) to (u, v, p). A forward pass returns
// a [Tape] that records every intermediate value of that call. When recorded
// with [WithCoordinateGradients] the tape also carries forward-mode tangents of
// every layer with respect to the x and y inputs, up to second order, which
// gives exact spatial derivatives of the outputs:
//
//	tape, _ := model.Forward(features, models.WithCoordinateGradients)
//	ux, _ := tape.Output(models.DX)   // ∂(u,v,p)/∂x, one row per sample
//
// [Tape.Backward] runs reverse mode through both the value and the tangent
// channels, so a loss built from outputs and their spatial derivatives can be
// differentiated with respect to the parameters in one pass. Parameter
// gradients are accumulated into buffers owned by the returned [Gradients];
// nothing is stored on the model, so tapes from different calls never
// interfere.
//
// # Thread Safety
//
// Forward and Predict only read parameters and may run concurrently. Updating
// parameters while a tape is still to be back-propagated invalidates it.
package models
