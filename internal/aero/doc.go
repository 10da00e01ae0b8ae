// Package aero provides the core primitives shared by the training pipeline.
//
// The package defines the data types flowing between components and the
// error taxonomy every stage reports through:
//
//   - [FlowSample]: one tabulated observation (x, y, AoA, u, v, p)
//   - [FlowCondition]: Reynolds and Mach numbers fixed for a whole run
//   - [Prediction]: the (u, v, p) triple produced by a flow model
//
// # Errors
//
// All sentinel errors are fatal to a training run. Callers match them with
// errors.Is; context-carrying wrappers such as [ShapeError] unwrap to them.
//
// # Parallelism
//
// [ParallelFor] splits row-independent work across goroutines. Every row is
// computed by exactly one worker, so results do not depend on the worker count.
package aero
