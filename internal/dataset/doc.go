// Package dataset loads tabulated flow samples and turns them into batches.
//
// [Split] partitions samples into training and validation subsets, and a
// [Loader] serves one of those subsets as a sequence of [Batch] values. A
// shuffling loader draws a new order on every [Loader.Epoch] call while the
// set of samples it serves never changes.
//
// [Generate] produces an illustrative synthetic table. Its fields follow a
// free-stream velocity with sinusoidal perturbations and a Bernoulli-like
// pressure plus noise; they are sample data, not a solution of the governing
// equations.
package dataset
