// Package trainer drives physics-informed training of a models.FlowModel.
//
// A [Trainer] runs once. Each epoch walks the training batches in order:
// forward pass with coordinate tangents, supervised loss plus weighted
// physics residual, reverse pass, global-norm clipping and one optimizer
// step. Epoch means are appended to a [History]. Every CheckpointEvery
// epochs a snapshot of the parameters is handed to a background writer;
// Train waits for pending writes before it returns.
//
// Progress is reported to injected [Observer] values. The package holds no
// global logger.
package trainer
