// Package optim provides gradient-based parameter updates for training.
//
//   - [Adam] and [SGD]: optimizers implementing [Optimizer]
//   - [ClipGradNorm]: global-norm gradient clipping
//   - [StepLR]: stepwise learning-rate decay, stepped once per epoch
//
// Parameters and gradients are exchanged as parallel lists of flat slices,
// the layout returned by models.FlowModel.Parameters and
// models.Gradients.Slices.
package optim
