// Package checkpoint persists model snapshots as self-contained,
// epoch-numbered files.
//
// A checkpoint file is zlib-compressed JSON carrying the network
// architecture and, for every layer, the weight matrix in gonum's binary
// encoding plus the bias vector. Files are written to a temporary name in
// the store directory, synced and renamed into place, so a reader never
// observes a partially written checkpoint under its final name.
package checkpoint
