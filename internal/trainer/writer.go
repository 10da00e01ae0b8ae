package trainer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/aeropinn/internal/models"
)

// writer persists snapshots on a background goroutine, one at a time and in
// submission order. Writes outlive cancellation of the training context so a
// checkpoint already taken is never abandoned half way.
type writer struct {
	sink CheckpointSink
	g    *errgroup.Group
	ctx  context.Context
}

func newWriter(ctx context.Context, sink CheckpointSink) *writer {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(1)
	return &writer{sink: sink, g: g, ctx: gctx}
}

// Submit queues snap. The caller must not share snap with the live model.
func (w *writer) Submit(name string, snap *models.Snapshot) {
	if w.sink == nil {
		return
	}
	w.g.Go(func() error {
		return w.sink.Save(w.ctx, name, snap)
	})
}

// Failed reports whether a previous write has returned an error.
func (w *writer) Failed() bool { return w.ctx.Err() != nil }

func (w *writer) Wait() error { return w.g.Wait() }
