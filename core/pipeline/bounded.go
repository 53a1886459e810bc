package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

// BoundedEmbedder wraps an Embedder with a concurrency limit and a
// per-call timeout. Model inference is the dominant blocking operation
// on both the index-build and query paths; bounding it keeps concurrent
// requests from piling up on the model session. A call that exceeds the
// timeout fails with model.ErrEmbeddingTimeout.
type BoundedEmbedder struct {
	inner   Embedder
	sem     chan struct{}
	timeout time.Duration
}

// NewBoundedEmbedder creates a bounded adapter allowing at most
// maxConcurrent in-flight Embed calls. A timeout of zero disables the
// per-call deadline.
func NewBoundedEmbedder(inner Embedder, maxConcurrent int, timeout time.Duration) *BoundedEmbedder {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &BoundedEmbedder{
		inner:   inner,
		sem:     make(chan struct{}, maxConcurrent),
		timeout: timeout,
	}
}

type embedResult struct {
	vector []float32
	err    error
}

// Embed acquires a worker slot and runs the inner embedder, enforcing
// the configured timeout. Caller cancellation is honored while waiting
// for a slot and while the call is in flight.
func (b *BoundedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	callCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	// Buffered so the worker goroutine never leaks a blocked send.
	done := make(chan embedResult, 1)
	go func() {
		vector, err := b.inner.Embed(callCtx, text)
		done <- embedResult{vector: vector, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, helper.NewError("embed text", model.ErrEmbeddingTimeout)
		}
		return res.vector, res.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, helper.NewError("embed text", model.ErrEmbeddingTimeout)
		}
		return nil, ctx.Err()
	}
}

// ModelID returns the inner embedder's model identity.
func (b *BoundedEmbedder) ModelID() string {
	return b.inner.ModelID()
}

// Dimension returns the inner embedder's vector length.
func (b *BoundedEmbedder) Dimension() int {
	return b.inner.Dimension()
}

// Close closes the inner embedder.
func (b *BoundedEmbedder) Close() error {
	return b.inner.Close()
}
