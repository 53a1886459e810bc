package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniteam/policyrag/model"
)

// slowEmbedder simulates model inference latency and tracks how many
// Embed calls run at once.
type slowEmbedder struct {
	delay time.Duration
	dim   int

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (s *slowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return make([]float32, s.dim), nil
}

func (s *slowEmbedder) ModelID() string { return "test/slow-model" }
func (s *slowEmbedder) Dimension() int  { return s.dim }
func (s *slowEmbedder) Close() error    { return nil }

func TestBoundedEmbedder(t *testing.T) {
	t.Run("Successful embedding passes through", func(t *testing.T) {
		inner := &slowEmbedder{delay: 5 * time.Millisecond, dim: 4}
		bounded := NewBoundedEmbedder(inner, 2, time.Second)

		vector, err := bounded.Embed(context.Background(), "some policy text")

		require.NoError(t, err)
		assert.Len(t, vector, 4)
	})

	t.Run("Timeout maps to ErrEmbeddingTimeout", func(t *testing.T) {
		inner := &slowEmbedder{delay: 500 * time.Millisecond, dim: 4}
		bounded := NewBoundedEmbedder(inner, 2, 20*time.Millisecond)

		_, err := bounded.Embed(context.Background(), "some policy text")

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrEmbeddingTimeout)
	})

	t.Run("Caller cancellation is not reported as timeout", func(t *testing.T) {
		inner := &slowEmbedder{delay: 500 * time.Millisecond, dim: 4}
		bounded := NewBoundedEmbedder(inner, 2, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := bounded.Embed(ctx, "some policy text")

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, model.ErrEmbeddingTimeout)
	})

	t.Run("Concurrency stays within the bound", func(t *testing.T) {
		inner := &slowEmbedder{delay: 30 * time.Millisecond, dim: 4}
		bounded := NewBoundedEmbedder(inner, 2, time.Second)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := bounded.Embed(context.Background(), "text")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		inner.mu.Lock()
		defer inner.mu.Unlock()
		assert.LessOrEqual(t, inner.maxInFlight, 2, "Expected at most 2 concurrent Embed calls")
	})

	t.Run("Zero timeout disables the deadline", func(t *testing.T) {
		inner := &slowEmbedder{delay: 30 * time.Millisecond, dim: 4}
		bounded := NewBoundedEmbedder(inner, 1, 0)

		vector, err := bounded.Embed(context.Background(), "text")

		require.NoError(t, err)
		assert.Len(t, vector, 4)
	})

	t.Run("Identity and dimension pass through", func(t *testing.T) {
		inner := &slowEmbedder{dim: 384}
		bounded := NewBoundedEmbedder(inner, 4, time.Second)

		assert.Equal(t, "test/slow-model", bounded.ModelID())
		assert.Equal(t, 384, bounded.Dimension())
	})

	t.Run("Non-positive concurrency falls back to one", func(t *testing.T) {
		inner := &slowEmbedder{delay: time.Millisecond, dim: 4}
		bounded := NewBoundedEmbedder(inner, 0, time.Second)

		_, err := bounded.Embed(context.Background(), "text")

		require.NoError(t, err)
	})
}
