package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/geniteam/policyrag/core/pipeline"
	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

// entry pairs a chunk with its embedding. The norm is cached at insert
// time so a query scan costs one dot product per entry.
type entry struct {
	chunk  *model.Chunk
	vector []float32
	norm   float64
}

// snapshot is an immutable view of the index contents. Entries keep
// insertion order, which is what breaks similarity ties.
type snapshot struct {
	entries []entry
	byID    map[string]int
}

// Index is an exact, in-memory embedding index over policy chunks. It
// performs a linear cosine-similarity scan per query (O(N)) and is the
// sole owner of the embedding vectors; chunks are shared read-only.
//
// Mutations are serialized and publish a fresh copy-on-write snapshot,
// so queries running concurrently with add/remove always read a
// consistent vector set.
type Index struct {
	embedder pipeline.Embedder
	log      *slog.Logger

	mu   sync.Mutex // serializes mutations
	snap atomic.Pointer[snapshot]
}

// New creates an empty index that computes embeddings through the given
// adapter.
func New(embedder pipeline.Embedder, logger *slog.Logger) (*Index, error) {
	if embedder == nil {
		return nil, helper.NewError("create index", fmt.Errorf("embedder is nil"))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	idx := &Index{
		embedder: embedder,
		log:      logger,
	}
	idx.snap.Store(&snapshot{byID: map[string]int{}})
	return idx, nil
}

// ModelID returns the identity of the embedding model the index was
// built with.
func (i *Index) ModelID() string {
	return i.embedder.ModelID()
}

// Dimension returns the embedding vector length.
func (i *Index) Dimension() int {
	return i.embedder.Dimension()
}

// Exact reports whether query results are exact rather than
// approximate. The linear-scan implementation always is.
func (i *Index) Exact() bool {
	return true
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	return len(i.snap.Load().entries)
}

// Contains reports whether a chunk is currently present.
func (i *Index) Contains(chunkID string) bool {
	_, ok := i.snap.Load().byID[chunkID]
	return ok
}

// Vector returns the stored embedding for a chunk, if present.
func (i *Index) Vector(chunkID string) ([]float32, bool) {
	snap := i.snap.Load()
	pos, ok := snap.byID[chunkID]
	if !ok {
		return nil, false
	}
	return snap.entries[pos].vector, true
}

// Add computes the chunk's embedding through the model adapter and
// stores it. Re-adding an existing chunk ID replaces the stored vector
// in place, keeping the original insertion position.
func (i *Index) Add(ctx context.Context, chunk *model.Chunk) error {
	if chunk == nil || chunk.ID == "" {
		return helper.NewError("add chunk", fmt.Errorf("chunk with empty ID"))
	}

	vector, err := i.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return helper.NewError(fmt.Sprintf("add chunk %s", chunk.ID), err)
	}

	return i.AddWithVector(chunk, vector)
}

// AddWithVector stores a chunk with a precomputed embedding. Used when
// restoring the index from a persistent vector store; the caller is
// responsible for the vector having been produced by the same model.
func (i *Index) AddWithVector(chunk *model.Chunk, vector []float32) error {
	if chunk == nil || chunk.ID == "" {
		return helper.NewError("add chunk", fmt.Errorf("chunk with empty ID"))
	}
	if len(vector) != i.embedder.Dimension() {
		return helper.NewError(
			fmt.Sprintf("add chunk %s", chunk.ID),
			fmt.Errorf("%w: vector dimension %d, index dimension %d", model.ErrIncompatibleEmbeddingSpace, len(vector), i.embedder.Dimension()),
		)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	old := i.snap.Load()
	next := &snapshot{
		entries: make([]entry, len(old.entries)),
		byID:    make(map[string]int, len(old.byID)+1),
	}
	copy(next.entries, old.entries)
	for id, pos := range old.byID {
		next.byID[id] = pos
	}

	e := entry{chunk: chunk, vector: vector, norm: vectorNorm(vector)}
	if pos, ok := next.byID[chunk.ID]; ok {
		next.entries[pos] = e
	} else {
		next.byID[chunk.ID] = len(next.entries)
		next.entries = append(next.entries, e)
	}

	i.snap.Store(next)
	return nil
}

// AddAll embeds chunks with up to workers concurrent adapter calls and
// publishes them in a single snapshot, preserving chunk order. Nothing
// is published if any embedding fails, so a cancelled build never leaves
// partial results behind.
func (i *Index) AddAll(ctx context.Context, chunks []*model.Chunk, workers int) error {
	if len(chunks) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(chunks))
	jobs := make(chan int)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				vector, err := i.embedder.Embed(ctx, chunks[j].Content)
				if err != nil {
					errs <- helper.NewError(fmt.Sprintf("embed chunk %s", chunks[j].ID), err)
					cancel()
					return
				}
				vectors[j] = vector
			}
		}()
	}

	for j := range chunks {
		select {
		case jobs <- j:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for j, chunk := range chunks {
		if err := i.AddWithVector(chunk, vectors[j]); err != nil {
			return err
		}
	}

	i.log.Info("Indexed chunks", slog.Int("num_chunks", len(chunks)), slog.Int("total", i.Len()))
	return nil
}

// Remove deletes a chunk from the index. It is idempotent: removing an
// absent chunk ID is a no-op.
func (i *Index) Remove(chunkID string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	old := i.snap.Load()
	pos, ok := old.byID[chunkID]
	if !ok {
		return
	}

	next := &snapshot{
		entries: make([]entry, 0, len(old.entries)-1),
		byID:    make(map[string]int, len(old.byID)-1),
	}
	for p, e := range old.entries {
		if p == pos {
			continue
		}
		next.byID[e.chunk.ID] = len(next.entries)
		next.entries = append(next.entries, e)
	}

	i.snap.Store(next)
}

// Query returns the k chunks most similar to the query vector by cosine
// similarity, in descending score order. Equal scores keep insertion
// order. The result only ever references chunks present in the snapshot
// the query ran against.
func (i *Index) Query(queryVector []float32, k int) ([]*model.RetrievalResult, error) {
	if len(queryVector) != i.embedder.Dimension() {
		return nil, helper.NewError(
			"query index",
			fmt.Errorf("%w: query vector dimension %d, index dimension %d", model.ErrIncompatibleEmbeddingSpace, len(queryVector), i.embedder.Dimension()),
		)
	}
	if k <= 0 {
		return []*model.RetrievalResult{}, nil
	}

	queryNorm := vectorNorm(queryVector)
	if queryNorm == 0 {
		return nil, helper.NewError("query index", fmt.Errorf("%w: zero query vector", model.ErrEmbeddingUnavailable))
	}

	snap := i.snap.Load()
	results := make([]*model.RetrievalResult, 0, len(snap.entries))
	for _, e := range snap.entries {
		score := 0.0
		if e.norm > 0 {
			score = dotProduct(queryVector, e.vector) / (queryNorm * e.norm)
		}
		results = append(results, &model.RetrievalResult{
			Chunk:           e.chunk,
			SimilarityScore: score,
			RetrievalMethod: model.RetrievalMethodVector,
		})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].SimilarityScore > results[b].SimilarityScore
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func dotProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
