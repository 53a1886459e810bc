package pipeline

import (
	"context"

	"github.com/geniteam/policyrag/model"
)

// ChunkFunc is a function that splits a document into retrieval chunks.
// Implementations must be deterministic: identical input yields an
// identical chunk sequence with identical IDs.
type ChunkFunc func(doc *model.Document) ([]*model.Chunk, error)

// Embedder generates fixed-dimension embeddings for text. The same
// model identity must be used at index-build and query time; the
// retrieval engine rejects mismatched ModelIDs at startup.
type Embedder interface {
	// Embed returns the embedding vector for text. It returns
	// model.ErrEmbeddingUnavailable when no vector can be produced
	// (e.g. empty text) and honors ctx cancellation and deadlines.
	Embed(ctx context.Context, text string) ([]float32, error)
	// ModelID identifies the embedding model and version,
	// e.g. "sentence-transformers/all-MiniLM-L6-v2".
	ModelID() string
	// Dimension is the fixed vector length D.
	Dimension() int
	// Close releases the underlying model session.
	Close() error
}
