package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geniteam/policyrag/core/index"
	"github.com/geniteam/policyrag/core/pipeline"
	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

// Engine embeds queries and ranks index chunks by similarity.
type Engine struct {
	index    *index.Index
	embedder pipeline.Embedder
	log      *slog.Logger
}

// NewEngine creates a retrieval engine over the given index. The query
// embedder must be the same model the index was built with; a mismatch
// is a configuration error that must halt startup, so it fails here
// with model.ErrIncompatibleEmbeddingSpace rather than degrading
// silently at query time.
func NewEngine(idx *index.Index, embedder pipeline.Embedder, logger *slog.Logger) (*Engine, error) {
	if idx == nil || embedder == nil {
		return nil, helper.NewError("create retrieval engine", fmt.Errorf("index and embedder are required"))
	}
	if idx.ModelID() != embedder.ModelID() {
		return nil, helper.NewError(
			"create retrieval engine",
			fmt.Errorf("%w: index built with %q, query embedder is %q",
				model.ErrIncompatibleEmbeddingSpace, idx.ModelID(), embedder.ModelID()),
		)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{index: idx, embedder: embedder, log: logger}, nil
}

// Retrieve embeds queryText and returns the top-k chunks that clear
// config.MinScore, in descending similarity order. When fewer than k
// chunks clear the threshold it returns fewer, down to zero: an empty
// result means "no relevant evidence", which the grounding composer
// relies on. Results are never padded with low-relevance chunks.
func (e *Engine) Retrieve(ctx context.Context, queryText string, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	return e.retrieve(ctx, queryText, config.TopK, config.MinScore)
}

// retrieve is the shared scan used by the strategies; k is the number
// of candidates requested from the index before threshold filtering.
func (e *Engine) retrieve(ctx context.Context, queryText string, k int, minScore float64) ([]*model.RetrievalResult, error) {
	vector, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	candidates, err := e.index.Query(vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RetrievalResult, 0, len(candidates))
	for _, c := range candidates {
		if c.SimilarityScore < minScore {
			// Candidates are sorted descending, nothing below clears either.
			break
		}
		results = append(results, c)
	}

	e.log.Debug("Retrieved chunks",
		slog.Int("candidates", len(candidates)),
		slog.Int("above_threshold", len(results)),
	)
	return results, nil
}
