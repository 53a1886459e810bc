package retrieval

import (
	"context"

	"github.com/geniteam/policyrag/core/pipeline"
	"github.com/geniteam/policyrag/model"
)

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, query *model.Query, config *model.QueryConfig) ([]*model.RetrievalResult, error)
}

// VectorStrategy performs pure vector similarity search
type VectorStrategy struct {
	engine *Engine
}

// NewVectorStrategy creates a new vector-only strategy
func NewVectorStrategy(engine *Engine) *VectorStrategy {
	return &VectorStrategy{engine: engine}
}

// Retrieve performs vector-only retrieval
func (s *VectorStrategy) Retrieve(ctx context.Context, query *model.Query, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	return s.engine.Retrieve(ctx, query.RawText, config)
}

// GradeAwareStrategy combines exact grade-code matching with semantic
// ranking. When the query names a grade code, chunks tagged with that
// exact code are ranked ahead of purely semantic matches. Chunks tagged
// only with a related grade ("G1" for a "G1-A" query) get no boost:
// they stay subject to the similarity threshold, and whether they clear
// the high-confidence bar is the composer's call. Embedding similarity
// alone cannot tell "G1" from "G1-A"; the exact-match pass makes that
// distinction explicit instead of leaving it to the generator.
type GradeAwareStrategy struct {
	engine *Engine
}

// NewGradeAwareStrategy creates a new grade-aware hybrid strategy
func NewGradeAwareStrategy(engine *Engine) *GradeAwareStrategy {
	return &GradeAwareStrategy{engine: engine}
}

// Retrieve performs hybrid exact-grade plus semantic retrieval
func (s *GradeAwareStrategy) Retrieve(ctx context.Context, query *model.Query, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	tags := pipeline.QueryGradeTags(query)
	if len(tags) == 0 {
		return s.engine.Retrieve(ctx, query.RawText, config)
	}

	oversample := config.Oversample
	if oversample < 1 {
		oversample = 1
	}

	candidates, err := s.engine.retrieve(ctx, query.RawText, config.TopK*oversample, config.MinScore)
	if err != nil {
		return nil, err
	}

	// Stable partition: exact grade matches first, both halves keeping
	// their similarity order.
	var exact, rest []*model.RetrievalResult
	for _, c := range candidates {
		if matchesAnyTag(c.Chunk, tags) {
			c.RetrievalMethod = model.RetrievalMethodGradeExact
			exact = append(exact, c)
		} else {
			rest = append(rest, c)
		}
	}

	results := append(exact, rest...)
	if len(results) > config.TopK {
		results = results[:config.TopK]
	}
	return results, nil
}

func matchesAnyTag(chunk *model.Chunk, tags []string) bool {
	for _, tag := range tags {
		if chunk.HasGradeTag(tag) {
			return true
		}
	}
	return false
}
