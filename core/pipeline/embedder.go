package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"

	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

const (
	// DefaultModelName is the sentence transformer used for both
	// index-build and query embedding.
	DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultDimension is the embedding dimension of DefaultModelName.
	DefaultDimension = 384
)

// LocalEmbedder runs a sentence transformer locally through hugot.
// The model session is process-wide state: create it once at startup
// and release it with Close on shutdown.
type LocalEmbedder struct {
	embed   func(text string) ([]float32, error)
	destroy func() error
	modelID string
	dim     int
}

// DefaultEmbedder creates a LocalEmbedder with the all-MiniLM-L6-v2
// model (384 dimensions), downloading it on first use.
func DefaultEmbedder() (*LocalEmbedder, error) {
	return NewLocalEmbedder(DefaultModelName, DefaultDimension)
}

// NewLocalEmbedder loads the named sentence transformer model and
// prepares a feature extraction pipeline for it.
func NewLocalEmbedder(modelName string, dimension int) (*LocalEmbedder, error) {
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "policy-embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &LocalEmbedder{
		embed: func(text string) ([]float32, error) {
			result, err := sentencePipeline.RunPipeline([]string{text})
			if err != nil {
				return nil, fmt.Errorf("failed to generate embedding: %w", err)
			}
			if len(result.Embeddings) == 0 {
				return nil, fmt.Errorf("no embedding generated")
			}
			return result.Embeddings[0], nil
		},
		destroy: session.Destroy,
		modelID: modelName,
		dim:     dimension,
	}, nil
}

// Embed generates the embedding vector for text. Identical text yields
// an identical vector.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, helper.NewError("embed text", model.ErrEmbeddingUnavailable)
	}

	vector, err := e.embed(text)
	if err != nil {
		return nil, helper.NewError("embed text", fmt.Errorf("%w: %v", model.ErrEmbeddingUnavailable, err))
	}
	if len(vector) != e.dim {
		return nil, helper.NewError("embed text", fmt.Errorf("%w: got dimension %d, want %d", model.ErrEmbeddingUnavailable, len(vector), e.dim))
	}

	return vector, nil
}

// ModelID returns the embedding model identity.
func (e *LocalEmbedder) ModelID() string {
	return e.modelID
}

// Dimension returns the embedding vector length.
func (e *LocalEmbedder) Dimension() int {
	return e.dim
}

// Close destroys the model session.
func (e *LocalEmbedder) Close() error {
	return e.destroy()
}
