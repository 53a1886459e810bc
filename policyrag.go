// Package policyrag answers employee HR-policy questions by retrieving
// relevant passages from a policy corpus via semantic embedding search
// and feeding them, with an explicit confidence tag, to a generative
// model for grounded answer synthesis.
package policyrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/geniteam/policyrag/core/grounding"
	"github.com/geniteam/policyrag/core/index"
	"github.com/geniteam/policyrag/core/pipeline"
	"github.com/geniteam/policyrag/core/retrieval"
	"github.com/geniteam/policyrag/database"
	"github.com/geniteam/policyrag/generate"
	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

// Assistant wires the retrieval-and-grounding pipeline: chunking,
// embedding index, similarity retrieval, grounding composition and the
// answer generator adapter.
type Assistant struct {
	Index     *index.Index
	Engine    *retrieval.Engine
	Strategy  retrieval.Strategy
	Composer  *grounding.Composer
	Generator generate.Generator
	Vectors   *database.VectorsDBHandler // Optional persistent vector store

	chunker  pipeline.ChunkFunc
	embedder pipeline.Embedder
	config   *Config
	log      *slog.Logger
}

// Answer is the assistant's response to a policy query.
type Answer struct {
	ResponseText  string           `json:"response_text"`
	Confidence    model.Confidence `json:"confidence"`
	CitedChunkIDs []string         `json:"cited_chunk_ids,omitempty"`
}

// New creates an Assistant with the default local embedding model. The
// model session is loaded once here and shared across requests; release
// it with Close on shutdown. When config.OpenAIKey is set, an OpenAI
// chat generator is attached.
func New(config *Config) (*Assistant, error) {
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate configuration", err)
	}

	local, err := pipeline.NewLocalEmbedder(config.EmbeddingModel, config.EmbeddingDim)
	if err != nil {
		return nil, helper.NewError("create embedder", err)
	}
	embedder := pipeline.NewBoundedEmbedder(local, config.EmbedWorkers, config.EmbedTimeout)

	var generator generate.Generator
	if config.OpenAIKey != "" {
		genConfig := generate.DefaultOpenAIConfig(config.OpenAIKey)
		genConfig.ChatModel = config.ChatModel
		generator, err = generate.NewOpenAIGeneratorWithConfig(genConfig)
		if err != nil {
			closeErr := embedder.Close()
			if closeErr != nil {
				return nil, helper.NewError("create generator", fmt.Errorf("%w (cleanup error: %v)", err, closeErr))
			}
			return nil, helper.NewError("create generator", err)
		}
	}

	return NewWithComponents(config, embedder, generator)
}

// NewWithComponents creates an Assistant with injected embedder and
// generator adapters. The embedder should already be wrapped in a
// bounded-concurrency adapter.
func NewWithComponents(config *Config, embedder pipeline.Embedder, generator generate.Generator) (*Assistant, error) {
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate configuration", err)
	}

	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	idx, err := index.New(embedder, logger)
	if err != nil {
		return nil, err
	}

	// A model identity mismatch between index and query embedder is
	// fatal at startup, never a silent degradation.
	engine, err := retrieval.NewEngine(idx, embedder, logger)
	if err != nil {
		return nil, err
	}

	var strategy retrieval.Strategy
	if config.Query.GradeFilter {
		strategy = retrieval.NewGradeAwareStrategy(engine)
	} else {
		strategy = retrieval.NewVectorStrategy(engine)
	}

	return &Assistant{
		Index:     idx,
		Engine:    engine,
		Strategy:  strategy,
		Composer:  grounding.NewComposer(config.Query.HighConfidenceThreshold),
		Generator: generator,
		chunker:   pipeline.ParagraphChunker(config.MaxChunkTokens),
		embedder:  embedder,
		config:    config,
		log:       logger,
	}, nil
}

// Close releases the embedding model session.
func (a *Assistant) Close() error {
	return a.embedder.Close()
}

// AttachVectorStore enables write-through persistence of the embedding
// index into PostgreSQL/pgvector. Entries persisted with a different
// embedding model id are purged on the next RestoreIndex.
func (a *Assistant) AttachVectorStore(db *helper.Database) error {
	handler, err := database.NewVectorsDBHandler(db, a.config.EmbeddingDim)
	if err != nil {
		return err
	}
	a.Vectors = handler
	return nil
}

// RestoreIndex rebuilds the in-memory index from the attached vector
// store without re-embedding. Persisted vectors from any other model id
// are invalidated wholesale first.
func (a *Assistant) RestoreIndex(ctx context.Context) (int, error) {
	if a.Vectors == nil {
		return 0, helper.NewError("restore index", fmt.Errorf("no vector store attached"))
	}

	if _, err := a.Vectors.PurgeOtherModels(a.Index.ModelID()); err != nil {
		return 0, err
	}

	records, err := a.Vectors.SelectVectorsByModel(a.Index.ModelID())
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		if err := a.Index.AddWithVector(record.Chunk, record.Embedding); err != nil {
			return 0, err
		}
	}

	a.log.Info("Restored index from vector store", slog.Int("num_chunks", len(records)))
	return len(records), nil
}

// IndexDocument chunks a document and adds its embeddings to the index,
// writing through to the vector store when one is attached. It returns
// the number of chunks indexed.
func (a *Assistant) IndexDocument(ctx context.Context, doc *model.Document) (int, error) {
	chunks, err := a.chunker(doc)
	if err != nil {
		return 0, err
	}

	if err := a.Index.AddAll(ctx, chunks, a.config.EmbedWorkers); err != nil {
		return 0, err
	}

	if a.Vectors != nil {
		for _, chunk := range chunks {
			vector, ok := a.Index.Vector(chunk.ID)
			if !ok {
				// AddAll just published these chunks; a missing vector
				// means the index lost an entry it still reports.
				return 0, helper.NewError(fmt.Sprintf("persist chunk %s", chunk.ID), model.ErrIndexCorrupted)
			}
			if err := a.Vectors.UpsertVector(chunk, vector, a.Index.ModelID()); err != nil {
				return 0, err
			}
		}
	}

	a.log.Info("Indexed document",
		slog.String("document_id", doc.ID.String()),
		slog.String("title", doc.Title),
		slog.Int("num_chunks", len(chunks)),
	)
	return len(chunks), nil
}

// IndexDocuments indexes a document set. Malformed documents (no
// extractable text) are logged and skipped; any other failure aborts.
// It returns the total number of chunks indexed.
func (a *Assistant) IndexDocuments(ctx context.Context, docs []*model.Document) (int, error) {
	total := 0
	for _, doc := range docs {
		n, err := a.IndexDocument(ctx, doc)
		if err != nil {
			if errors.Is(err, model.ErrMalformedDocument) {
				a.log.Warn("Skipping malformed document",
					slog.String("document_id", doc.ID.String()),
					slog.String("title", doc.Title),
				)
				continue
			}
			return total, err
		}
		total += n
	}
	return total, nil
}

// Retrieve runs the configured retrieval strategy for a query.
func (a *Assistant) Retrieve(ctx context.Context, queryText, userGrade string) ([]*model.RetrievalResult, error) {
	query := &model.Query{RawText: queryText, Grade: userGrade}
	return a.Strategy.Retrieve(ctx, query, &a.config.Query)
}

// RemoveChunk deletes a chunk from the index and, when a vector store is
// attached, from persistence. Removing an absent chunk ID is a no-op.
func (a *Assistant) RemoveChunk(chunkID string) error {
	a.Index.Remove(chunkID)
	if a.Vectors != nil {
		return a.Vectors.DeleteVector(chunkID)
	}
	return nil
}

// RemoveDocument removes every chunk of a document from the index and
// the attached vector store. Chunk IDs are sequential per document, so
// the first absent index marks the end. It returns the number of chunks
// removed.
func (a *Assistant) RemoveDocument(docID uuid.UUID) (int, error) {
	removed := 0
	for n := 0; ; n++ {
		chunkID := fmt.Sprintf("%s.chunk%d", docID, n)
		if !a.Index.Contains(chunkID) {
			break
		}
		if err := a.RemoveChunk(chunkID); err != nil {
			return removed, err
		}
		removed++
	}

	a.log.Info("Removed document",
		slog.String("document_id", docID.String()),
		slog.Int("num_chunks", removed),
	)
	return removed, nil
}

// AnswerQuery retrieves evidence for the question, composes a grounded
// context and synthesizes an answer.
//
// Failure behavior: an embedding timeout or unavailability yields a
// NONE-confidence fallback answer, never a process failure. A NONE
// confidence composition short-circuits with an explicit "not
// available" answer instead of letting the generator improvise.
func (a *Assistant) AnswerQuery(ctx context.Context, queryText, userGrade string) (*Answer, error) {
	query := &model.Query{RawText: queryText, Grade: userGrade}
	results, err := a.Strategy.Retrieve(ctx, query, &a.config.Query)
	if err != nil {
		if errors.Is(err, model.ErrEmbeddingTimeout) || errors.Is(err, model.ErrEmbeddingUnavailable) {
			a.log.Warn("Embedding unavailable for query", slog.String("error", err.Error()))
			return &Answer{
				ResponseText: generate.FallbackUnavailable,
				Confidence:   model.ConfidenceNone,
			}, nil
		}
		return nil, err
	}

	grounded := a.Composer.Compose(results, pipeline.QueryGradeTags(query), a.config.Query.ContextTokenBudget)

	if grounded.Confidence == model.ConfidenceNone {
		return &Answer{
			ResponseText: generate.FallbackNoPolicy,
			Confidence:   model.ConfidenceNone,
		}, nil
	}

	if a.Generator == nil {
		return nil, helper.NewError("answer query", fmt.Errorf("no generator configured"))
	}

	response, err := a.Generator.Generate(ctx, &generate.Request{
		Question:  queryText,
		UserGrade: userGrade,
		Context:   grounded,
	})
	if err != nil {
		return nil, helper.NewError("generate answer", err)
	}

	a.log.Info("Answered query",
		slog.String("confidence", string(grounded.Confidence)),
		slog.Int("cited_chunks", len(grounded.Chunks)),
	)
	return &Answer{
		ResponseText:  response,
		Confidence:    grounded.Confidence,
		CitedChunkIDs: grounded.ChunkIDs(),
	}, nil
}
