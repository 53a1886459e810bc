package database

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
	loadSql "github.com/geniteam/policyrag/sql"
)

// VectorRecord is a persisted index entry: the chunk, its embedding and
// the model it was embedded with.
type VectorRecord struct {
	Chunk     *model.Chunk
	Embedding []float32
	ModelID   string
}

// VectorsDBHandlerFunctions defines the interface for vector store operations.
type VectorsDBHandlerFunctions interface {
	UpsertVector(chunk *model.Chunk, embedding []float32, modelID string) error
	DeleteVector(chunkID string) error
	SelectVectorsByModel(modelID string) ([]*VectorRecord, error)
	PurgeOtherModels(modelID string) (int64, error)
	CountByModel(modelID string) (int, error)
}

// VectorsDBHandler persists embedding index entries in PostgreSQL with
// pgvector. It is a write-through backup of the in-memory index, not a
// query path: similarity search stays in memory.
type VectorsDBHandler struct {
	db *helper.Database
}

// NewVectorsDBHandler creates a new vector store handler, initializing
// extensions and the policy_vectors table for the given embedding
// dimension.
func NewVectorsDBHandler(db *helper.Database, embeddingDim int) (*VectorsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	if err := loadSql.Init(db.Instance); err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}
	if err := loadSql.CreateVectorsTable(db.Instance, embeddingDim); err != nil {
		return nil, helper.NewError("create vectors table", err)
	}

	db.Logger.Info("Initialized VectorsDBHandler", slog.Int("embedding_dim", embeddingDim))

	return &VectorsDBHandler{db: db}, nil
}

// UpsertVector inserts or replaces the persisted entry for a chunk
func (h *VectorsDBHandler) UpsertVector(chunk *model.Chunk, embedding []float32, modelID string) error {
	// nil slices would serialize to SQL NULL and trip the NOT NULL
	// constraints.
	gradeTags := chunk.GradeTags
	if gradeTags == nil {
		gradeTags = []string{}
	}
	metadata := chunk.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	_, err := h.db.Instance.Exec(
		`INSERT INTO policy_vectors
			(chunk_id, document_id, model_id, embedding, content, token_count, chunk_index, section, grade_tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (chunk_id) DO UPDATE SET
			model_id = EXCLUDED.model_id,
			embedding = EXCLUDED.embedding,
			content = EXCLUDED.content,
			token_count = EXCLUDED.token_count,
			chunk_index = EXCLUDED.chunk_index,
			section = EXCLUDED.section,
			grade_tags = EXCLUDED.grade_tags,
			metadata = EXCLUDED.metadata`,
		chunk.ID,
		chunk.DocumentID,
		modelID,
		pgvector.NewVector(embedding),
		chunk.Content,
		chunk.TokenCount,
		chunk.ChunkIndex,
		chunk.Section,
		pq.Array(gradeTags),
		metadata,
	)
	if err != nil {
		return helper.NewError(fmt.Sprintf("upsert vector %s", chunk.ID), err)
	}
	return nil
}

// DeleteVector removes the persisted entry for a chunk. Deleting an
// absent chunk ID is a no-op.
func (h *VectorsDBHandler) DeleteVector(chunkID string) error {
	_, err := h.db.Instance.Exec(`DELETE FROM policy_vectors WHERE chunk_id = $1`, chunkID)
	if err != nil {
		return helper.NewError(fmt.Sprintf("delete vector %s", chunkID), err)
	}
	return nil
}

// SelectVectorsByModel returns all entries embedded with the given
// model, in insertion order so a restored index ranks ties identically.
func (h *VectorsDBHandler) SelectVectorsByModel(modelID string) ([]*VectorRecord, error) {
	rows, err := h.db.Instance.Query(
		`SELECT chunk_id, document_id, model_id, embedding, content, token_count, chunk_index, section, grade_tags, metadata, created_at
		FROM policy_vectors
		WHERE model_id = $1
		ORDER BY seq`,
		modelID,
	)
	if err != nil {
		return nil, helper.NewError("select vectors", err)
	}
	defer rows.Close()

	var records []*VectorRecord
	for rows.Next() {
		chunk := &model.Chunk{}
		var documentID uuid.UUID
		var embedding pgvector.Vector
		var recordModelID string

		err := rows.Scan(
			&chunk.ID,
			&documentID,
			&recordModelID,
			&embedding,
			&chunk.Content,
			&chunk.TokenCount,
			&chunk.ChunkIndex,
			&chunk.Section,
			pq.Array(&chunk.GradeTags),
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan vector row", err)
		}

		chunk.DocumentID = documentID
		records = append(records, &VectorRecord{
			Chunk:     chunk,
			Embedding: embedding.Slice(),
			ModelID:   recordModelID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate vector rows", err)
	}

	return records, nil
}

// PurgeOtherModels deletes every entry not embedded with the given
// model. Vectors from a different model id are invalid wholesale: they
// live in an incompatible embedding space.
func (h *VectorsDBHandler) PurgeOtherModels(modelID string) (int64, error) {
	res, err := h.db.Instance.Exec(`DELETE FROM policy_vectors WHERE model_id <> $1`, modelID)
	if err != nil {
		return 0, helper.NewError("purge stale vectors", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, helper.NewError("purge stale vectors", err)
	}
	if purged > 0 {
		h.db.Logger.Warn("Purged vectors from a different embedding model",
			slog.Int64("purged", purged),
			slog.String("model_id", modelID),
		)
	}
	return purged, nil
}

// CountByModel returns the number of persisted entries for a model
func (h *VectorsDBHandler) CountByModel(modelID string) (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count(*) FROM policy_vectors WHERE model_id = $1`, modelID).Scan(&count)
	if err != nil {
		return 0, helper.NewError("count vectors", err)
	}
	return count, nil
}
