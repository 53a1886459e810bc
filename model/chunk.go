package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is a retrieval-unit slice of a source document. Chunks are
// immutable once created; the ID is derived from the document ID and the
// running chunk index, so re-chunking an unchanged document yields
// identical IDs.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	ChunkIndex int       `json:"chunk_index"`
	Section    string    `json:"section,omitempty"`
	GradeTags  []string  `json:"grade_tags,omitempty"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasGradeTag reports whether the chunk carries the exact grade code.
// "G1" does not match "G1-A"; that distinction is the whole point.
func (c *Chunk) HasGradeTag(tag string) bool {
	for _, t := range c.GradeTags {
		if t == tag {
			return true
		}
	}
	return false
}
