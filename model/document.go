package model

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents a source policy document. It is owned by ingestion
// and read-only to the retrieval core.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Content   string    `json:"content,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDocument creates a document with a fresh ID.
func NewDocument(title, source, content string, metadata Metadata) *Document {
	return &Document{
		ID:        uuid.New(),
		Title:     title,
		Source:    source,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// NewDocumentFromFile reads a file and creates a Document with the file content.
// The title defaults to the filename without extension, the source to the file path.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return NewDocument(title, filePath, string(content), metadata), nil
}
