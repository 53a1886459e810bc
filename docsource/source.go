// Package docsource supplies raw policy documents to the retrieval
// core. Sources are read-only: the core never mutates a document.
package docsource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

// textExtensions are the plain-text formats LoadDirectory picks up.
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// LoadFile loads a single document from a plain-text or PDF file.
func LoadFile(path string, metadata model.Metadata) (*model.Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewDocumentFromPDF(path, metadata)
	}
	return model.NewDocumentFromFile(path, metadata)
}

// LoadDirectory loads every supported policy file in dir
// (non-recursive). Files with unsupported extensions are skipped.
func LoadDirectory(dir string) ([]*model.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("read policy directory %s", dir), err)
	}

	var docs []*model.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !textExtensions[ext] && ext != ".pdf" {
			continue
		}

		doc, err := LoadFile(filepath.Join(dir, entry.Name()), nil)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}
