package docsource

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

// NewDocumentFromPDF extracts the plain text of a PDF policy manual into
// a Document. A PDF with no extractable text fails with
// model.ErrMalformedDocument.
func NewDocumentFromPDF(path string, metadata model.Metadata) (*model.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("open pdf %s", path), err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("read pdf text %s", path), err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return nil, helper.NewError(fmt.Sprintf("read pdf buffer %s", path), err)
	}

	content := strings.TrimSpace(buf.String())
	if content == "" {
		return nil, helper.NewError(fmt.Sprintf("extract pdf %s", path), model.ErrMalformedDocument)
	}

	filename := filepath.Base(path)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))

	return model.NewDocument(title, path, content, metadata), nil
}
