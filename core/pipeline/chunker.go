package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

// ParagraphChunker creates a chunker that splits documents at paragraph
// boundaries, keeping each chunk within maxTokens whitespace-delimited
// tokens. Oversized paragraphs are split at sentence boundaries. Section
// headers are not emitted as chunks of their own; they are prefixed into
// the chunks of the paragraphs they head, so a chunk stays meaningful in
// isolation.
func ParagraphChunker(maxTokens int) ChunkFunc {
	return func(doc *model.Document) ([]*model.Chunk, error) {
		if maxTokens <= 0 {
			return nil, fmt.Errorf("max tokens per chunk must be positive")
		}

		text := strings.TrimSpace(doc.Content)
		if text == "" {
			return nil, helper.NewError(fmt.Sprintf("chunk document %q", doc.Title), model.ErrMalformedDocument)
		}

		var chunks []*model.Chunk
		section := ""
		var headers []string

		emit := func(content string) {
			idx := len(chunks)
			chunks = append(chunks, &model.Chunk{
				ID:         fmt.Sprintf("%s.chunk%d", doc.ID, idx),
				DocumentID: doc.ID,
				Content:    content,
				TokenCount: len(strings.Fields(content)),
				ChunkIndex: idx,
				Section:    section,
				GradeTags:  ExtractGradeTags(content),
				Metadata: model.Metadata{
					"chunking_method": "paragraph",
				},
				CreatedAt: time.Now(),
			})
		}

		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}

			if isSectionHeader(para) {
				section = para
				headers = append(headers, para)
				continue
			}

			content := para
			if section != "" {
				content = section + "\n" + para
			}

			if len(strings.Fields(content)) <= maxTokens {
				emit(content)
				continue
			}

			// Oversized paragraph: pack sentences up to maxTokens,
			// carrying the section prefix into every piece.
			for _, piece := range packSentences(para, section, maxTokens) {
				emit(piece)
			}
		}

		// A document consisting only of header-like lines still carries
		// text; index the headers themselves rather than failing.
		if len(chunks) == 0 {
			section = ""
			for _, h := range headers {
				emit(h)
			}
		}
		if len(chunks) == 0 {
			return nil, helper.NewError(fmt.Sprintf("chunk document %q", doc.Title), model.ErrMalformedDocument)
		}

		return chunks, nil
	}
}

// isSectionHeader reports whether a paragraph looks like a section
// heading: a single short line without terminal sentence punctuation.
func isSectionHeader(para string) bool {
	if strings.Contains(para, "\n") {
		return false
	}
	if strings.HasSuffix(para, ".") || strings.HasSuffix(para, "!") || strings.HasSuffix(para, "?") {
		return false
	}
	return len(strings.Fields(para)) <= 8
}

// packSentences splits a paragraph into sentences and greedily groups
// them into pieces of at most maxTokens tokens. A single sentence longer
// than maxTokens is emitted on its own rather than cut mid-sentence.
func packSentences(para, section string, maxTokens int) []string {
	marked := strings.ReplaceAll(para, "! ", "!|")
	marked = strings.ReplaceAll(marked, "? ", "?|")
	marked = strings.ReplaceAll(marked, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(marked, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	prefix := ""
	prefixTokens := 0
	if section != "" {
		prefix = section + "\n"
		prefixTokens = len(strings.Fields(section))
	}

	var pieces []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pieces = append(pieces, prefix+strings.Join(current, " "))
		current = nil
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := len(strings.Fields(sentence))
		if currentTokens > 0 && prefixTokens+currentTokens+tokens > maxTokens {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return pieces
}
