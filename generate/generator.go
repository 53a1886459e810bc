package generate

import (
	"context"

	"github.com/geniteam/policyrag/model"
)

// Fallback answers used when the core cannot or must not call the
// generator.
const (
	// FallbackNoPolicy is returned for NONE-confidence results: no
	// relevant evidence was retrieved, so no answer is synthesized.
	FallbackNoPolicy = "According to the current HR policy, this benefit/policy is not available."
	// FallbackUnavailable is returned when the embedding adapter times
	// out or fails; the query was never matched against the corpus.
	FallbackUnavailable = "I could not process your question right now. Please try again or contact HR for assistance."
)

// Request carries everything the answer generator needs: the question,
// the employee grade, and the composed evidence with its confidence tag.
type Request struct {
	Question  string
	UserGrade string
	Context   *model.GroundedContext
}

// Generator is the adapter to an external generative model. The core
// does not inspect or validate the response content; its contract is
// that the prompt handed to the model branches on the confidence tag.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
}
