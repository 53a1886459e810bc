package grounding

import (
	"github.com/geniteam/policyrag/model"
)

// UncertaintyDirective is passed to the generator alongside a
// low-confidence context. The generator's prompt must branch on it: the
// answer has to state that the policy is not explicitly specified
// instead of extrapolating from related grades or policies.
const UncertaintyDirective = "The retrieved policy text does not explicitly answer the question. " +
	"State that the policy is not explicitly specified for this case. " +
	"Do not infer amounts, entitlements or eligibility from policies for related grades or similar benefits."

// Composer assembles a bounded-size grounded context from retrieval
// results and labels it with a confidence tag. It only selects and
// labels evidence; it never fabricates or truncates content.
type Composer struct {
	highThreshold float64
}

// NewComposer creates a composer. A top similarity score at or above
// highThreshold yields HIGH confidence, anything below yields LOW.
func NewComposer(highThreshold float64) *Composer {
	return &Composer{highThreshold: highThreshold}
}

// Compose greedily accepts chunks in result order until the token
// budget is exhausted. Chunks are taken whole: one that does not fit is
// skipped, never truncated. Confidence policy:
//
//   - NONE if results is empty or nothing fits the budget; the selected
//     chunk list is empty and the caller must answer "not available"
//     without invoking the generator.
//   - LOW if chunks were selected but the top similarity score is below
//     the high-confidence threshold; the context carries the
//     uncertainty directive.
//   - HIGH if the top score meets the threshold.
//
// queryGrades are the grade codes the query names. When it is non-empty
// and every selected chunk is scoped to some other grade, the evidence
// cannot answer for the requested grade no matter how similar its
// wording is, so HIGH is demoted to LOW and the directive attached.
// Chunks without grade tags are general policy and stay eligible for
// HIGH.
func (c *Composer) Compose(results []*model.RetrievalResult, queryGrades []string, tokenBudget int) *model.GroundedContext {
	if len(results) == 0 {
		return &model.GroundedContext{Confidence: model.ConfidenceNone}
	}

	var selected []*model.Chunk
	total := 0
	for _, r := range results {
		if r.Chunk.TokenCount > tokenBudget-total {
			continue
		}
		selected = append(selected, r.Chunk)
		total += r.Chunk.TokenCount
	}

	if len(selected) == 0 {
		return &model.GroundedContext{Confidence: model.ConfidenceNone}
	}

	// Results arrive in rank order, but grade-aware reranking may have
	// promoted an exact match past a higher-similarity chunk; confidence
	// reflects the strongest evidence retrieved.
	topScore := results[0].SimilarityScore
	for _, r := range results[1:] {
		if r.SimilarityScore > topScore {
			topScore = r.SimilarityScore
		}
	}
	ctx := &model.GroundedContext{
		Chunks:     selected,
		TopScore:   topScore,
		TokenCount: total,
	}
	if topScore >= c.highThreshold && gradeApplicable(selected, queryGrades) {
		ctx.Confidence = model.ConfidenceHigh
	} else {
		ctx.Confidence = model.ConfidenceLow
		ctx.Directive = UncertaintyDirective
	}
	return ctx
}

// gradeApplicable reports whether any selected chunk can answer for the
// grades the query names: an exact grade-tag match, or a chunk with no
// grade tags at all. Similarity between "G1" and "G1-A" policy text is
// high by construction, so a context made only of other-grade chunks
// never supports a high-confidence answer.
func gradeApplicable(chunks []*model.Chunk, queryGrades []string) bool {
	if len(queryGrades) == 0 {
		return true
	}
	for _, chunk := range chunks {
		if len(chunk.GradeTags) == 0 {
			return true
		}
		for _, grade := range queryGrades {
			if chunk.HasGradeTag(grade) {
				return true
			}
		}
	}
	return false
}
