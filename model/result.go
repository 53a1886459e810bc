package model

// Retrieval methods recorded on results.
const (
	RetrievalMethodVector     = "vector"
	RetrievalMethodGradeExact = "grade_exact"
)

// RetrievalResult represents a chunk retrieved for a query. A retrieval
// returns at most TopK results in descending similarity order; ties keep
// index insertion order.
type RetrievalResult struct {
	Chunk           *Chunk  `json:"chunk"`
	SimilarityScore float64 `json:"similarity_score"` // Cosine similarity in [-1, 1]
	RetrievalMethod string  `json:"retrieval_method"` // How it was retrieved (vector, grade_exact)
}

// Confidence labels how well the retrieved evidence supports an answer.
type Confidence string

const (
	// ConfidenceNone means no relevant evidence was retrieved. The answer
	// must state that the policy is not available, without calling the
	// generator.
	ConfidenceNone Confidence = "none"
	// ConfidenceLow means evidence was retrieved but it does not clearly
	// answer the question: the best match is below the high-confidence
	// threshold, or every retrieved chunk is scoped to a grade the query
	// did not ask about. The generator receives an uncertainty directive
	// and must not extrapolate by analogy.
	ConfidenceLow Confidence = "low"
	// ConfidenceHigh means the best match clears the threshold and the
	// evidence is applicable to the grades the query names.
	ConfidenceHigh Confidence = "high"
)

// GroundedContext is the evidence handed to the answer generator.
// Invariants: the summed token count of Chunks never exceeds the budget
// it was composed under, and ConfidenceNone implies Chunks is empty.
type GroundedContext struct {
	Chunks     []*Chunk   `json:"chunks"`
	Confidence Confidence `json:"confidence"`
	TopScore   float64    `json:"top_score"`
	TokenCount int        `json:"token_count"`
	// Directive is non-empty for ConfidenceLow and instructs the generator
	// to state that the policy is not explicitly specified rather than
	// infer from related grades.
	Directive string `json:"directive,omitempty"`
}

// ChunkIDs returns the IDs of the selected chunks, in order.
func (g *GroundedContext) ChunkIDs() []string {
	ids := make([]string, len(g.Chunks))
	for i, c := range g.Chunks {
		ids[i] = c.ID
	}
	return ids
}
