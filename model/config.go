package model

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// Vector search parameters
	TopK     int     `json:"top_k"`
	MinScore float64 `json:"min_score"`
	// Oversample widens the candidate set fetched from the index before
	// threshold filtering and grade-aware reranking (TopK * Oversample).
	Oversample int `json:"oversample"`

	// Grounding parameters
	HighConfidenceThreshold float64 `json:"high_confidence_threshold"`
	ContextTokenBudget      int     `json:"context_token_budget"`

	// GradeFilter enables exact grade-code matching before similarity
	// ranking when the query names a grade.
	GradeFilter bool `json:"grade_filter"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                    5,
		MinScore:                0.35,
		Oversample:              3,
		HighConfidenceThreshold: 0.6,
		ContextTokenBudget:      1024,
		GradeFilter:             true,
	}
}
