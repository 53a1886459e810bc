package model

// Query is an ephemeral per-request value. The embedding is derived at
// query time and never persisted.
type Query struct {
	RawText   string    `json:"raw_text"`
	Grade     string    `json:"grade,omitempty"`
	Embedding []float32 `json:"-"`
}
