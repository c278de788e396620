package models

// RetrievedChunk is one similarity match with its literal text recovered from
// chunk metadata.
type RetrievedChunk struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RetrievalResult is the ordered outcome of one similarity query. Matches are
// in descending score order; Context is their texts joined in that order.
// An empty Matches slice is a valid result meaning "no relevant context".
type RetrievalResult struct {
	Matches []*RetrievedChunk `json:"matches"`
	Context string            `json:"-"`
}

// HasContext reports whether any usable match was found.
func (r *RetrievalResult) HasContext() bool {
	return r != nil && len(r.Matches) > 0
}
