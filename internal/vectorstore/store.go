// Package vectorstore provides namespace-isolated vector storage and
// similarity search.
package vectorstore

import "context"

// Vector is one embedded chunk with its metadata payload.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]interface{}
}

// Match is a single similarity search hit.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// Store defines namespace-scoped vector storage. Every operation names its
// namespace explicitly; there is no cross-namespace access path.
type Store interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
	Delete(ctx context.Context, namespace string, ids []string) error
	DeleteAll(ctx context.Context, namespace string) error
}
