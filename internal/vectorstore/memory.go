package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Store using brute-force cosine search. Suitable for
// tests and small local deployments. Namespaces are fully isolated maps.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Vector
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]map[string]Vector)}
}

// Upsert inserts or replaces vectors in the namespace.
func (m *Memory) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]Vector)
		m.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector with empty id")
		}
		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		ns[v.ID] = Vector{ID: v.ID, Values: values, Metadata: copyMeta(v.Metadata)}
	}
	return nil
}

// copyMeta shallow-copies metadata so the store never shares a map with its
// callers.
func copyMeta(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// Query returns the topK nearest vectors in the namespace by dot product
// (cosine similarity for normalized vectors), descending. An unknown
// namespace yields no matches.
func (m *Memory) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns := m.namespaces[namespace]
	if len(ns) == 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(ns))
	for _, v := range ns {
		if len(v.Values) != len(vector) {
			continue
		}
		var dot float64
		for i := range vector {
			dot += float64(vector[i] * v.Values[i])
		}
		matches = append(matches, Match{ID: v.ID, Score: dot, Metadata: copyMeta(v.Metadata)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes vectors by ID. Unknown IDs are ignored.
func (m *Memory) Delete(ctx context.Context, namespace string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

// DeleteAll removes every vector in the namespace.
func (m *Memory) DeleteAll(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

// Size returns the number of vectors stored in the namespace.
func (m *Memory) Size(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[namespace])
}
