// Package retrieval provides namespace-scoped similarity search over
// ingested documents.
package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/embedding"
	"github.com/hyperjump/bunsho/internal/models"
	"github.com/hyperjump/bunsho/internal/vectorstore"
)

// Engine embeds a query and searches the tenant's vector namespace.
type Engine struct {
	embedder embedding.Embedder
	vectors  vectorstore.Store
	topK     int
	minScore float64
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMinScore drops matches scoring below the threshold. Zero keeps all.
func WithMinScore(score float64) Option {
	return func(e *Engine) { e.minScore = score }
}

// NewEngine creates a retrieval engine.
func NewEngine(embedder embedding.Embedder, vectors vectorstore.Store, topK int, opts ...Option) *Engine {
	e := &Engine{
		embedder: embedder,
		vectors:  vectors,
		topK:     topK,
		logger:   zap.NewNop(),
	}
	if e.topK <= 0 {
		e.topK = 5
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve embeds the query and returns the best matches from the tenant's
// namespace, descending by score. An empty result is valid and means no
// relevant context exists; callers handle that case, it is not an error.
func (e *Engine) Retrieve(ctx context.Context, tenant, query string) (*models.RetrievalResult, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := e.vectors.Query(ctx, tenant, vec, e.topK)
	if err != nil {
		return nil, err
	}

	result := &models.RetrievalResult{Matches: make([]*models.RetrievedChunk, 0, len(matches))}
	var texts []string
	for _, m := range matches {
		if e.minScore > 0 && m.Score < e.minScore {
			continue
		}
		text, _ := m.Metadata[models.MetaText].(string)
		if text == "" {
			// A vector without its text payload cannot contribute context.
			e.logger.Warn("match missing text metadata", zap.String("id", m.ID))
			continue
		}
		result.Matches = append(result.Matches, &models.RetrievedChunk{
			ID:       m.ID,
			Text:     text,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
		texts = append(texts, text)
	}
	result.Context = strings.Join(texts, "\n\n")

	e.logger.Debug("retrieval complete",
		zap.String("tenant", tenant),
		zap.Int("matches", len(result.Matches)))
	return result, nil
}
