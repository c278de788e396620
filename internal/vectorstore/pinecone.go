package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/models"
)

// Pinecone is a minimal REST client to a Pinecone index. The base URL is the
// index host; namespaces are passed per request.
type Pinecone struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

// PineconeConfig configures the Pinecone client.
type PineconeConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewPinecone creates a Pinecone REST client.
func NewPinecone(cfg PineconeConfig, log *zap.Logger) (*Pinecone, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vector store base URL is not set")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vector store API key is not set")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pinecone{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// Upsert writes vectors into the given namespace.
func (p *Pinecone) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	items := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		items[i] = map[string]any{
			"id":       v.ID,
			"values":   v.Values,
			"metadata": v.Metadata,
		}
	}
	body := map[string]any{
		"vectors":   items,
		"namespace": namespace,
	}
	return p.postJSON(ctx, "/vectors/upsert", body, nil)
}

// Query returns the topK nearest vectors in the given namespace, in
// descending score order, with metadata included.
func (p *Pinecone) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"namespace":       namespace,
		"includeMetadata": true,
	}
	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := p.postJSON(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

// Delete removes vectors by ID from the given namespace. Missing IDs are not
// an error.
func (p *Pinecone) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{
		"ids":       ids,
		"namespace": namespace,
	}
	return p.postJSON(ctx, "/vectors/delete", body, nil)
}

// DeleteAll removes every vector in the given namespace.
func (p *Pinecone) DeleteAll(ctx context.Context, namespace string) error {
	body := map[string]any{
		"deleteAll": true,
		"namespace": namespace,
	}
	return p.postJSON(ctx, "/vectors/delete", body, nil)
}

func (p *Pinecone) postJSON(ctx context.Context, path string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrVectorStore, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %v", models.ErrVectorStore, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: POST %s: %s", models.ErrVectorStore, path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", models.ErrVectorStore, err)
		}
	}
	return nil
}
