package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/models"
)

// OpenAIClient is an OpenAI-compatible embeddings client. Batches are sent in
// one request; rate limits and server errors are retried with exponential
// backoff.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	batchSize  int
	client     *http.Client
	maxRetries int
	log        *zap.Logger
}

// OpenAIConfig configures the embeddings client.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// NewOpenAIClient creates an embeddings client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig, log *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 64
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAIClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
		log:        log,
	}, nil
}

// Dimensions returns the dimensionality of the produced embedding vectors.
func (c *OpenAIClient) Dimensions() int { return c.dimensions }

// Embed returns an embedding vector for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, splitting into provider-sized batches. The result
// preserves input order.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body := map[string]any{
		"input": texts,
		"model": c.model,
	}
	data, _ := json.Marshal(body)
	url := c.baseURL + "/embeddings"

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrEmbedding, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				sleep(ctx, retryDelay(attempt))
				continue
			}
			return nil, fmt.Errorf("%w: %v", models.ErrEmbedding, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			resp.Body.Close()
			if attempt < c.maxRetries {
				c.log.Debug("retrying embeddings request",
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay))
				sleep(ctx, delay)
				continue
			}
			return nil, fmt.Errorf("%w: %s", models.ErrEmbedding, resp.Status)
		}

		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", models.ErrEmbedding, resp.Status)
		}

		var out struct {
			Data []struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", models.ErrEmbedding, err)
		}
		if len(out.Data) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", models.ErrEmbedding, len(out.Data), len(texts))
		}

		vecs := make([][]float32, len(texts))
		for _, d := range out.Data {
			if d.Index < 0 || d.Index >= len(vecs) {
				return nil, fmt.Errorf("%w: embedding index %d out of range", models.ErrEmbedding, d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		return vecs, nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
