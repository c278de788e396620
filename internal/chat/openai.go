package chat

import (
	"bufio"
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

// OpenAIStreamer is an OpenAI-compatible streaming chat completions client.
type OpenAIStreamer struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	log         *zap.Logger
}

// OpenAIConfig configures the streaming chat client.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// StreamTimeout bounds one whole completion, connect to last token.
	StreamTimeout time.Duration
}

// NewOpenAIStreamer creates a streaming chat client.
func NewOpenAIStreamer(cfg OpenAIConfig, log *zap.Logger) (*OpenAIStreamer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat API key is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.StreamTimeout == 0 {
		cfg.StreamTimeout = 120 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAIStreamer{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.StreamTimeout},
		log:         log,
	}, nil
}

// Stream sends a streaming chat completion request and relays each content
// delta to onToken as it arrives.
func (s *OpenAIStreamer) Stream(ctx context.Context, messages []Message, onToken func(token string) error) (string, error) {
	body := map[string]any{
		"model":    s.model,
		"messages": messages,
		"stream":   true,
	}
	if s.maxTokens > 0 {
		body["max_tokens"] = s.maxTokens
	}
	if s.temperature > 0 {
		body["temperature"] = s.temperature
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: %s", models.ErrLLMAuth, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion failed: %s", resp.Status)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}
		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			s.log.Warn("skipping malformed stream event", zap.Error(err))
			continue
		}
		if len(event.Choices) == 0 {
			continue
		}
		token := event.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		full.WriteString(token)
		if err := onToken(token); err != nil {
			return full.String(), err
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}
	return full.String(), nil
}
