package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/models"
)

// systemPrompt constrains the model to the retrieved context.
const systemPrompt = `You are a helpful assistant that answers questions based on the user's documents.

Guidelines:
- Answer based ONLY on the provided context
- If the context doesn't contain the answer, say "I don't have specific information about that in our knowledge base"
- Keep answers concise and focused
- Use a professional, friendly tone
- Prioritize accuracy over speculation
- Cite specific policies or procedures when available in the context`

// Canned responses for queries with no retrievable context.
const (
	greetingResponse = "Hello! I'm your document assistant. Upload a PDF and ask me anything about its contents."

	insufficientInfoResponse = "I don't have enough information to answer that question."
)

// greetingPatterns are matched case-insensitively as substrings of the query.
var greetingPatterns = []string{
	"hello", "how are you", "good morning", "good afternoon", "good evening",
}

// greetingWords are matched against whole words only; substring matching for
// these would fire on words like "this" or "they".
var greetingWords = []string{"hi", "hey", "yo", "greetings"}

// defaultCharDelay shapes the canned-response stream so it reads as typed
// output rather than a single flush.
const defaultCharDelay = 15 * time.Millisecond

// Retriever finds context for a query in the tenant's namespace.
type Retriever interface {
	Retrieve(ctx context.Context, tenant, query string) (*models.RetrievalResult, error)
}

// EmitFunc delivers one stream event to the client. Returning an error means
// the transport is gone and generation must stop.
type EmitFunc func(models.StreamEvent) error

// Answerer turns a question into an ordered stream of events: retrieval,
// generation, and termination with exactly one done or error event.
type Answerer struct {
	retriever Retriever
	llm       Streamer
	charDelay time.Duration
	logger    *zap.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(a *Answerer) { a.logger = l }
}

// WithCharDelay overrides the delay between characters of a canned response.
func WithCharDelay(d time.Duration) Option {
	return func(a *Answerer) { a.charDelay = d }
}

// NewAnswerer creates an answerer.
func NewAnswerer(retriever Retriever, llm Streamer, opts ...Option) *Answerer {
	a := &Answerer{
		retriever: retriever,
		llm:       llm,
		charDelay: defaultCharDelay,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer streams the answer to query for the tenant. Every exit path ends
// the stream with a done or error event; after either, nothing more is
// emitted. The returned error reports what went wrong for logging; the
// client-facing classification has already been emitted.
func (a *Answerer) Answer(ctx context.Context, tenant, query string, emit EmitFunc) error {
	if err := emit(models.StreamEvent{Type: models.EventStatus, Content: "retrieving"}); err != nil {
		return err
	}

	result, err := a.retriever.Retrieve(ctx, tenant, query)
	if err != nil {
		return a.fail(emit, err)
	}

	if !result.HasContext() {
		text := insufficientInfoResponse
		if isGreeting(query) {
			text = greetingResponse
		}
		a.logger.Debug("no context, streaming canned response",
			zap.String("tenant", tenant))
		return a.streamCanned(ctx, text, emit)
	}

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Context Information:\n\n%s\n\nUser Question: %s\n\nProvide a clear, direct answer based only on the context above.",
			result.Context, query)},
	}

	var emitErr error
	full, err := a.llm.Stream(ctx, messages, func(token string) error {
		if err := emit(models.StreamEvent{Type: models.EventToken, Content: token}); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if emitErr != nil {
		// Transport gone; nothing left to tell the client.
		return emitErr
	}
	if err != nil {
		return a.fail(emit, err)
	}

	if err := emit(models.StreamEvent{Type: models.EventFullContent, Content: full}); err != nil {
		return err
	}
	return emit(models.StreamEvent{Type: models.EventDone})
}

// streamCanned emits text character by character with a fixed delay, then
// terminates normally.
func (a *Answerer) streamCanned(ctx context.Context, text string, emit EmitFunc) error {
	for _, r := range text {
		if err := emit(models.StreamEvent{Type: models.EventToken, Content: string(r)}); err != nil {
			return err
		}
		if a.charDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.charDelay):
			}
		}
	}
	if err := emit(models.StreamEvent{Type: models.EventFullContent, Content: text}); err != nil {
		return err
	}
	return emit(models.StreamEvent{Type: models.EventDone})
}

// fail emits the error event matching the cause and returns the cause.
func (a *Answerer) fail(emit EmitFunc, cause error) error {
	event := models.StreamEvent{
		Type:    models.EventError,
		Code:    models.StreamErrStream,
		Message: "Failed to generate a response. Please try again.",
	}
	if errors.Is(cause, models.ErrLLMAuth) {
		event.Code = models.StreamErrAPIKey
		event.Message = "The configured API key was rejected. Please provide a valid key."
	}
	if err := emit(event); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// isGreeting reports whether the query looks like small talk rather than a
// document question.
func isGreeting(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, p := range greetingPatterns {
		if strings.Contains(q, p) {
			return true
		}
	}
	for _, field := range strings.FieldsFunc(q, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		for _, w := range greetingWords {
			if field == w {
				return true
			}
		}
	}
	return false
}
