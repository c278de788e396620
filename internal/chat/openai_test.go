package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/bunsho/internal/models"
)

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", content)
}

func TestOpenAIStreamer_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Hel"))
		fmt.Fprint(w, sseChunk("lo "))
		fmt.Fprint(w, `data: {"choices":[{"delta":{},"finish_reason":null}]}`+"\n\n")
		fmt.Fprint(w, sseChunk("world"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	s, err := NewOpenAIStreamer(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var tokens []string
	full, err := s.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(tok string) error {
		tokens = append(tokens, tok)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if full != "Hello world" {
		t.Errorf("full=%q", full)
	}
	want := []string{"Hel", "lo ", "world"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens=%v", tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d=%q want %q", i, tokens[i], want[i])
		}
	}
}

func TestOpenAIStreamer_AuthError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", status)
		}))
		s, err := NewOpenAIStreamer(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-bad"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		_, err = s.Stream(context.Background(), nil, func(string) error { return nil })
		if !errors.Is(err, models.ErrLLMAuth) {
			t.Errorf("status %d: expected ErrLLMAuth, got %v", status, err)
		}
		srv.Close()
	}
}

func TestOpenAIStreamer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewOpenAIStreamer(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Stream(context.Background(), nil, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, models.ErrLLMAuth) {
		t.Error("500 must not classify as an auth error")
	}
}

func TestOpenAIStreamer_CallbackAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 10; i++ {
			fmt.Fprint(w, sseChunk("tok"))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	s, err := NewOpenAIStreamer(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	abort := errors.New("stop")
	count := 0
	_, err = s.Stream(context.Background(), nil, func(string) error {
		count++
		if count == 3 {
			return abort
		}
		return nil
	})
	if !errors.Is(err, abort) {
		t.Errorf("expected abort error, got %v", err)
	}
	if count != 3 {
		t.Errorf("callback ran %d times after abort", count)
	}
}

func TestNewOpenAIStreamer_MissingKey(t *testing.T) {
	if _, err := NewOpenAIStreamer(OpenAIConfig{}, nil); err == nil {
		t.Error("expected error for missing API key")
	}
}
