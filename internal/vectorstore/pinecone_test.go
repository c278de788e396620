package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/bunsho/internal/models"
)

func TestPinecone_Upsert(t *testing.T) {
	var got struct {
		Vectors []struct {
			ID       string         `json:"id"`
			Values   []float32      `json:"values"`
			Metadata map[string]any `json:"metadata"`
		} `json:"vectors"`
		Namespace string `json:"namespace"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pc-test" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Write([]byte(`{"upsertedCount":1}`))
	}))
	defer srv.Close()

	p, err := NewPinecone(PineconeConfig{BaseURL: srv.URL, APIKey: "pc-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = p.Upsert(context.Background(), "tenant-a", []Vector{
		{ID: "pdf-d1-chunk-0", Values: []float32{0.1, 0.2}, Metadata: map[string]interface{}{"text": "hello"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got.Namespace != "tenant-a" {
		t.Errorf("namespace=%s", got.Namespace)
	}
	if len(got.Vectors) != 1 || got.Vectors[0].ID != "pdf-d1-chunk-0" {
		t.Errorf("vectors=%v", got.Vectors)
	}
}

func TestPinecone_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var req struct {
			Namespace       string `json:"namespace"`
			TopK            int    `json:"topK"`
			IncludeMetadata bool   `json:"includeMetadata"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Namespace != "tenant-a" || req.TopK != 5 || !req.IncludeMetadata {
			t.Errorf("request=%+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "c1", "score": 0.92, "metadata": map[string]any{"text": "first"}},
				{"id": "c2", "score": 0.81, "metadata": map[string]any{"text": "second"}},
			},
		})
	}))
	defer srv.Close()

	p, err := NewPinecone(PineconeConfig{BaseURL: srv.URL, APIKey: "pc-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	matches, err := p.Query(context.Background(), "tenant-a", []float32{0.5}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches", len(matches))
	}
	if matches[0].ID != "c1" || matches[0].Score != 0.92 {
		t.Errorf("match=%+v", matches[0])
	}
	if matches[1].Metadata["text"] != "second" {
		t.Errorf("metadata=%v", matches[1].Metadata)
	}
}

func TestPinecone_Delete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var req struct {
			IDs       []string `json:"ids"`
			Namespace string   `json:"namespace"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.IDs) != 2 || req.Namespace != "tenant-a" {
			t.Errorf("request=%+v", req)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p, err := NewPinecone(PineconeConfig{BaseURL: srv.URL, APIKey: "pc-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(context.Background(), "tenant-a", []string{"c1", "c2"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestPinecone_DeleteAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var req struct {
			DeleteAll bool   `json:"deleteAll"`
			Namespace string `json:"namespace"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if !req.DeleteAll || req.Namespace != "tenant-a" {
			t.Errorf("request=%+v", req)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p, err := NewPinecone(PineconeConfig{BaseURL: srv.URL, APIKey: "pc-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.DeleteAll(context.Background(), "tenant-a"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
}

func TestPinecone_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewPinecone(PineconeConfig{BaseURL: srv.URL, APIKey: "pc-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = p.Upsert(context.Background(), "ns", []Vector{{ID: "a", Values: []float32{1}}})
	if !errors.Is(err, models.ErrVectorStore) {
		t.Errorf("expected ErrVectorStore, got %v", err)
	}
	_, err = p.Query(context.Background(), "ns", []float32{1}, 5)
	if !errors.Is(err, models.ErrVectorStore) {
		t.Errorf("expected ErrVectorStore, got %v", err)
	}
}

func TestNewPinecone_Validation(t *testing.T) {
	if _, err := NewPinecone(PineconeConfig{APIKey: "k"}, nil); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewPinecone(PineconeConfig{BaseURL: "http://x"}, nil); err == nil {
		t.Error("expected error for missing API key")
	}
}
