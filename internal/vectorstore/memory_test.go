package vectorstore

import (
	"context"
	"testing"
)

func TestMemory_UpsertAndQuery(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	err := s.Upsert(ctx, "tenant-a", []Vector{
		{ID: "a", Values: []float32{1, 0}, Metadata: map[string]interface{}{"text": "alpha"}},
		{ID: "b", Values: []float32{0, 1}, Metadata: map[string]interface{}{"text": "beta"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := s.Query(ctx, "tenant-a", []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches", len(matches))
	}
	if matches[0].ID != "a" {
		t.Errorf("best match=%s", matches[0].ID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Error("matches not in descending score order")
	}
	if matches[0].Metadata["text"] != "alpha" {
		t.Errorf("metadata=%v", matches[0].Metadata)
	}
}

func TestMemory_NamespaceIsolation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.Upsert(ctx, "tenant-a", []Vector{{ID: "a", Values: []float32{1, 0}}})
	s.Upsert(ctx, "tenant-b", []Vector{{ID: "b", Values: []float32{1, 0}}})

	matches, err := s.Query(ctx, "tenant-b", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "b" {
		t.Errorf("tenant-b query leaked across namespaces: %v", matches)
	}

	matches, _ = s.Query(ctx, "tenant-c", []float32{1, 0}, 10)
	if matches != nil {
		t.Errorf("unknown namespace should return no matches, got %v", matches)
	}
}

func TestMemory_UpsertReplaces(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.Upsert(ctx, "ns", []Vector{{ID: "a", Values: []float32{1, 0}}})
	s.Upsert(ctx, "ns", []Vector{{ID: "a", Values: []float32{0, 1}}})
	if s.Size("ns") != 1 {
		t.Errorf("size=%d after replacing upsert", s.Size("ns"))
	}
	matches, _ := s.Query(ctx, "ns", []float32{0, 1}, 1)
	if len(matches) != 1 || matches[0].Score < 0.99 {
		t.Errorf("replaced vector not found: %v", matches)
	}
}

func TestMemory_Delete(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.Upsert(ctx, "ns", []Vector{
		{ID: "a", Values: []float32{1, 0}},
		{ID: "b", Values: []float32{0, 1}},
	})
	if err := s.Delete(ctx, "ns", []string{"a", "missing"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Size("ns") != 1 {
		t.Errorf("size=%d after delete", s.Size("ns"))
	}
	// Deleting in an unknown namespace is a no-op.
	if err := s.Delete(ctx, "other", []string{"a"}); err != nil {
		t.Fatalf("Delete unknown namespace: %v", err)
	}
}

func TestMemory_MetadataNotShared(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	meta := map[string]interface{}{"text": "original"}
	s.Upsert(ctx, "ns", []Vector{{ID: "a", Values: []float32{1, 0}, Metadata: meta}})

	// Mutating the caller's map after upsert must not reach the store.
	meta["text"] = "mutated by caller"
	matches, _ := s.Query(ctx, "ns", []float32{1, 0}, 1)
	if matches[0].Metadata["text"] != "original" {
		t.Errorf("upsert shared the caller's map: %v", matches[0].Metadata)
	}

	// Mutating a returned match must not reach the store either.
	matches[0].Metadata["text"] = "mutated via match"
	again, _ := s.Query(ctx, "ns", []float32{1, 0}, 1)
	if again[0].Metadata["text"] != "original" {
		t.Errorf("query shared the stored map: %v", again[0].Metadata)
	}
}

func TestMemory_DeleteAll(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.Upsert(ctx, "tenant-a", []Vector{
		{ID: "a", Values: []float32{1, 0}},
		{ID: "b", Values: []float32{0, 1}},
	})
	s.Upsert(ctx, "tenant-b", []Vector{{ID: "c", Values: []float32{1, 0}}})

	if err := s.DeleteAll(ctx, "tenant-a"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if s.Size("tenant-a") != 0 {
		t.Errorf("size=%d after DeleteAll", s.Size("tenant-a"))
	}
	if s.Size("tenant-b") != 1 {
		t.Errorf("DeleteAll touched another namespace, size=%d", s.Size("tenant-b"))
	}
	// Unknown namespace is a no-op.
	if err := s.DeleteAll(ctx, "tenant-c"); err != nil {
		t.Fatalf("DeleteAll unknown namespace: %v", err)
	}
}

func TestMemory_TopKBound(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		s.Upsert(ctx, "ns", []Vector{{ID: string(rune('a' + i)), Values: []float32{float32(i), 1}}})
	}
	matches, _ := s.Query(ctx, "ns", []float32{1, 1}, 3)
	if len(matches) != 3 {
		t.Errorf("got %d matches, want 3", len(matches))
	}
}
