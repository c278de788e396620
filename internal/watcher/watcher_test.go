package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/bunsho/internal/models"
)

type recordingIngester struct {
	mu    sync.Mutex
	paths []string
	errs  map[string]error
}

func (r *recordingIngester) IngestFile(ctx context.Context, tenant, path string) (*models.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.errs[filepath.Base(path)]; ok {
		return nil, err
	}
	r.paths = append(r.paths, path)
	return &models.IngestResult{DocumentID: "doc", ChunkCount: 1}, nil
}

func (r *recordingIngester) ingested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func TestWatcher_IngestsDroppedPDF(t *testing.T) {
	dir := t.TempDir()
	ing := &recordingIngester{}
	w := New(dir, "tenant-a", ing, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	pdfPath := filepath.Join(dir, "dropped.pdf")
	if err := writeFile(pdfPath, "%PDF-1.4"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(ing.ingested()) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	paths := ing.ingested()
	if len(paths) == 0 {
		t.Fatal("dropped PDF was not ingested")
	}
	if !strings.HasSuffix(paths[0], "dropped.pdf") {
		t.Errorf("ingested %v", paths)
	}
	// Successful ingestion removes the file from the inbox.
	if _, err := os.Stat(pdfPath); !os.IsNotExist(err) {
		t.Errorf("expected file removed after ingestion, stat err=%v", err)
	}
}

func TestWatcher_IgnoresNonPDF(t *testing.T) {
	dir := t.TempDir()
	ing := &recordingIngester{}
	w := New(dir, "tenant-a", ing, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "notes.txt"), "plain"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := ing.ingested(); len(got) != 0 {
		t.Errorf("non-PDF files must be ignored, got %v", got)
	}
}

func TestWatcher_SyncsExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "already-there.pdf"), "%PDF-1.4"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "skip.xyz"), "x"); err != nil {
		t.Fatal(err)
	}

	ing := &recordingIngester{}
	w := New(dir, "tenant-a", ing, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	paths := ing.ingested()
	if len(paths) != 1 || !strings.HasSuffix(paths[0], "already-there.pdf") {
		t.Errorf("expected the existing PDF ingested on start, got %v", paths)
	}
}

func TestWatcher_FailedIngestionKeepsFile(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "broken.pdf")
	if err := writeFile(pdfPath, "%PDF-1.4"); err != nil {
		t.Fatal(err)
	}

	ing := &recordingIngester{errs: map[string]error{"broken.pdf": os.ErrInvalid}}
	w := New(dir, "tenant-a", ing, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(pdfPath); err != nil {
		t.Errorf("failed file must stay in the inbox: %v", err)
	}
}

func TestWatcher_Start_createsMissingDirectory(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "inbox")

	w := New(dir, "tenant-a", &recordingIngester{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("inbox directory should exist after Start: %v", err)
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/inbox/a.pdf", true},
		{"/inbox/a.PDF", true},
		{"/inbox/a.txt", false},
		{"/inbox/a", false},
	}
	for _, tt := range tests {
		if got := isPDF(tt.path); got != tt.want {
			t.Errorf("isPDF(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
