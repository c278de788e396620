// Package watcher ingests PDFs dropped into an inbox directory.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Ingester processes one PDF file from disk for a tenant.
type Ingester interface {
	IngestFile(ctx context.Context, tenant, path string) (*models.IngestResult, error)
}

// Watcher watches a single inbox directory and ingests dropped PDFs into the
// configured tenant's namespace. Files are removed from the inbox after a
// successful ingestion so a restart does not re-process them.
type Watcher struct {
	dir      string
	tenant   string
	ingester Ingester
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle delay before a written file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates an inbox watcher over dir, ingesting into tenant's namespace.
func New(dir, tenant string, ingester Ingester, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		tenant:   tenant,
		ingester: ingester,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The inbox directory is created if missing and any
// PDFs already present are ingested. Runs until ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.mu.Unlock()
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Info("inbox watcher started",
		zap.String("dir", w.dir), zap.String("tenant", w.tenant))

	w.syncExisting(ctx)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !isPDF(ev.Name) {
		return
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		w.scheduleIngest(ctx, ev.Name)
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelPending(ev.Name)
	}
}

// scheduleIngest delays ingestion until the file stops changing, so partially
// copied files are not picked up mid-write.
func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	result, err := w.ingester.IngestFile(ctx, w.tenant, path)
	if err != nil {
		// The file stays in the inbox for inspection and retry.
		w.logger.Error("inbox ingestion failed",
			zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("failed to remove ingested file",
			zap.String("path", path), zap.Error(err))
	}
	w.logger.Info("inbox file ingested",
		zap.String("path", path),
		zap.String("doc_id", result.DocumentID),
		zap.Int("chunks", result.ChunkCount))
}

// syncExisting ingests PDFs that were already in the inbox when the watcher
// started.
func (w *Watcher) syncExisting(ctx context.Context) {
	filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if isPDF(path) {
			w.ingest(ctx, path)
		}
		return nil
	})
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
