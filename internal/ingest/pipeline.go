// Package ingest provides the document ingestion pipeline: store, extract,
// chunk, embed, and upsert into the tenant's vector namespace.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/blobstore"
	"github.com/hyperjump/bunsho/internal/chunker"
	"github.com/hyperjump/bunsho/internal/embedding"
	"github.com/hyperjump/bunsho/internal/extract"
	"github.com/hyperjump/bunsho/internal/models"
	"github.com/hyperjump/bunsho/internal/storage"
	"github.com/hyperjump/bunsho/internal/vectorstore"
)

// deleteBatchSize bounds how many vector IDs are deleted per store request.
const deleteBatchSize = 100

// Extractor extracts text from uploaded PDF content.
type Extractor interface {
	Extract(ctx context.Context, content []byte) (*extract.Result, error)
}

// Pipeline ingests documents: persist the blob and metadata, extract text,
// chunk, embed, and upsert vectors into the tenant's namespace.
type Pipeline struct {
	storage   storage.Storage
	blobs     blobstore.Store
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	vectors   vectorstore.Store
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates an ingestion pipeline with the given dependencies.
func NewPipeline(
	store storage.Storage,
	blobs blobstore.Store,
	extractor Extractor,
	ch *chunker.Chunker,
	embedder embedding.Embedder,
	vectors vectorstore.Store,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		storage:   store,
		blobs:     blobs,
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		vectors:   vectors,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChunkID returns the vector ID for chunk i of a document. Deletion
// reconstructs these IDs from the stored chunk count.
func ChunkID(docID string, i int) string {
	return fmt.Sprintf("pdf-%s-chunk-%d", docID, i)
}

// Ingest processes one uploaded PDF for the tenant. The returned result
// carries the assigned document ID, the chunk count, and which extraction
// method was used. Caller metadata, when given, is stored on the document
// and copied into every chunk's vector metadata. On failure, the partially
// written blob and metadata record are removed; vectors are only upserted
// right before finalizing.
func (p *Pipeline) Ingest(ctx context.Context, tenant, filename, title string, content []byte, meta map[string]interface{}) (*models.IngestResult, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", models.ErrInvalidInput)
	}
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		return nil, fmt.Errorf("%w: only PDF files are supported", models.ErrInvalidInput)
	}
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	docID := uuid.New().String()
	storageKey := tenant + "/" + docID + ".pdf"

	if err := p.blobs.Put(ctx, storageKey, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc := &models.Document{
		ID:          docID,
		Tenant:      tenant,
		Title:       title,
		Filename:    filename,
		ContentType: "application/pdf",
		StorageKey:  storageKey,
		Status:      models.DocumentStatusPending,
		Metadata:    meta,
	}
	if err := p.storage.CreateDocument(ctx, doc); err != nil {
		_ = p.blobs.Delete(ctx, storageKey)
		return nil, fmt.Errorf("store document: %w", err)
	}

	result, err := p.process(ctx, doc, content)
	if err != nil {
		p.cleanup(ctx, doc)
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, doc *models.Document, content []byte) (*models.IngestResult, error) {
	extracted, err := p.extractor.Extract(ctx, content)
	if err != nil {
		return nil, err
	}

	chunks := p.chunker.Chunk(extracted.Text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document contains no extractable text", models.ErrExtraction)
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}

	vectors := make([]vectorstore.Vector, len(chunks))
	for i, text := range chunks {
		// Caller metadata first so the reserved keys always win.
		meta := make(map[string]interface{}, len(doc.Metadata)+7)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[models.MetaDocumentID] = doc.ID
		meta[models.MetaSource] = doc.Filename
		meta[models.MetaChunkIndex] = i
		meta[models.MetaTotalChunks] = len(chunks)
		meta[models.MetaType] = "pdf"
		meta[models.MetaText] = text
		meta[models.MetaExtraction] = extracted.Method
		vectors[i] = vectorstore.Vector{
			ID:       ChunkID(doc.ID, i),
			Values:   embeddings[i],
			Metadata: meta,
		}
	}
	if err := p.vectors.Upsert(ctx, doc.Tenant, vectors); err != nil {
		return nil, err
	}

	doc.Status = models.DocumentStatusReady
	doc.ChunkCount = len(chunks)
	doc.ExtractionMethod = extracted.Method
	doc.PageCount = extracted.PageCount
	if err := p.storage.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("finalize document: %w", err)
	}

	p.logger.Info("document ingested",
		zap.String("tenant", doc.Tenant),
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.String("extraction", extracted.Method))

	return &models.IngestResult{
		DocumentID:       doc.ID,
		ChunkCount:       len(chunks),
		ExtractionMethod: extracted.Method,
	}, nil
}

// cleanup removes the blob and metadata record of a failed ingestion.
func (p *Pipeline) cleanup(ctx context.Context, doc *models.Document) {
	if err := p.blobs.Delete(ctx, doc.StorageKey); err != nil {
		p.logger.Warn("failed to remove blob of failed ingestion",
			zap.String("doc_id", doc.ID), zap.Error(err))
	}
	if err := p.storage.DeleteDocument(ctx, doc.Tenant, doc.ID); err != nil {
		p.logger.Warn("failed to remove record of failed ingestion",
			zap.String("doc_id", doc.ID), zap.Error(err))
	}
}

// IngestFile reads a PDF from disk and ingests it for the tenant. Used by the
// inbox watcher.
func (p *Pipeline) IngestFile(ctx context.Context, tenant, path string) (*models.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.Ingest(ctx, tenant, filepath.Base(path), "", content, nil)
}

// Delete removes a document: its vectors (reconstructed chunk IDs, deleted in
// batches), its blob, and its metadata record. Returns a not found error when
// the tenant owns no such document.
func (p *Pipeline) Delete(ctx context.Context, tenant, docID string) error {
	doc, err := p.storage.GetDocument(ctx, tenant, docID)
	if err != nil {
		return err
	}

	ids := make([]string, doc.ChunkCount)
	for i := range ids {
		ids[i] = ChunkID(docID, i)
	}
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := p.vectors.Delete(ctx, tenant, ids[start:end]); err != nil {
			return err
		}
	}

	if doc.StorageKey != "" {
		if err := p.blobs.Delete(ctx, doc.StorageKey); err != nil {
			p.logger.Warn("failed to remove blob",
				zap.String("doc_id", docID), zap.Error(err))
		}
	}
	if err := p.storage.DeleteDocument(ctx, tenant, docID); err != nil {
		return err
	}

	p.logger.Info("document deleted",
		zap.String("tenant", tenant),
		zap.String("doc_id", docID),
		zap.Int("chunks", doc.ChunkCount))
	return nil
}
