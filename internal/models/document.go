// Package models defines core data structures for documents, chunks, retrieval
// results, and stream events.
package models

import "time"

// Document status values. A document only appears in listings once ingestion
// has finalized it. A pending record that never finalizes belongs to a failed
// ingestion; it is cleaned up by the pipeline but stays fetchable by ID so it
// can be deleted if cleanup itself failed.
const (
	DocumentStatusPending = "pending"
	DocumentStatusReady   = "ready"
)

// Extraction method values recorded on a finalized document.
const (
	ExtractionMethodText = "text"
	ExtractionMethodOCR  = "ocr"
)

// Document is the metadata record for one uploaded file. Chunk content never
// lives here; it lives in the vector store (duplicated into chunk metadata).
type Document struct {
	ID               string                 `json:"id" db:"id"`
	Tenant           string                 `json:"-" db:"tenant"`
	Title            string                 `json:"title" db:"title"`
	Filename         string                 `json:"filename" db:"filename"`
	ContentType      string                 `json:"content_type" db:"content_type"`
	StorageKey       string                 `json:"-" db:"storage_key"`
	Status           string                 `json:"status" db:"status"`
	ChunkCount       int                    `json:"chunk_count" db:"chunk_count"`
	ExtractionMethod string                 `json:"extraction_method,omitempty" db:"extraction_method"`
	PageCount        int                    `json:"page_count,omitempty" db:"page_count"`
	Metadata         map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt        time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" db:"updated_at"`
}

// Chunk metadata keys stored alongside each vector. The literal chunk text is
// duplicated into metadata so retrieval can return human-readable context
// without a second fetch.
const (
	MetaDocumentID  = "documentId"
	MetaSource      = "source"
	MetaChunkIndex  = "chunkIndex"
	MetaTotalChunks = "totalChunks"
	MetaType        = "type"
	MetaText        = "text"
	MetaExtraction  = "extraction"
)

// IngestResult is returned by the ingestion pipeline on success.
type IngestResult struct {
	DocumentID       string `json:"document_id"`
	ChunkCount       int    `json:"chunk_count"`
	ExtractionMethod string `json:"extraction_method"`
}

// DocumentList is a paginated, tenant-scoped listing.
type DocumentList struct {
	Documents []*Document `json:"documents"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
	Total     int64       `json:"total"`
}
