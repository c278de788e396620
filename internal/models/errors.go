package models

import "errors"

// Sentinel errors for the failure taxonomy. Callers wrap these with
// fmt.Errorf("...: %w", ...) and classify with errors.Is.
var (
	// ErrExtraction marks a structurally invalid or unreadable document.
	ErrExtraction = errors.New("text extraction failed")

	// ErrOCR marks an OCR job that reported failure or exceeded its polling bound.
	ErrOCR = errors.New("ocr job failed")

	// ErrEmbedding marks an embedding provider failure, including rejected credentials.
	ErrEmbedding = errors.New("embedding failed")

	// ErrVectorStore marks a vector store upsert, query, or delete failure.
	ErrVectorStore = errors.New("vector store operation failed")

	// ErrLLMAuth marks a language model credential rejection (401-equivalent),
	// reported to clients distinctly from other stream failures.
	ErrLLMAuth = errors.New("language model rejected credentials")

	// ErrInvalidInput marks a client error: missing field, oversized file,
	// wrong content type.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a missing document within the caller's tenant.
	ErrNotFound = errors.New("not found")
)
