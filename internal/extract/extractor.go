// Package extract provides text extraction from uploaded PDFs, routing
// between direct extraction and OCR based on text density.
package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/models"
)

// OCRClient recognizes text in a scanned document.
type OCRClient interface {
	Recognize(ctx context.Context, content []byte) (string, error)
}

// Result holds the outcome of one extraction.
type Result struct {
	Text      string
	PageCount int
	Method    string
}

// Extractor extracts text from PDF content. Documents whose directly
// extracted text falls below minCharsPerPage average characters per page are
// treated as scanned and routed to OCR.
type Extractor struct {
	minCharsPerPage int
	ocr             OCRClient
	log             *zap.Logger
	direct          func(content []byte) (string, int, error)
}

// NewExtractor returns an Extractor. ocr may be nil, in which case
// low-density documents fail with an extraction error instead of being
// recognized.
func NewExtractor(minCharsPerPage int, ocr OCRClient, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		minCharsPerPage: minCharsPerPage,
		ocr:             ocr,
		log:             log,
		direct:          extractPDF,
	}
}

// Extract extracts text from PDF content. The returned Result records which
// method produced the text.
func (e *Extractor) Extract(ctx context.Context, content []byte) (*Result, error) {
	text, pages, err := e.direct(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	trimmed := strings.TrimSpace(text)
	density := 0
	if pages > 0 {
		density = len(trimmed) / pages
	}
	if density >= e.minCharsPerPage {
		e.log.Debug("direct extraction",
			zap.Int("pages", pages),
			zap.Int("chars_per_page", density))
		return &Result{Text: text, PageCount: pages, Method: models.ExtractionMethodText}, nil
	}

	if e.ocr == nil {
		if trimmed != "" {
			// Sparse but present text is better than failing outright.
			e.log.Warn("low text density and no OCR configured, using direct text",
				zap.Int("chars_per_page", density))
			return &Result{Text: text, PageCount: pages, Method: models.ExtractionMethodText}, nil
		}
		return nil, fmt.Errorf("%w: no extractable text and OCR is not configured", models.ErrExtraction)
	}

	e.log.Debug("routing to OCR",
		zap.Int("pages", pages),
		zap.Int("chars_per_page", density))
	ocrText, err := e.ocr.Recognize(ctx, content)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ocrText) == "" {
		return nil, fmt.Errorf("%w: OCR returned no text", models.ErrOCR)
	}
	return &Result{Text: ocrText, PageCount: pages, Method: models.ExtractionMethodOCR}, nil
}
