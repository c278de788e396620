// Package storage defines the persistence interface for document metadata.
package storage

import (
	"context"

	"github.com/hyperjump/bunsho/internal/models"
)

// Storage defines tenant-scoped document metadata persistence. Every lookup
// requires the tenant; a document belonging to another tenant is
// indistinguishable from a missing one.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, tenant, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, tenant, id string) error
	ListDocuments(ctx context.Context, tenant string, offset, limit int) ([]*models.Document, error)
	CountDocuments(ctx context.Context, tenant string) (int64, error)

	Close() error
}
