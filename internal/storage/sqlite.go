package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/bunsho/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT NOT NULL,
		tenant TEXT NOT NULL,
		title TEXT,
		filename TEXT,
		content_type TEXT,
		storage_key TEXT,
		status TEXT NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		extraction_method TEXT,
		page_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (tenant, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_tenant_created ON documents(tenant, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, tenant, title, filename, content_type, storage_key,
		 status, chunk_count, extraction_method, page_count, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Tenant, doc.Title, doc.Filename, doc.ContentType, doc.StorageKey,
		doc.Status, doc.ChunkCount, doc.ExtractionMethod, doc.PageCount,
		string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

const docColumns = `id, tenant, title, filename, content_type, storage_key,
	 status, chunk_count, extraction_method, page_count, metadata, created_at, updated_at`

func scanDocument(scan func(...any) error) (*models.Document, error) {
	var doc models.Document
	var metadataJSON string
	err := scan(&doc.ID, &doc.Tenant, &doc.Title, &doc.Filename, &doc.ContentType,
		&doc.StorageKey, &doc.Status, &doc.ChunkCount, &doc.ExtractionMethod,
		&doc.PageCount, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

// GetDocument returns a document by tenant and ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, tenant, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE tenant = ? AND id = ?`, tenant, id)
	doc, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument updates an existing document.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	doc.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, filename = ?, content_type = ?, storage_key = ?,
		 status = ?, chunk_count = ?, extraction_method = ?, page_count = ?, metadata = ?, updated_at = ?
		 WHERE tenant = ? AND id = ?`,
		doc.Title, doc.Filename, doc.ContentType, doc.StorageKey,
		doc.Status, doc.ChunkCount, doc.ExtractionMethod, doc.PageCount,
		string(metadataJSON), doc.UpdatedAt, doc.Tenant, doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, doc.ID)
	}
	return nil
}

// DeleteDocument removes a document by tenant and ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, tenant, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE tenant = ? AND id = ?`, tenant, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return nil
}

// ListDocuments returns the tenant's ready documents with offset and limit,
// newest first. Pending records of in-flight or failed ingestions are not
// visible.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, tenant string, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE tenant = ? AND status = ?
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		tenant, models.DocumentStatusReady, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of ready documents owned by the tenant.
func (s *SQLiteStorage) CountDocuments(ctx context.Context, tenant string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE tenant = ? AND status = ?`,
		tenant, models.DocumentStatusReady).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
