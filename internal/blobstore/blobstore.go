// Package blobstore provides storage for uploaded document files.
package blobstore

import (
	"context"
	"io"
)

// Store persists uploaded file content under opaque keys. Keys are assigned
// by the caller and scoped per tenant (tenant/<document id>.pdf).
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
