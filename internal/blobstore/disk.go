package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/bunsho/internal/models"
)

// Disk is a filesystem-backed blob store rooted at a single directory.
type Disk struct {
	root string
}

// NewDisk creates a disk store rooted at root, creating it if needed.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Disk{root: root}, nil
}

// resolve maps a key to a path under the root, rejecting traversal.
func (d *Disk) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: invalid blob key %q", models.ErrInvalidInput, key)
	}
	return filepath.Join(d.root, clean), nil
}

// Put writes the blob, creating parent directories as needed.
func (d *Disk) Put(ctx context.Context, key string, r io.Reader) error {
	path, err := d.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write blob: %w", err)
	}
	return f.Close()
}

// Get opens the blob for reading. A missing blob yields a not found error.
func (d *Disk) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := d.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %s", models.ErrNotFound, key)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob. Missing blobs are not an error.
func (d *Disk) Delete(ctx context.Context, key string) error {
	path, err := d.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Usage returns the total size in bytes of all stored blobs.
func (d *Disk) Usage() (int64, error) {
	var total int64
	err := filepath.Walk(d.root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
