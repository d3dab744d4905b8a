package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/account-monitor/internal/auth"
)

// ErrBlobNotFound is returned by a BlobStore that holds nothing yet
var ErrBlobNotFound = errors.New("store blob not found")

// BlobStore holds the single encoded store blob
type BlobStore interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Close() error
}

// FileBlobStore keeps the blob in one file, replaced atomically on every Put
type FileBlobStore struct {
	path string
}

// NewFileBlobStore creates a file-backed blob store
func NewFileBlobStore(path string) *FileBlobStore {
	return &FileBlobStore{path: path}
}

// Get reads the file
func (f *FileBlobStore) Get(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return data, nil
}

// Put replaces the file
func (f *FileBlobStore) Put(ctx context.Context, data []byte) error {
	return auth.WriteFileAtomic(f.path, data, 0o600)
}

// Close is a no-op
func (f *FileBlobStore) Close() error {
	return nil
}
