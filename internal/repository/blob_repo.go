package repository

import "context"

// BlobStore defines the interface for named binary payload storage.
type BlobStore interface {
	// Put writes data under key, replacing any existing blob.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get reads the blob stored under key. Returns ErrBlobNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the blob stored under key. Returns ErrBlobNotFound if absent.
	Delete(ctx context.Context, key string) error
}
