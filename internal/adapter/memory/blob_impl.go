package memory

import (
	"context"
	"sync"

	"github.com/user/image-scraper-service/internal/repository"
)

// BlobStoreImpl implements repository.BlobStore in memory.
type BlobStoreImpl struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore creates an empty BlobStoreImpl.
func NewBlobStore() *BlobStoreImpl {
	return &BlobStoreImpl{blobs: make(map[string][]byte)}
}

func (b *BlobStoreImpl) Put(ctx context.Context, key string, data []byte, contentType string) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	b.mu.Lock()
	b.blobs[key] = stored
	b.mu.Unlock()
	return nil
}

func (b *BlobStoreImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[key]
	if !ok {
		return nil, repository.ErrBlobNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *BlobStoreImpl) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.blobs[key]; !ok {
		return repository.ErrBlobNotFound
	}
	delete(b.blobs, key)
	return nil
}

// Len returns the number of stored blobs.
func (b *BlobStoreImpl) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blobs)
}
