package repository

import "context"

// DedupCache tracks, per address URL, the image references already processed.
// Entries never expire.
type DedupCache interface {
	// Get returns the stored set for key, or an empty slice if there is none.
	Get(ctx context.Context, key string) ([]string, error)
	// Set replaces the stored set for key.
	Set(ctx context.Context, key string, values []string) error
}
