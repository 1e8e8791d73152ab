package repository

import (
	"context"

	"github.com/user/image-scraper-service/internal/entity"
)

// AddressRepository defines the interface for storing scraped page addresses.
type AddressRepository interface {
	// GetOrCreate returns the address with the given (already normalized) URL, creating it if needed.
	GetOrCreate(ctx context.Context, url string) (*entity.Address, error)
	// FindByID retrieves an address by ID. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id int64) (*entity.Address, error)
	// FindByURL retrieves an address by its normalized URL. Returns ErrNotFound if absent.
	FindByURL(ctx context.Context, url string) (*entity.Address, error)
	// List returns every stored address ordered by ID.
	List(ctx context.Context) ([]*entity.Address, error)
	// Delete removes an address. Images it owned keep their records with a nil parent.
	Delete(ctx context.Context, id int64) error
}
