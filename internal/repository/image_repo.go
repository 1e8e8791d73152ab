package repository

import (
	"context"

	"github.com/user/image-scraper-service/internal/entity"
)

// ImageRepository defines the interface for storing image metadata records.
// Read methods return images ordered by ID with Parent populated.
type ImageRepository interface {
	// Create inserts the record and sets its ID and timestamps.
	Create(ctx context.Context, img *entity.Image) error
	// FindByID retrieves a single image. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id int64) (*entity.Image, error)
	// FindByParentID returns all images owned by an address.
	FindByParentID(ctx context.Context, parentID int64) ([]*entity.Image, error)
	// FindByParentURL returns all images owned by the address with the given URL.
	FindByParentURL(ctx context.Context, url string) ([]*entity.Image, error)
	// FindByOriginalURL returns all images fetched from the given resolved URL.
	FindByOriginalURL(ctx context.Context, url string) ([]*entity.Image, error)
	// ListAll returns every image in the system.
	ListAll(ctx context.Context) ([]*entity.Image, error)
	// Delete removes an image record. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error
}
