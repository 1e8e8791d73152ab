package repository

import (
	"context"

	"github.com/user/image-scraper-service/internal/imaging"
)

// PageExtractor fetches a page and returns the raw image references it contains.
type PageExtractor interface {
	// Extract returns the src of every <img> on the page, in document order.
	// Returns ErrPageUnreachable if the page cannot be fetched.
	Extract(ctx context.Context, pageURL string) ([]string, error)
}

// ImageFetcher downloads and decodes a single image.
type ImageFetcher interface {
	// FetchAndDecode returns ErrImageFetch or ErrImageDecode (wrapped) on failure.
	FetchAndDecode(ctx context.Context, imageURL string) (*imaging.Decoded, error)
}
