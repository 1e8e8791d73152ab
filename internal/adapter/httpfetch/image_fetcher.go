package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/image-scraper-service/internal/imaging"
	"github.com/user/image-scraper-service/internal/repository"
)

// ImageFetcher implements repository.ImageFetcher.
type ImageFetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxBytes  int64
	maxPixels int64
	userAgent string
}

// NewImageFetcher creates an ImageFetcher. Bodies larger than maxBytes and
// images declaring more than maxPixels pixels are rejected.
func NewImageFetcher(client *http.Client, timeout time.Duration, maxBytes, maxPixels int64, userAgent string) *ImageFetcher {
	return &ImageFetcher{client: client, timeout: timeout, maxBytes: maxBytes, maxPixels: maxPixels, userAgent: userAgent}
}

// FetchAndDecode downloads imageURL and decodes it by sniffing its content.
// The response Content-Type is ignored.
func (f *ImageFetcher) FetchAndDecode(ctx context.Context, imageURL string) (*imaging.Decoded, error) {
	data, err := f.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	decoded, err := imaging.DecodeLimited(data, f.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", repository.ErrImageDecode, imageURL, err)
	}
	return decoded, nil
}

func (f *ImageFetcher) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrImageFetch, imageURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrImageFetch, imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status code %d", repository.ErrImageFetch, imageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", repository.ErrImageFetch, imageURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s: body exceeds %d bytes", repository.ErrImageFetch, imageURL, f.maxBytes)
	}
	return data, nil
}
