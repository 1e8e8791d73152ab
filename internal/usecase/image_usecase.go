package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/imaging"
	"github.com/user/image-scraper-service/internal/repository"
	"github.com/user/image-scraper-service/pkg/metrics"
	"github.com/user/image-scraper-service/pkg/utils"
)

// RenderOptions describes the transform applied when serving an image.
// Nil sizes and an empty format leave the stored value untouched.
type RenderOptions struct {
	Width   *int
	Height  *int
	Format  string
	Quality int
}

// Rendered is an encoded image ready to be served.
type Rendered struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// ImageService reads, transforms and deletes stored images.
type ImageService interface {
	QueryByParentURL(ctx context.Context, url string) ([]*entity.Image, error)
	QueryByOriginalImageURL(ctx context.Context, url string) ([]*entity.Image, error)
	Get(ctx context.Context, id int64) (*entity.Image, error)
	Render(ctx context.Context, id int64, opts RenderOptions) (*Rendered, error)
	Delete(ctx context.Context, id int64) error
	DeleteAddress(ctx context.Context, id int64) error
}

type imageUseCase struct {
	addresses repository.AddressRepository
	images    repository.ImageRepository
	blobs     repository.BlobStore
	cache     repository.DedupCache
	store     ImageStore
	renders   *lru.Cache[string, *Rendered]
	logger    *zap.Logger
}

// NewImageService creates a new ImageService. renderCacheSize bounds the
// number of transformed variants kept in memory.
func NewImageService(
	addresses repository.AddressRepository,
	images repository.ImageRepository,
	blobs repository.BlobStore,
	cache repository.DedupCache,
	store ImageStore,
	renderCacheSize int,
	logger *zap.Logger,
) (ImageService, error) {
	renders, err := lru.New[string, *Rendered](renderCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}
	return &imageUseCase{
		addresses: addresses,
		images:    images,
		blobs:     blobs,
		cache:     cache,
		store:     store,
		renders:   renders,
		logger:    logger,
	}, nil
}

// QueryByParentURL normalizes url before looking up the owning address.
func (uc *imageUseCase) QueryByParentURL(ctx context.Context, url string) ([]*entity.Image, error) {
	images, err := uc.images.FindByParentURL(ctx, utils.NormalizeURL(url))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return images, nil
}

func (uc *imageUseCase) QueryByOriginalImageURL(ctx context.Context, url string) ([]*entity.Image, error) {
	images, err := uc.images.FindByOriginalURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return images, nil
}

func (uc *imageUseCase) Get(ctx context.Context, id int64) (*entity.Image, error) {
	img, err := uc.images.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: image %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return img, nil
}

// Render loads the stored blob and applies opts. The record is always read
// first so that deleted images are never served from the cache.
func (uc *imageUseCase) Render(ctx context.Context, id int64, opts RenderOptions) (*Rendered, error) {
	start := time.Now()

	img, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	format := outputFormat(opts.Format, img.FormatLower())
	quality := opts.Quality
	if quality <= 0 {
		quality = imaging.DefaultQuality
	}
	width, height := imaging.TargetSize(img.Width, img.Height, opts.Width, opts.Height)

	key := renderKey(id, width, height, format, quality)
	if cached, ok := uc.renders.Get(key); ok {
		metrics.RenderDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
		return cached, nil
	}

	data, err := uc.blobs.Get(ctx, img.BlobKey)
	if errors.Is(err, repository.ErrBlobNotFound) {
		return nil, fmt.Errorf("%w: blob for image %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	decoded, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode stored image %d: %w", ErrStorage, id, err)
	}

	out := imaging.Resize(decoded.Image, width, height)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format, quality); err != nil {
		return nil, fmt.Errorf("encode image %d as %s: %w", id, format, err)
	}

	rendered := &Rendered{
		Data:        buf.Bytes(),
		ContentType: "image/" + format,
		Width:       width,
		Height:      height,
	}
	uc.renders.Add(key, rendered)
	metrics.RenderDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	return rendered, nil
}

// outputFormat picks the requested format when it can be encoded, otherwise
// the stored format, otherwise png. stored is expected in lower case.
func outputFormat(requested, stored string) string {
	if f := strings.ToLower(requested); imaging.CanEncode(f) {
		return f
	}
	if imaging.CanEncode(stored) {
		return stored
	}
	return "png"
}

func renderKey(id int64, width, height int, format string, quality int) string {
	return fmt.Sprintf("%d:%d:%d:%s:%d", id, width, height, format, quality)
}

func (uc *imageUseCase) Delete(ctx context.Context, id int64) error {
	img, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.store.Delete(ctx, img); err != nil {
		return err
	}
	uc.evict(id)
	uc.logger.Info("image deleted", zap.Int64("id", id), zap.String("blob_key", img.BlobKey))
	return nil
}

// DeleteAddress removes the address and clears its dedup entry. Its images
// stay stored with no parent.
func (uc *imageUseCase) DeleteAddress(ctx context.Context, id int64) error {
	addr, err := uc.addresses.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: address %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if err := uc.addresses.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: address %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if err := uc.cache.Set(ctx, addr.URL, nil); err != nil {
		uc.logger.Warn("failed to clear dedup entry", zap.String("url", addr.URL), zap.Error(err))
	}
	uc.logger.Info("address deleted", zap.Int64("id", id), zap.String("url", addr.URL))
	return nil
}

// evict drops every cached variant of the image.
func (uc *imageUseCase) evict(id int64) {
	prefix := fmt.Sprintf("%d:", id)
	for _, key := range uc.renders.Keys() {
		if strings.HasPrefix(key, prefix) {
			uc.renders.Remove(key)
		}
	}
}
