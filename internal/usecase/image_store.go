package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/imaging"
	"github.com/user/image-scraper-service/internal/repository"
	"github.com/user/image-scraper-service/pkg/metrics"
)

// ImageStore persists decoded images as a blob plus a metadata record, and
// removes both.
type ImageStore interface {
	Persist(ctx context.Context, decoded *imaging.Decoded, sourceURL string, parent *entity.Address) (*entity.Image, error)
	Delete(ctx context.Context, img *entity.Image) error
}

type imageStore struct {
	images repository.ImageRepository
	blobs  repository.BlobStore
	logger *zap.Logger
}

// NewImageStore creates a new ImageStore.
func NewImageStore(images repository.ImageRepository, blobs repository.BlobStore, logger *zap.Logger) ImageStore {
	return &imageStore{images: images, blobs: blobs, logger: logger}
}

// storageName returns 32 random hex characters followed by the MIME subtype
// of the decoded format.
func storageName(format string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "." + imaging.MIMESubtype(format)
}

// Persist writes the blob first and only then creates the record. If the
// record cannot be created the blob is removed again.
func (s *imageStore) Persist(ctx context.Context, decoded *imaging.Decoded, sourceURL string, parent *entity.Address) (*entity.Image, error) {
	name := storageName(decoded.Format)
	key := name
	if netloc := parent.Netloc(); netloc != "" {
		key = netloc + "/" + name
	}

	data, err := encodeForStorage(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrStorage, sourceURL, err)
	}

	contentType := "image/" + imaging.MIMESubtype(decoded.Format)
	if err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("%w: put blob %s: %w", ErrStorage, key, err)
	}

	parentID := parent.ID
	img := &entity.Image{
		ParentID:    &parentID,
		Name:        name,
		BlobKey:     key,
		OriginalURL: sourceURL,
		Width:       decoded.Width(),
		Height:      decoded.Height(),
		Mode:        decoded.Mode,
		Format:      decoded.Format,
	}
	if err := s.images.Create(ctx, img); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove blob after record insert failed",
				zap.String("blob_key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: create record for %s: %w", ErrStorage, sourceURL, err)
	}
	img.Parent = parent

	metrics.ImagesPersisted.Inc()
	return img, nil
}

// encodeForStorage re-encodes the image in its decoded format. Formats with no
// encoder keep the downloaded bytes.
func encodeForStorage(decoded *imaging.Decoded) ([]byte, error) {
	if !imaging.CanEncode(decoded.Format) {
		return decoded.Raw, nil
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded.Image, decoded.Format, imaging.DefaultQuality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Delete removes the blob first, tolerating any blob error, then the record.
// A record that is already gone is not an error.
func (s *imageStore) Delete(ctx context.Context, img *entity.Image) error {
	if err := s.blobs.Delete(ctx, img.BlobKey); err != nil {
		if errors.Is(err, repository.ErrBlobNotFound) {
			s.logger.Debug("blob already absent", zap.String("blob_key", img.BlobKey))
		} else {
			s.logger.Warn("failed to delete blob, removing record anyway",
				zap.String("blob_key", img.BlobKey), zap.Error(err))
		}
	}

	if err := s.images.Delete(ctx, img.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: delete image %d: %w", ErrStorage, img.ID, err)
	}
	return nil
}
