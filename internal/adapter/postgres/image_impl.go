package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/repository"
)

const selectImages = `
	SELECT i.id, i.parent_id, i.name, i.blob_key, i.original_url, i.width, i.height,
	       i.mode, i.format, i.created_at, i.updated_at,
	       a.url, a.created_at, a.updated_at
	FROM images i
	LEFT JOIN addresses a ON a.id = i.parent_id
`

// ImageRepoImpl provides a concrete implementation for the ImageRepository interface using PostgreSQL.
type ImageRepoImpl struct {
	db *pgxpool.Pool
}

// NewImageRepo creates a new instance of ImageRepoImpl.
func NewImageRepo(db *pgxpool.Pool) *ImageRepoImpl {
	return &ImageRepoImpl{db: db}
}

// Create stores a new image record and fills in its ID and timestamps.
func (r *ImageRepoImpl) Create(ctx context.Context, img *entity.Image) error {
	query := `
		INSERT INTO images (parent_id, name, blob_key, original_url, width, height, mode, format)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		img.ParentID,
		img.Name,
		img.BlobKey,
		img.OriginalURL,
		img.Width,
		img.Height,
		img.Mode,
		img.Format,
	).Scan(&img.ID, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create image %s: %w", img.Name, err)
	}
	return nil
}

func (r *ImageRepoImpl) FindByID(ctx context.Context, id int64) (*entity.Image, error) {
	img, err := scanImage(r.db.QueryRow(ctx, selectImages+` WHERE i.id = $1;`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find image %d: %w", id, err)
	}
	return img, nil
}

func (r *ImageRepoImpl) FindByParentID(ctx context.Context, parentID int64) ([]*entity.Image, error) {
	return r.query(ctx, selectImages+` WHERE i.parent_id = $1 ORDER BY i.id;`, parentID)
}

func (r *ImageRepoImpl) FindByParentURL(ctx context.Context, url string) ([]*entity.Image, error) {
	return r.query(ctx, selectImages+` WHERE a.url = $1 ORDER BY i.id;`, url)
}

func (r *ImageRepoImpl) FindByOriginalURL(ctx context.Context, url string) ([]*entity.Image, error) {
	return r.query(ctx, selectImages+` WHERE i.original_url = $1 ORDER BY i.id;`, url)
}

func (r *ImageRepoImpl) ListAll(ctx context.Context) ([]*entity.Image, error) {
	return r.query(ctx, selectImages+` ORDER BY i.id;`)
}

func (r *ImageRepoImpl) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete image %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ImageRepoImpl) query(ctx context.Context, query string, args ...any) ([]*entity.Image, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	images := []*entity.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func scanImage(row pgx.Row) (*entity.Image, error) {
	var (
		img             entity.Image
		parentURL       *string
		parentCreatedAt *time.Time
		parentUpdatedAt *time.Time
	)
	err := row.Scan(
		&img.ID,
		&img.ParentID,
		&img.Name,
		&img.BlobKey,
		&img.OriginalURL,
		&img.Width,
		&img.Height,
		&img.Mode,
		&img.Format,
		&img.CreatedAt,
		&img.UpdatedAt,
		&parentURL,
		&parentCreatedAt,
		&parentUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if img.ParentID != nil && parentURL != nil {
		img.Parent = &entity.Address{
			ID:        *img.ParentID,
			URL:       *parentURL,
			CreatedAt: *parentCreatedAt,
			UpdatedAt: *parentUpdatedAt,
		}
	}
	return &img, nil
}
