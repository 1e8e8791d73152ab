package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/repository"
)

// AddressRepoImpl provides a concrete implementation for the AddressRepository interface using PostgreSQL.
type AddressRepoImpl struct {
	db *pgxpool.Pool
}

// NewAddressRepo creates a new instance of AddressRepoImpl.
func NewAddressRepo(db *pgxpool.Pool) *AddressRepoImpl {
	return &AddressRepoImpl{db: db}
}

// GetOrCreate inserts the address or, on conflict, returns the existing row.
// The no-op update makes RETURNING yield the row in both cases.
func (r *AddressRepoImpl) GetOrCreate(ctx context.Context, url string) (*entity.Address, error) {
	query := `
		INSERT INTO addresses (url)
		VALUES ($1)
		ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		RETURNING id, url, created_at, updated_at;
	`
	var a entity.Address
	if err := r.db.QueryRow(ctx, query, url).Scan(&a.ID, &a.URL, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get or create address %s: %w", url, err)
	}
	return &a, nil
}

// FindByID retrieves an address by its primary key.
func (r *AddressRepoImpl) FindByID(ctx context.Context, id int64) (*entity.Address, error) {
	query := `SELECT id, url, created_at, updated_at FROM addresses WHERE id = $1;`

	var a entity.Address
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.URL, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find address %d: %w", id, err)
	}
	return &a, nil
}

// FindByURL retrieves an address by its normalized URL.
func (r *AddressRepoImpl) FindByURL(ctx context.Context, url string) (*entity.Address, error) {
	query := `SELECT id, url, created_at, updated_at FROM addresses WHERE url = $1;`

	var a entity.Address
	err := r.db.QueryRow(ctx, query, url).Scan(&a.ID, &a.URL, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find address %s: %w", url, err)
	}
	return &a, nil
}

// List returns every address ordered by ID.
func (r *AddressRepoImpl) List(ctx context.Context) ([]*entity.Address, error) {
	query := `SELECT id, url, created_at, updated_at FROM addresses ORDER BY id;`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*entity.Address{}
	for rows.Next() {
		var a entity.Address
		if err := rows.Scan(&a.ID, &a.URL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		addresses = append(addresses, &a)
	}
	return addresses, rows.Err()
}

// Delete removes an address. The images foreign key sets parent_id to NULL.
func (r *AddressRepoImpl) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM addresses WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete address %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
