package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS addresses (
	id         BIGSERIAL PRIMARY KEY,
	url        TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS images (
	id           BIGSERIAL PRIMARY KEY,
	parent_id    BIGINT REFERENCES addresses(id) ON DELETE SET NULL,
	name         TEXT NOT NULL UNIQUE,
	blob_key     TEXT NOT NULL,
	original_url TEXT NOT NULL,
	width        INTEGER NOT NULL,
	height       INTEGER NOT NULL,
	mode         TEXT NOT NULL,
	format       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS images_parent_id_idx ON images (parent_id);
CREATE INDEX IF NOT EXISTS images_original_url_idx ON images (original_url);
`

// EnsureSchema creates the tables the repositories need if they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
