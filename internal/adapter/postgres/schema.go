package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS extracted_records (
	id BIGSERIAL PRIMARY KEY,
	source_url TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	scraped_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS failed_urls (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	failure_reason TEXT NOT NULL,
	http_status_code INT NOT NULL DEFAULT 0,
	last_attempt_timestamp TIMESTAMPTZ NOT NULL,
	attempt_count INT NOT NULL DEFAULT 1
);
`

// EnsureSchema creates the archive tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure archive schema: %w", err)
	}
	return nil
}
