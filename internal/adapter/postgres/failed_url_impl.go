package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/scraper-service/internal/entity"
)

// FailedURLRepoImpl records extraction failures in the `failed_urls`
// PostgreSQL table.
type FailedURLRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedURLRepo creates a new instance of FailedURLRepoImpl.
func NewFailedURLRepo(db *pgxpool.Pool) *FailedURLRepoImpl {
	return &FailedURLRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed URL.
// It increments the attempt_count on conflict.
func (r *FailedURLRepoImpl) SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error {
	query := `
		INSERT INTO failed_urls (url, failure_reason, http_status_code, last_attempt_timestamp, attempt_count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (url) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			attempt_count = failed_urls.attempt_count + 1;
	`
	_, err := r.db.Exec(ctx, query,
		failedURL.URL,
		failedURL.FailureReason,
		failedURL.HTTPStatusCode,
		failedURL.LastAttemptTimestamp,
	)
	return err
}

// FindRecent retrieves the most recently failed URLs.
func (r *FailedURLRepoImpl) FindRecent(ctx context.Context, limit int) ([]*entity.FailedURL, error) {
	query := `
		SELECT id, url, failure_reason, http_status_code, last_attempt_timestamp, attempt_count
		FROM failed_urls
		ORDER BY last_attempt_timestamp DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failedURLs []*entity.FailedURL
	for rows.Next() {
		var fu entity.FailedURL
		if err := rows.Scan(
			&fu.ID,
			&fu.URL,
			&fu.FailureReason,
			&fu.HTTPStatusCode,
			&fu.LastAttemptTimestamp,
			&fu.AttemptCount,
		); err != nil {
			return nil, err
		}
		failedURLs = append(failedURLs, &fu)
	}

	return failedURLs, rows.Err()
}

// Delete removes a failed URL record, typically after a successful extraction.
func (r *FailedURLRepoImpl) Delete(ctx context.Context, url string) error {
	query := `DELETE FROM failed_urls WHERE url = $1;`
	_, err := r.db.Exec(ctx, query, url)
	return err
}
