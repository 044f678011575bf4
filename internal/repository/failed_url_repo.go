package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// FailedURLRepository defines the interface for recording URLs whose
// extraction failed. Records are informational; re-running with force is
// the only retry path.
type FailedURLRepository interface {
	// SaveOrUpdate creates or updates a record for a failed URL,
	// incrementing its attempt count on conflict.
	SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error

	// FindRecent retrieves the most recently failed URLs.
	FindRecent(ctx context.Context, limit int) ([]*entity.FailedURL, error)

	// Delete removes a failed URL record after a successful extraction.
	Delete(ctx context.Context, url string) error
}
