package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// RecordArchiveRepository defines the interface for the durable archive of
// produced records. The sheet is the primary sink; the archive exists so a
// run's output survives sheet edits and can be inspected with SQL.
type RecordArchiveRepository interface {
	// Save stores a record, replacing any previous record for the same URL.
	Save(ctx context.Context, record *entity.ExtractedRecord) error

	// FindBySourceURL retrieves the archived record for a URL.
	FindBySourceURL(ctx context.Context, url string) (*entity.ExtractedRecord, error)
}
