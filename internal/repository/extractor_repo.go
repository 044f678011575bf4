package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// ExtractorRepository defines the contract for the text-to-structured-data
// service. Implementations must never block the run beyond their own
// bounded retry policy.
type ExtractorRepository interface {
	// Extract sends rendered page content to the service and returns a
	// record with a value for every requested field. Any failure (network,
	// empty response, undecodable JSON) is returned as an error; callers
	// substitute a fallback record rather than aborting the run.
	Extract(ctx context.Context, pageURL string, content *entity.PageContent, fields []string) (*entity.ExtractedRecord, error)
}
