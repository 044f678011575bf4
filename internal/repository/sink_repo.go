package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// SinkRepository defines the contract for the persistent tabular store
// receiving extracted records.
type SinkRepository interface {
	// EnsureHeader initializes the destination's header row if it is not
	// already populated. Idempotent; the header is never duplicated.
	EnsureHeader(ctx context.Context) error

	// Append writes one record as a fixed-width row and returns the 1-based
	// index of the appended row. Cosmetic formatting applied after the write
	// is best-effort and never surfaces as an error.
	Append(ctx context.Context, record *entity.ExtractedRecord) (int64, error)

	// AppendSummary writes the session-end separator row describing one
	// completed run.
	AppendSummary(ctx context.Context, summary *entity.RunSummary) error
}
