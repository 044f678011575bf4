package repository

import (
	"context"
	"time"
)

// VisitedRepository is the cross-run extraction cache. It is optional
// wiring: when absent, every run re-extracts every in-window URL. The
// in-run seen-URL set is separate and always enforced.
type VisitedRepository interface {
	// MarkExtracted records that a URL was extracted, expiring after ttl.
	MarkExtracted(ctx context.Context, url string, ttl time.Duration) error

	// WasExtracted reports whether a URL was extracted within the TTL.
	WasExtracted(ctx context.Context, url string) (bool, error)

	// Forget removes a URL from the cache, used by force runs.
	Forget(ctx context.Context, url string) error
}
