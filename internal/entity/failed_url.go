package entity

import "time"

// FailedURL mirrors the `failed_urls` PostgreSQL table schema. Rows are
// bookkeeping only; nothing schedules automatic retries from this table.
type FailedURL struct {
	ID                   int64
	URL                  string
	FailureReason        string
	HTTPStatusCode       int
	LastAttemptTimestamp time.Time
	AttemptCount         int
}
