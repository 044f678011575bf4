package response

import "time"

// StartRunResponse acknowledges a run trigger.
type StartRunResponse struct {
	Status  string `json:"status"` // "started" or "already_running"
	Message string `json:"message"`
}

// RunStatusResponse is a DTO for the run status, mirroring entity.RunStatus.
type RunStatusResponse struct {
	Running     bool       `json:"running"`
	Kind        string     `json:"kind,omitempty"`
	// LastRun is the start time of the active run, or of the most recent
	// finished run when idle.
	LastRun     *time.Time `json:"last_run,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Message     string     `json:"message"`
	ItemsFound  int        `json:"items_found"`
	PagesWalked int        `json:"pages_walked"`
	Failures    int        `json:"failures"`
}

// FailedURLResponse is a DTO for one failed-URL record.
type FailedURLResponse struct {
	URL                  string    `json:"url"`
	FailureReason        string    `json:"failure_reason"`
	HTTPStatusCode       int       `json:"http_status_code,omitempty"`
	LastAttemptTimestamp time.Time `json:"last_attempt_timestamp"`
	AttemptCount         int       `json:"attempt_count"`
}
