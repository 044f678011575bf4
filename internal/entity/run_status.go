package entity

import "time"

// Run kinds accepted by the control surface.
const (
	RunKindEvents = "events"
	RunKindSites  = "sites"
)

// RunStatus is a point-in-time snapshot of the active (or most recent) run.
type RunStatus struct {
	Running     bool
	Kind        string
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Message     string
	ItemsFound  int
	PagesWalked int
	Failures    int
}

// RunSummary describes one completed run; it backs the session separator
// row appended to the sink.
type RunSummary struct {
	Kind       string
	StartedAt  time.Time
	FinishedAt time.Time
	ItemsFound int
	Failures   int
}
