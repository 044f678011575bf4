package request

// StartRunRequest triggers a crawl run.
type StartRunRequest struct {
	// Kind selects the crawl: "events" or "sites".
	Kind string `json:"kind"`
	// Force bypasses the cross-run extraction cache.
	Force bool `json:"force"`
}
