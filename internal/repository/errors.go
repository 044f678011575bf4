package repository

import "errors"

// Sentinel errors shared across adapter implementations. Use cases switch
// on these with errors.Is to classify failures for metrics and run status.
var (
	// ErrCrawlTimeout indicates the page (or table widget) did not finish
	// rendering within the configured timeout.
	ErrCrawlTimeout = errors.New("crawl timed out waiting for page render")

	// ErrNavigationFailed indicates the browser could not navigate to the URL.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrEmptyResponse indicates the extraction service returned no text.
	ErrEmptyResponse = errors.New("extraction service returned an empty response")

	// ErrMalformedJSON indicates no decodable JSON object could be recovered
	// from the extraction service response.
	ErrMalformedJSON = errors.New("extraction response contained no valid JSON object")
)
