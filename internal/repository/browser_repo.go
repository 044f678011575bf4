package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// BrowserRepository defines the contract for the headless-browser layer.
type BrowserRepository interface {
	// RenderPage navigates to a URL, waits for it to settle, and returns the
	// cleaned text content of the page.
	RenderPage(ctx context.Context, url string) (*entity.PageContent, error)

	// OpenTable navigates to a page hosting a dynamic data table and returns
	// a session for walking it page by page. The caller must Close it.
	OpenTable(ctx context.Context, url string) (TableSession, error)
}

// TableSession drives one paginated table widget. Pages are visited
// strictly sequentially; the session is not safe for concurrent use.
type TableSession interface {
	// PageHTML returns the outer HTML of the table on the current page.
	PageHTML(ctx context.Context) (string, error)

	// NextPage advances to the next table page. It reports false when no
	// enabled "next" control exists, which ends the walk.
	NextPage(ctx context.Context) (bool, error)

	// Close releases the underlying browser tab.
	Close()
}
