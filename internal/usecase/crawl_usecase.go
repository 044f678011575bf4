package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/scraper-service/internal/dates"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
	"github.com/user/scraper-service/pkg/utils"
)

// scheduledField is seeded from the table's own date cell when the
// extraction service leaves it at the sentinel; the calendar table is more
// reliable about dates than detail-page prose.
const scheduledField = "Scheduled"

// Options fixes the crawl parameters for the lifetime of the process.
type Options struct {
	EventsURL    string
	SiteURLs     []string
	Fields       []string
	Window       dates.Window
	DefaultYear  int
	MaxPages     int
	RequestDelay time.Duration
	VisitedTTL   time.Duration
	Location     *time.Location
}

// Crawler runs one crawl of the requested kind to completion.
type Crawler interface {
	Run(ctx context.Context, kind string, force bool, handle *RunHandle) error
}

type crawlUseCase struct {
	browser    repository.BrowserRepository
	extractor  repository.ExtractorRepository
	sink       repository.SinkRepository
	visited    repository.VisitedRepository     // nil when the cache is not configured
	archive    repository.RecordArchiveRepository // nil when the archive is not configured
	failedURLs repository.FailedURLRepository     // nil when the archive is not configured
	opts       Options
}

// NewCrawlUseCase creates the crawl orchestrator. visited, archive, and
// failedURLs may be nil; the corresponding side channels are then skipped.
func NewCrawlUseCase(
	browser repository.BrowserRepository,
	extractor repository.ExtractorRepository,
	sink repository.SinkRepository,
	visited repository.VisitedRepository,
	archive repository.RecordArchiveRepository,
	failedURLs repository.FailedURLRepository,
	opts Options,
) Crawler {
	return &crawlUseCase{
		browser:    browser,
		extractor:  extractor,
		sink:       sink,
		visited:    visited,
		archive:    archive,
		failedURLs: failedURLs,
		opts:       opts,
	}
}

// Run executes one crawl. All per-URL failures are absorbed into fallback
// records; the returned error covers only failures that prevent the run
// from producing anything at all.
func (uc *crawlUseCase) Run(ctx context.Context, kind string, force bool, handle *RunHandle) error {
	if err := uc.sink.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("failed to initialize sink header: %w", err)
	}

	started := time.Now().In(uc.opts.Location)

	var err error
	switch kind {
	case entity.RunKindEvents:
		err = uc.walkEvents(ctx, force, handle)
	case entity.RunKindSites:
		err = uc.crawlSites(ctx, force, handle)
	default:
		return fmt.Errorf("unknown run kind %q", kind)
	}
	if err != nil {
		return err
	}

	status := handle.Snapshot()
	summary := &entity.RunSummary{
		Kind:       kind,
		StartedAt:  started,
		FinishedAt: time.Now().In(uc.opts.Location),
		ItemsFound: status.ItemsFound,
		Failures:   status.Failures,
	}
	if err := uc.sink.AppendSummary(ctx, summary); err != nil {
		// The data rows are already committed; losing the separator is cosmetic.
		slog.Warn("Failed to append run summary row", "error", err)
	}
	return nil
}

// walkEvents drives the paginated events table: load, extract rows, filter
// by the scheduling window, follow in-window detail links, advance.
func (uc *crawlUseCase) walkEvents(ctx context.Context, force bool, handle *RunHandle) error {
	session, err := uc.browser.OpenTable(ctx, uc.opts.EventsURL)
	if err != nil {
		return fmt.Errorf("failed to open events table: %w", err)
	}
	defer session.Close()

	// Run-scoped deduplication: a detail URL seen on any page is extracted
	// at most once for the lifetime of this run.
	seen := make(map[string]struct{})

	for page := 1; page <= uc.opts.MaxPages; page++ {
		html, err := session.PageHTML(ctx)
		if err != nil {
			slog.Error("Failed to read table page, ending walk early", "page", page, "error", err)
			break
		}

		rows, err := ParseCandidateRows(html, uc.opts.EventsURL)
		if err != nil {
			slog.Error("Failed to parse table page, ending walk early", "page", page, "error", err)
			break
		}

		metrics.PagesWalkedTotal.Inc()
		metrics.TableRowsTotal.Add(float64(len(rows)))
		handle.Update(func(s *entity.RunStatus) {
			s.PagesWalked = page
			s.Message = fmt.Sprintf("walking table, page %d", page)
		})
		slog.Info("Processing table page", "page", page, "rows", len(rows))

		var minDate, maxDate time.Time
		parsed := 0
		for _, row := range rows {
			d, ok := dates.Parse(row.RawDateText, uc.opts.DefaultYear)
			if !ok {
				// Month banners and "to be confirmed" rows are non-dates,
				// not errors.
				continue
			}
			parsed++
			if minDate.IsZero() || d.Before(minDate) {
				minDate = d
			}
			if maxDate.IsZero() || d.After(maxDate) {
				maxDate = d
			}

			if !uc.opts.Window.Contains(d) {
				continue
			}
			if row.DetailURL == "" {
				slog.Warn("In-window row has no detail link, dropping",
					"date", row.RawDateText, "title", row.ListTitle)
				continue
			}
			if _, dup := seen[row.DetailURL]; dup {
				continue
			}
			seen[row.DetailURL] = struct{}{}

			uc.processURL(ctx, row.DetailURL, row.RawDateText, force, handle)
			if err := uc.pause(ctx); err != nil {
				return err
			}
		}

		// Early termination heuristic: the table is assumed to paginate in
		// date order, so a page lying wholly outside the window means no
		// later page can re-enter it. The page min/max is logged so a sort
		// order change on the site is observable.
		if parsed > 0 {
			if minDate.After(uc.opts.Window.End) {
				slog.Info("Every date on page is past the window end, stopping walk",
					"page", page, "page_min", minDate.Format("2006-01-02"), "page_max", maxDate.Format("2006-01-02"))
				break
			}
			if maxDate.Before(uc.opts.Window.Start) {
				slog.Info("Every date on page is before the window start, stopping walk",
					"page", page, "page_min", minDate.Format("2006-01-02"), "page_max", maxDate.Format("2006-01-02"))
				break
			}
		}

		hasNext, err := session.NextPage(ctx)
		if err != nil {
			slog.Error("Failed to advance table page, ending walk early", "page", page, "error", err)
			break
		}
		if !hasNext {
			slog.Info("No next page control, walk complete", "pages", page)
			break
		}
		if err := uc.pause(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// crawlSites renders and extracts each configured site URL in sequence.
func (uc *crawlUseCase) crawlSites(ctx context.Context, force bool, handle *RunHandle) error {
	if len(uc.opts.SiteURLs) == 0 {
		return errors.New("no site URLs configured")
	}
	for i, raw := range uc.opts.SiteURLs {
		pageURL := utils.EnsureScheme(raw)
		handle.Update(func(s *entity.RunStatus) {
			s.Message = fmt.Sprintf("scraping site %d/%d", i+1, len(uc.opts.SiteURLs))
		})
		uc.processURL(ctx, pageURL, "", force, handle)
		if err := uc.pause(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// processURL renders one page, extracts a record (or builds the fallback),
// and writes it to every configured destination. Nothing here aborts the
// run; every failure becomes a state on the record.
func (uc *crawlUseCase) processURL(ctx context.Context, pageURL, rawDate string, force bool, handle *RunHandle) {
	if ctx.Err() != nil {
		return
	}
	if uc.skipRecentlyExtracted(ctx, pageURL, force) {
		return
	}

	slog.Info("Processing URL", "url", pageURL)

	record, httpStatus, extractErr := uc.extractPage(ctx, pageURL, rawDate)
	if extractErr != nil {
		handle.Update(func(s *entity.RunStatus) { s.Failures++ })
		uc.recordFailure(ctx, pageURL, httpStatus, extractErr)
	} else {
		uc.recordSuccess(ctx, pageURL)
	}

	if _, err := uc.sink.Append(ctx, record); err != nil {
		metrics.SheetAppendsTotal.WithLabelValues("failure").Inc()
		slog.Error("Failed to append record to sink", "url", pageURL, "error", err)
		handle.Update(func(s *entity.RunStatus) { s.Failures++ })
		return
	}
	metrics.SheetAppendsTotal.WithLabelValues("success").Inc()
	handle.Update(func(s *entity.RunStatus) { s.ItemsFound++ })

	if uc.archive != nil {
		if err := uc.archive.Save(ctx, record); err != nil {
			slog.Warn("Failed to archive record", "url", pageURL, "error", err)
		}
	}
}

// extractPage renders the page and calls the extraction service, producing
// either the extracted record or a fallback record plus the causing error.
func (uc *crawlUseCase) extractPage(ctx context.Context, pageURL, rawDate string) (*entity.ExtractedRecord, int, error) {
	now := func() time.Time { return time.Now().In(uc.opts.Location) }

	page, err := uc.browser.RenderPage(ctx, pageURL)
	if err != nil {
		slog.Error("Failed to render page", "url", pageURL, "error", err)
		metrics.ExtractionsTotal.WithLabelValues("failure", classifyError(err)).Inc()
		return entity.NewFallbackRecord(pageURL, uc.opts.Fields, err.Error(), now()), 0, err
	}

	start := time.Now()
	record, err := uc.extractor.Extract(ctx, pageURL, page, uc.opts.Fields)
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("Extraction failed, substituting fallback record", "url", pageURL, "error", err)
		metrics.ExtractionsTotal.WithLabelValues("failure", classifyError(err)).Inc()
		return entity.NewFallbackRecord(pageURL, uc.opts.Fields, err.Error(), now()), page.HTTPStatusCode, err
	}

	metrics.ExtractionsTotal.WithLabelValues("success", "").Inc()
	uc.seedScheduled(record, rawDate)
	return record, page.HTTPStatusCode, nil
}

// seedScheduled fills the Scheduled field from the table's date cell when
// the service did not supply one.
func (uc *crawlUseCase) seedScheduled(record *entity.ExtractedRecord, rawDate string) {
	if rawDate == "" || record.Field(scheduledField) != entity.Sentinel {
		return
	}
	for _, f := range uc.opts.Fields {
		if f == scheduledField {
			record.Fields[scheduledField] = rawDate
			return
		}
	}
}

// skipRecentlyExtracted consults the optional cross-run cache. Force runs
// drop the cache entry instead.
func (uc *crawlUseCase) skipRecentlyExtracted(ctx context.Context, pageURL string, force bool) bool {
	if uc.visited == nil {
		return false
	}
	if force {
		if err := uc.visited.Forget(ctx, pageURL); err != nil {
			slog.Warn("Failed to drop visited cache entry for force run", "url", pageURL, "error", err)
		}
		return false
	}
	was, err := uc.visited.WasExtracted(ctx, pageURL)
	if err != nil {
		slog.Warn("Visited cache lookup failed, extracting anyway", "url", pageURL, "error", err)
		return false
	}
	if was {
		slog.Info("URL extracted recently, skipping", "url", pageURL)
	}
	return was
}

func (uc *crawlUseCase) recordSuccess(ctx context.Context, pageURL string) {
	if uc.visited != nil {
		if err := uc.visited.MarkExtracted(ctx, pageURL, uc.opts.VisitedTTL); err != nil {
			slog.Warn("Failed to mark URL in visited cache", "url", pageURL, "error", err)
		}
	}
	if uc.failedURLs != nil {
		if err := uc.failedURLs.Delete(ctx, pageURL); err != nil {
			slog.Warn("Failed to clear failed-URL record", "url", pageURL, "error", err)
		}
	}
}

func (uc *crawlUseCase) recordFailure(ctx context.Context, pageURL string, httpStatus int, cause error) {
	if uc.failedURLs == nil {
		return
	}
	fu := &entity.FailedURL{
		URL:                  pageURL,
		FailureReason:        cause.Error(),
		HTTPStatusCode:       httpStatus,
		LastAttemptTimestamp: time.Now(),
	}
	if err := uc.failedURLs.SaveOrUpdate(ctx, fu); err != nil {
		slog.Warn("Failed to record failed URL", "url", pageURL, "error", err)
	}
}

// pause inserts the politeness delay between outbound requests, honoring
// cancellation.
func (uc *crawlUseCase) pause(ctx context.Context) error {
	if uc.opts.RequestDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(uc.opts.RequestDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// classifyError buckets failures for the extraction metrics.
func classifyError(err error) string {
	switch {
	case errors.Is(err, repository.ErrCrawlTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrNavigationFailed):
		return "navigation"
	case errors.Is(err, repository.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, repository.ErrMalformedJSON):
		return "malformed_json"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}
