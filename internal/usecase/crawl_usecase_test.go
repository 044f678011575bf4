package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scraper-service/internal/dates"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/internal/usecase"
)

var testFields = []string{"Scheduled", "Location", "Title"}

func octoberWindow() dates.Window {
	return dates.NewWindow(
		time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	)
}

func newOptions() usecase.Options {
	return usecase.Options{
		EventsURL:   "https://example.org/calendar",
		Fields:      testFields,
		Window:      octoberWindow(),
		DefaultYear: 2025,
		MaxPages:    10,
		Location:    time.UTC,
	}
}

func newCrawler(browser *fakeBrowser, extractor *fakeExtractor, sink *fakeSink, visited repository.VisitedRepository, opts usecase.Options) usecase.Crawler {
	return usecase.NewCrawlUseCase(browser, extractor, sink, visited, nil, nil, opts)
}

const pageWithHeaderAndEvent = `<table>
<tr><td colspan="3">OCTOBER 2025</td></tr>
<tr><td>Thursday, 2nd October 2025</td><td><a href="/event/ocean">Ocean Dialogue</a></td><td>Room 1</td></tr>
</table>`

func TestRun_Events_HeaderRowYieldsOneCandidate(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{session: &fakeSession{pages: []string{pageWithHeaderAndEvent}}}
	extractor := &fakeExtractor{fields: map[string]string{"Title": "Ocean Dialogue"}}
	sink := &fakeSink{}

	crawler := newCrawler(browser, extractor, sink, nil, newOptions())
	handle := &usecase.RunHandle{}
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, handle))

	assert.Equal(t, 1, extractor.callCount(), "only the dated row is extracted")
	assert.Equal(t, []string{"https://example.org/event/ocean"}, browser.rendered)

	records := sink.appended()
	require.Len(t, records, 1)
	assert.Equal(t, entity.StatusSuccess, records[0].Status)
	assert.Equal(t, "Thursday, 2nd October 2025", records[0].Field("Scheduled"),
		"table date seeds the Scheduled field when the service omits it")

	status := handle.Snapshot()
	assert.Equal(t, 1, status.ItemsFound)
	assert.Equal(t, 0, status.Failures)
	assert.True(t, browser.session.closed)
	require.Len(t, sink.summaries, 1)
	assert.Equal(t, 1, sink.summaries[0].ItemsFound)
}

func TestRun_Events_DuplicateURLAcrossPagesExtractedOnce(t *testing.T) {
	t.Parallel()

	page2 := `<table>
<tr><td>Friday, 3rd October 2025</td><td><a href="/event/ocean">Ocean Dialogue (repeat)</a></td><td>Room 2</td></tr>
</table>`
	browser := &fakeBrowser{session: &fakeSession{pages: []string{pageWithHeaderAndEvent, page2}}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}

	crawler := newCrawler(browser, extractor, sink, nil, newOptions())
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, &usecase.RunHandle{}))

	assert.Equal(t, 1, extractor.callCount(), "same detail URL on two pages extracts at most once")
	assert.Len(t, sink.appended(), 1)
}

func TestRun_Events_StopsWhenPageIsPastWindowEnd(t *testing.T) {
	t.Parallel()

	latePage := `<table>
<tr><td>Monday, 1st December 2025</td><td><a href="/event/late">Too late</a></td><td>Room 9</td></tr>
</table>`
	session := &fakeSession{pages: []string{latePage, pageWithHeaderAndEvent}}
	browser := &fakeBrowser{session: session}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}

	crawler := newCrawler(browser, extractor, sink, nil, newOptions())
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, &usecase.RunHandle{}))

	assert.Equal(t, 0, extractor.callCount())
	assert.Equal(t, 0, session.nextCalls, "walk stops before advancing past the window")
}

func TestRun_Events_StopsWhenPageIsBeforeWindowStart(t *testing.T) {
	t.Parallel()

	earlyPage := `<table>
<tr><td>Monday, 1st September 2025</td><td><a href="/event/early">Too early</a></td><td>Room 9</td></tr>
</table>`
	session := &fakeSession{pages: []string{earlyPage, pageWithHeaderAndEvent}}
	browser := &fakeBrowser{session: session}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}

	crawler := newCrawler(browser, extractor, sink, nil, newOptions())
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, &usecase.RunHandle{}))

	assert.Equal(t, 0, extractor.callCount())
	assert.Equal(t, 0, session.nextCalls)
}

func TestRun_Events_MaxPagesCapsTheWalk(t *testing.T) {
	t.Parallel()

	// Every page holds an in-window row with a distinct URL and the next
	// control never disables.
	pages := make([]string, 6)
	for i := range pages {
		pages[i] = `<table>
<tr><td>2 October 2025</td><td><a href="/event/p` + string(rune('a'+i)) + `">Event</a></td><td>Room</td></tr>
</table>`
	}
	session := &fakeSession{pages: pages}
	browser := &fakeBrowser{session: session}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}

	opts := newOptions()
	opts.MaxPages = 3
	crawler := newCrawler(browser, extractor, sink, nil, opts)
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, &usecase.RunHandle{}))

	assert.Equal(t, 3, extractor.callCount(), "hard page cap bounds the walk")
}

func TestRun_Events_InWindowRowWithoutLinkIsDropped(t *testing.T) {
	t.Parallel()

	page := `<table>
<tr><td>Thursday, 2nd October 2025</td><td>No link here</td><td>Room 1</td></tr>
</table>`
	browser := &fakeBrowser{session: &fakeSession{pages: []string{page}}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}

	crawler := newCrawler(browser, extractor, sink, nil, newOptions())
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, &usecase.RunHandle{}))

	assert.Equal(t, 0, extractor.callCount())
	assert.Empty(t, sink.appended())
}

func TestRun_Events_ExtractionFailureProducesFallbackRecord(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{session: &fakeSession{pages: []string{pageWithHeaderAndEvent}}}
	extractor := &fakeExtractor{err: repository.ErrMalformedJSON}
	sink := &fakeSink{}

	crawler := newCrawler(browser, extractor, sink, nil, newOptions())
	handle := &usecase.RunHandle{}
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, handle))

	records := sink.appended()
	require.Len(t, records, 1, "fallback record still reaches the sink")
	assert.NotEqual(t, entity.StatusSuccess, records[0].Status)
	assert.Contains(t, records[0].Status, "Failed:")
	for _, f := range testFields {
		assert.Equal(t, entity.Sentinel, records[0].Field(f), "field %s", f)
	}

	status := handle.Snapshot()
	assert.Equal(t, 1, status.ItemsFound)
	assert.Equal(t, 1, status.Failures)
}

func TestRun_Events_VisitedCacheSkipsRecentURLs(t *testing.T) {
	t.Parallel()

	visited := newFakeVisited()
	require.NoError(t, visited.MarkExtracted(context.Background(), "https://example.org/event/ocean", time.Hour))

	browser := &fakeBrowser{session: &fakeSession{pages: []string{pageWithHeaderAndEvent}}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}

	crawler := newCrawler(browser, extractor, sink, visited, newOptions())
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindEvents, false, &usecase.RunHandle{}))
	assert.Equal(t, 0, extractor.callCount(), "recently extracted URL is skipped")

	// A force run drops the cache entry and extracts again.
	browser2 := &fakeBrowser{session: &fakeSession{pages: []string{pageWithHeaderAndEvent}}}
	crawler2 := newCrawler(browser2, extractor, sink, visited, newOptions())
	require.NoError(t, crawler2.Run(context.Background(), entity.RunKindEvents, true, &usecase.RunHandle{}))
	assert.Equal(t, 1, extractor.callCount())
}

func TestRun_Sites_EachConfiguredURLIsProcessed(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{}
	extractor := &fakeExtractor{fields: map[string]string{"Title": "Vendor"}}
	sink := &fakeSink{}

	opts := newOptions()
	opts.SiteURLs = []string{"https://vendor-a.example.org", "vendor-b.example.org"}
	crawler := newCrawler(browser, extractor, sink, nil, opts)

	handle := &usecase.RunHandle{}
	require.NoError(t, crawler.Run(context.Background(), entity.RunKindSites, false, handle))

	assert.Equal(t, []string{
		"https://vendor-a.example.org",
		"https://vendor-b.example.org",
	}, browser.rendered, "bare hostnames get an https scheme")
	assert.Len(t, sink.appended(), 2)
	assert.Equal(t, 2, handle.Snapshot().ItemsFound)
}

func TestRun_Sites_NoURLsConfiguredIsAnError(t *testing.T) {
	t.Parallel()

	crawler := newCrawler(&fakeBrowser{}, &fakeExtractor{}, &fakeSink{}, nil, newOptions())
	err := crawler.Run(context.Background(), entity.RunKindSites, false, &usecase.RunHandle{})
	assert.Error(t, err)
}

func TestRun_UnknownKind(t *testing.T) {
	t.Parallel()

	crawler := newCrawler(&fakeBrowser{}, &fakeExtractor{}, &fakeSink{}, nil, newOptions())
	err := crawler.Run(context.Background(), "nonsense", false, &usecase.RunHandle{})
	assert.Error(t, err)
}
