package usecase_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeSession struct {
	pages     []string
	idx       int
	nextCalls int
	closed    bool
}

func (s *fakeSession) PageHTML(context.Context) (string, error) {
	return s.pages[s.idx], nil
}

func (s *fakeSession) NextPage(context.Context) (bool, error) {
	s.nextCalls++
	if s.idx+1 >= len(s.pages) {
		return false, nil
	}
	s.idx++
	return true, nil
}

func (s *fakeSession) Close() { s.closed = true }

type fakeBrowser struct {
	session   *fakeSession
	rendered  []string
	renderErr error
}

func (b *fakeBrowser) RenderPage(_ context.Context, url string) (*entity.PageContent, error) {
	b.rendered = append(b.rendered, url)
	if b.renderErr != nil {
		return nil, b.renderErr
	}
	return &entity.PageContent{Title: "Page", Text: "rendered text", HTTPStatusCode: 200}, nil
}

func (b *fakeBrowser) OpenTable(context.Context, string) (repository.TableSession, error) {
	if b.session == nil {
		return nil, errors.New("no table session configured")
	}
	return b.session, nil
}

type fakeExtractor struct {
	mu      sync.Mutex
	calls   []string
	err     error
	fields  map[string]string
}

func (e *fakeExtractor) Extract(_ context.Context, pageURL string, _ *entity.PageContent, fields []string) (*entity.ExtractedRecord, error) {
	e.mu.Lock()
	e.calls = append(e.calls, pageURL)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	values := make(map[string]string, len(fields))
	for k, v := range e.fields {
		values[k] = v
	}
	return &entity.ExtractedRecord{
		SourceURL: pageURL,
		ScrapedAt: time.Now().UTC(),
		Status:    entity.StatusSuccess,
		Fields:    values,
	}, nil
}

func (e *fakeExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fakeSink struct {
	mu        sync.Mutex
	headerOps int
	records   []*entity.ExtractedRecord
	summaries []*entity.RunSummary
	appendErr error
}

func (s *fakeSink) EnsureHeader(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headerOps++
	return nil
}

func (s *fakeSink) Append(_ context.Context, record *entity.ExtractedRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	s.records = append(s.records, record)
	return int64(len(s.records) + 1), nil
}

func (s *fakeSink) AppendSummary(_ context.Context, summary *entity.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

func (s *fakeSink) appended() []*entity.ExtractedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.ExtractedRecord, len(s.records))
	copy(out, s.records)
	return out
}

type fakeVisited struct {
	mu     sync.Mutex
	marked map[string]struct{}
}

func newFakeVisited() *fakeVisited {
	return &fakeVisited{marked: make(map[string]struct{})}
}

func (v *fakeVisited) MarkExtracted(_ context.Context, url string, _ time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.marked[url] = struct{}{}
	return nil
}

func (v *fakeVisited) WasExtracted(_ context.Context, url string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.marked[url]
	return ok, nil
}

func (v *fakeVisited) Forget(_ context.Context, url string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.marked, url)
	return nil
}
