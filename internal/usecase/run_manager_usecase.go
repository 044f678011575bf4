package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/pkg/metrics"
)

var (
	// ErrRunInProgress is returned when a trigger arrives while a run is
	// already active. Triggers are rejected, never queued.
	ErrRunInProgress = errors.New("a crawl run is already in progress")
)

// RunHandle owns the status of one run. The run goroutine is the only
// writer; the control surface reads snapshots.
type RunHandle struct {
	mu     sync.Mutex
	status entity.RunStatus
}

// Update applies a mutation under the handle's lock.
func (h *RunHandle) Update(f func(*entity.RunStatus)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f(&h.status)
}

// Snapshot returns a copy of the current status.
func (h *RunHandle) Snapshot() entity.RunStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// RunManager starts crawl runs and reports their status.
type RunManager interface {
	// Start launches a run of the given kind on a background goroutine.
	// It returns ErrRunInProgress while a run is active.
	Start(kind string, force bool) error

	// Status returns a snapshot of the active run, or of the most recently
	// finished run when idle.
	Status() entity.RunStatus
}

type runManager struct {
	crawler    Crawler
	runTimeout time.Duration
	loc        *time.Location

	mu     sync.Mutex
	active bool
	handle *RunHandle
}

// NewRunManager creates the single-run gatekeeper. runTimeout is the hard
// wall-clock bound on one run; on expiry the run is abandoned and reported
// as timed out, with no partial-result rollback.
func NewRunManager(crawler Crawler, runTimeout time.Duration, loc *time.Location) RunManager {
	return &runManager{
		crawler:    crawler,
		runTimeout: runTimeout,
		loc:        loc,
	}
}

func (m *runManager) Start(kind string, force bool) error {
	if kind != entity.RunKindEvents && kind != entity.RunKindSites {
		return fmt.Errorf("unknown run kind %q", kind)
	}

	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		metrics.RunsTotal.WithLabelValues(kind, "rejected").Inc()
		return ErrRunInProgress
	}

	handle := &RunHandle{}
	now := time.Now().In(m.loc)
	handle.Update(func(s *entity.RunStatus) {
		s.Running = true
		s.Kind = kind
		s.StartedAt = &now
		s.Message = "starting"
	})
	m.active = true
	m.handle = handle
	m.mu.Unlock()

	go m.execute(kind, force, handle)
	return nil
}

func (m *runManager) Status() entity.RunStatus {
	m.mu.Lock()
	handle := m.handle
	m.mu.Unlock()
	if handle == nil {
		return entity.RunStatus{Message: "no runs yet"}
	}
	return handle.Snapshot()
}

// execute drives one run to completion and finalizes its status. It is the
// only writer of the handle for the lifetime of the run.
func (m *runManager) execute(kind string, force bool, handle *RunHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), m.runTimeout)
	defer cancel()

	slog.Info("Crawl run started", "kind", kind, "force", force, "timeout", m.runTimeout)
	err := m.crawler.Run(ctx, kind, force, handle)

	finished := time.Now().In(m.loc)
	status := handle.Snapshot()

	var outcome, message string
	switch {
	case err == nil:
		outcome = "completed"
		message = fmt.Sprintf("completed: %d items, %d failures", status.ItemsFound, status.Failures)
		slog.Info("Crawl run completed", "kind", kind, "items", status.ItemsFound, "failures", status.Failures)
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
		message = fmt.Sprintf("timed out after %s with %d items", m.runTimeout, status.ItemsFound)
		slog.Error("Crawl run timed out", "kind", kind, "timeout", m.runTimeout, "items", status.ItemsFound)
	default:
		outcome = "failed"
		message = "failed: " + err.Error()
		slog.Error("Crawl run failed", "kind", kind, "error", err)
	}
	metrics.RunsTotal.WithLabelValues(kind, outcome).Inc()

	handle.Update(func(s *entity.RunStatus) {
		s.Running = false
		s.FinishedAt = &finished
		s.Message = message
	})

	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
}
