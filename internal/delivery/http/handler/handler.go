package handler

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/scraper-service/internal/delivery/http/request"
	"github.com/user/scraper-service/internal/delivery/http/response"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/internal/usecase"
)

//go:embed panel.html
var panelHTML []byte

const failedURLLimit = 50

type Handler struct {
	runs       usecase.RunManager
	failedURLs repository.FailedURLRepository // nil when postgres is disabled
}

func NewHandler(runs usecase.RunManager, failedURLs repository.FailedURLRepository) *Handler {
	return &Handler{
		runs:       runs,
		failedURLs: failedURLs,
	}
}

// HandleIndex serves the control panel page.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(panelHTML)
}

// HandleStartRun triggers a crawl run. Only one run may be active at a
// time; concurrent triggers get 409.
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req request.StartRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Kind == "" {
		req.Kind = entity.RunKindEvents
	}

	if err := h.runs.Start(req.Kind, req.Force); err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, response.StartRunResponse{
				Status:  "already_running",
				Message: err.Error(),
			})
			return
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("run triggered", "kind", req.Kind, "force", req.Force)
	writeJSON(w, http.StatusAccepted, response.StartRunResponse{
		Status:  "started",
		Message: "crawl run started",
	})
}

// HandleRunStatus reports the active run, or the most recent one when idle.
func (h *Handler) HandleRunStatus(w http.ResponseWriter, r *http.Request) {
	status := h.runs.Status()
	writeJSON(w, http.StatusOK, response.RunStatusResponse{
		Running:     status.Running,
		Kind:        status.Kind,
		LastRun:     status.StartedAt,
		FinishedAt:  status.FinishedAt,
		Message:     status.Message,
		ItemsFound:  status.ItemsFound,
		PagesWalked: status.PagesWalked,
		Failures:    status.Failures,
	})
}

// HandleListFailures lists recently failed URLs from the archive.
func (h *Handler) HandleListFailures(w http.ResponseWriter, r *http.Request) {
	if h.failedURLs == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "failure archive is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failures, err := h.failedURLs.FindRecent(ctx, failedURLLimit)
	if err != nil {
		slog.Error("failed to list failed URLs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list failed URLs")
		return
	}

	out := make([]response.FailedURLResponse, 0, len(failures))
	for _, f := range failures {
		out = append(out, response.FailedURLResponse{
			URL:                  f.URL,
			FailureReason:        f.FailureReason,
			HTTPStatusCode:       f.HTTPStatusCode,
			LastAttemptTimestamp: f.LastAttemptTimestamp,
			AttemptCount:         f.AttemptCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
