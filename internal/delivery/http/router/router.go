package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("POST /api/runs", h.HandleStartRun)
	mux.HandleFunc("GET /api/runs/status", h.HandleRunStatus)
	mux.HandleFunc("GET /api/failures", h.HandleListFailures)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Logging(middleware.Metrics(mux))
}
