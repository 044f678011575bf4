package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RunsTotal          *prometheus.CounterVec
	PagesWalkedTotal   prometheus.Counter
	TableRowsTotal     prometheus.Counter
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	SheetAppendsTotal  *prometheus.CounterVec
)

func Init() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total number of crawl runs.",
		},
		[]string{"kind", "status"}, // status: completed, timeout, failed, rejected
	)

	PagesWalkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_walked_total",
			Help: "Total number of table pages visited by the walker.",
		},
	)

	TableRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_table_rows_total",
			Help: "Total number of table rows examined.",
		},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_extractions_total",
			Help: "Total number of extraction attempts.",
		},
		[]string{"status", "error_type"}, // status: success, failure
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_extraction_duration_seconds",
			Help:    "Duration of extraction-service calls, retries included.",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60},
		},
	)

	SheetAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_sheet_appends_total",
			Help: "Total number of sheet append attempts.",
		},
		[]string{"status"},
	)
}
