package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/scraper-service/internal/adapter/chromedp_browser"
	"github.com/user/scraper-service/internal/adapter/gemini"
	"github.com/user/scraper-service/internal/adapter/postgres"
	redis_adapter "github.com/user/scraper-service/internal/adapter/redis"
	"github.com/user/scraper-service/internal/adapter/sheets"
	"github.com/user/scraper-service/internal/dates"
	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/delivery/http/router"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/internal/usecase"
	"github.com/user/scraper-service/pkg/config"
	"github.com/user/scraper-service/pkg/logger"
	"github.com/user/scraper-service/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("Unknown timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// --- Browser ---
	browser := chromedp_browser.New(cfg.PageLoadTimeout, chromedp_browser.DefaultTableOptions())
	defer browser.Close()
	slog.Info("Headless browser allocator ready")

	// --- Extraction service ---
	extractor := gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, loc)
	slog.Info("Extraction client ready", "model", cfg.GeminiModel)

	// --- Sheet sink ---
	sink, err := sheets.NewSink(ctx, cfg.SheetsCredentialsFile, cfg.SpreadsheetID, cfg.WorksheetName, cfg.FieldNames)
	if err != nil {
		slog.Error("Unable to connect to the sheet sink", "error", err)
		os.Exit(1)
	}
	slog.Info("Sheet sink ready", "worksheet", cfg.WorksheetName)

	// --- Optional side channels ---
	var visitedRepo repository.VisitedRepository
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			slog.Error("Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		visitedRepo = redis_adapter.NewVisitedRepo(rdb)
		slog.Info("Redis visited cache established", "addr", cfg.RedisAddr)
	} else {
		slog.Info("Redis visited cache disabled; every run re-extracts")
	}

	var archiveRepo repository.RecordArchiveRepository
	var failedURLRepo repository.FailedURLRepository
	if cfg.PostgresEnabled() {
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL())
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
			slog.Error("Unable to create archive schema", "error", err)
			os.Exit(1)
		}
		archiveRepo = postgres.NewRecordArchiveRepo(dbpool)
		failedURLRepo = postgres.NewFailedURLRepo(dbpool)
		slog.Info("PostgreSQL archive established", "host", cfg.PostgresHost)
	} else {
		slog.Info("PostgreSQL archive disabled")
	}

	// --- Use Cases ---
	crawler := usecase.NewCrawlUseCase(browser, extractor, sink, visitedRepo, archiveRepo, failedURLRepo, usecase.Options{
		EventsURL:    cfg.EventsURL,
		SiteURLs:     cfg.SiteURLs,
		Fields:       cfg.FieldNames,
		Window:       dates.NewWindow(cfg.WindowStart, cfg.WindowEnd),
		DefaultYear:  cfg.DefaultYear,
		MaxPages:     cfg.MaxPages,
		RequestDelay: cfg.RequestDelay,
		VisitedTTL:   cfg.VisitedTTL,
		Location:     loc,
	})
	runManager := usecase.NewRunManager(crawler, cfg.RunTimeout, loc)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(runManager, failedURLRepo)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}
