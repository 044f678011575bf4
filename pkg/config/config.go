package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default column set written to the sheet when SCRAPER_COLUMNS is unset.
var defaultFields = []string{"Scheduled", "Location", "Organizer", "Tags", "Title", "Theme", "Speakers"}

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	// Crawl targets.
	EventsURL string
	SiteURLs  []string

	// Extraction output shape.
	FieldNames []string

	// Scheduling window for the events crawl.
	WindowStart time.Time
	WindowEnd   time.Time
	DefaultYear int

	// Crawl pacing and bounds.
	MaxPages        int
	RequestDelay    time.Duration
	PageLoadTimeout time.Duration
	RunTimeout      time.Duration
	Timezone        string

	// Extraction service.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Sheet sink.
	SheetsCredentialsFile string
	SpreadsheetID         string
	WorksheetName         string

	// Optional cross-run visited cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	VisitedTTL    time.Duration

	// Optional record archive.
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
}

// Load loads configuration from the environment, reading a .env file first
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		EventsURL:  getEnv("EVENTS_URL", "https://unfccc.int/calendar"),
		SiteURLs:   getEnvAsSlice("SCRAPER_URLS"),
		FieldNames: getEnvAsSlice("SCRAPER_COLUMNS"),

		DefaultYear: getEnvAsInt("DEFAULT_YEAR", 2025),

		MaxPages:        getEnvAsInt("MAX_PAGES", 25),
		RequestDelay:    getEnvAsDuration("REQUEST_DELAY_SECONDS", 3) * time.Second,
		PageLoadTimeout: getEnvAsDuration("PAGE_LOAD_TIMEOUT_SECONDS", 60) * time.Second,
		RunTimeout:      getEnvAsDuration("RUN_TIMEOUT_SECONDS", 1800) * time.Second,
		Timezone:        getEnv("TIMEZONE", "Asia/Kolkata"),

		GeminiAPIKey:  getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),

		SheetsCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		WorksheetName:         getEnv("WORKSHEET_NAME", "Events"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		VisitedTTL:    getEnvAsDuration("VISITED_TTL_HOURS", 48) * time.Hour,

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "scraper"),
	}

	if len(cfg.FieldNames) == 0 {
		cfg.FieldNames = defaultFields
	}

	var err error
	cfg.WindowStart, err = getEnvAsDate("WINDOW_START", "2025-11-10")
	if err != nil {
		return nil, err
	}
	cfg.WindowEnd, err = getEnvAsDate("WINDOW_END", "2025-11-21")
	if err != nil {
		return nil, err
	}
	if cfg.WindowEnd.Before(cfg.WindowStart) {
		return nil, fmt.Errorf("config: WINDOW_END %s is before WINDOW_START %s",
			cfg.WindowEnd.Format("2006-01-02"), cfg.WindowStart.Format("2006-01-02"))
	}

	// Missing sink credentials are the one deliberate hard stop: a run that
	// cannot write anywhere should never start.
	if cfg.SheetsCredentialsFile == "" {
		return nil, fmt.Errorf("config: GOOGLE_APPLICATION_CREDENTIALS is not set")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("config: SPREADSHEET_ID is not set")
	}

	return cfg, nil
}

// RedisEnabled reports whether the cross-run visited cache is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// PostgresEnabled reports whether the record archive is configured.
func (c *Config) PostgresEnabled() bool { return c.PostgresHost != "" }

// PostgresURL builds the pgx connection string.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}

func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDate(key, fallback string) (time.Time, error) {
	raw := getEnv(key, fallback)
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: %s must be YYYY-MM-DD, got %q: %w", key, raw, err)
	}
	return t, nil
}
