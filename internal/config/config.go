package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Output records
	ExportDir    string
	ExportFormat string

	// Source documents
	DishesDir    string
	SourceAPIURL string
	SourceOwner  string
	SourceRepo   string
	SourceToken  string
	FetchTimeout time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Request rate, requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Analysis
	RelaxedSections bool
	StripMarkup     bool

	LogLevel string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("COOKGEST_API_KEY"),

		ExportDir:    envOr("EXPORT_DIR", "./json"),
		ExportFormat: NormalizeFormat(envOr("EXPORT_FORMAT", "json")),

		DishesDir:    envOr("DISHES_DIR", "./dishes"),
		SourceAPIURL: envOr("SOURCE_API_URL", "https://api.github.com"),
		SourceOwner:  envOr("SOURCE_OWNER", "Anduin2017"),
		SourceRepo:   envOr("SOURCE_REPO", "HowToCook"),
		SourceToken:  os.Getenv("GITHUB_TOKEN"),
		FetchTimeout: envDuration("FETCH_TIMEOUT", 5*time.Minute),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 1<<20), // 1MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		RateLimit: envFloat("RATE_LIMIT", 10),
		RateBurst: envInt("RATE_BURST", 20),

		RelaxedSections: envBool("RELAXED_SECTIONS", false),
		StripMarkup:     envBool("STRIP_MARKUP", false),

		LogLevel: strings.ToLower(envOr("LOG_LEVEL", "info")),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Minute
	}

	return cfg
}

// NormalizeFormat folds case and the "yml" alias so export format names
// validate the same way export.ParseFormat reads them.
func NormalizeFormat(s string) string {
	f := strings.ToLower(strings.TrimSpace(s))
	if f == "yml" {
		return "yaml"
	}
	return f
}

// Validate checks settings shared by every binary.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ExportDir, validation.Required),
		validation.Field(&c.ExportFormat, validation.Required, validation.In("json", "yaml")),
		validation.Field(&c.DishesDir, validation.Required),
		validation.Field(&c.SourceAPIURL, validation.Required),
		validation.Field(&c.SourceOwner, validation.Required),
		validation.Field(&c.SourceRepo, validation.Required),
		validation.Field(&c.WorkerCount, validation.Min(1)),
		validation.Field(&c.MaxQueueSize, validation.Min(1)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateBurst, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// ValidateServer additionally checks what the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.APIKey, validation.Required.Error("COOKGEST_API_KEY is required")),
	)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
