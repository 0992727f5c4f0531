package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// AppName names the per-user data directory.
const AppName = "itemxtract"

type Config struct {
	Port string

	// Auth
	APIKey string

	// Output
	OutputDir     string
	LogDir        string
	WriteMarkdown bool
	RunDBPath     string

	// SEC EDGAR
	SECUserAgent string
	SECBaseURL   string
	SECDataURL   string
	SECTimeout   time.Duration
	SECRateLimit float64

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Pathstore mirror, disabled when the URL is empty
	PathstoreURL    string
	PathstoreAPIKey string
}

// DataDir is the per-user data directory, e.g. ~/.local/share/itemxtract.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("ITEMXTRACT_API_KEY"),

		OutputDir:     envOr("OUTPUT_DIR", "sec_filings"),
		LogDir:        envOr("LOG_DIR", "logs"),
		WriteMarkdown: envBool("WRITE_MARKDOWN", false),
		RunDBPath:     envOr("RUN_DB_PATH", filepath.Join(DataDir(), "runs.db")),

		SECUserAgent: os.Getenv("SEC_USER_AGENT"),
		SECBaseURL:   envOr("SEC_BASE_URL", "https://www.sec.gov"),
		SECDataURL:   envOr("SEC_DATA_URL", "https://data.sec.gov"),
		SECTimeout:   envDuration("SEC_TIMEOUT", 30*time.Second),
		SECRateLimit: envFloat("SEC_RATE_LIMIT", 10),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.SECTimeout <= 0 {
		cfg.SECTimeout = 30 * time.Second
	}
	if cfg.SECRateLimit <= 0 || cfg.SECRateLimit > 10 {
		cfg.SECRateLimit = 10
	}

	return cfg
}

// Validate checks what every entry point needs.
func (c Config) Validate() error {
	if c.SECUserAgent == "" {
		return fmt.Errorf("SEC_USER_AGENT is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	return nil
}

// ValidateServer adds the HTTP service requirements to Validate.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("ITEMXTRACT_API_KEY is required")
	}
	return nil
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
