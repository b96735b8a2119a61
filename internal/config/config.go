package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"pdf2md/internal/plan"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Gemini extraction
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	PromptFile    string
	Stream        bool

	// Chunking
	ChunkSize      int
	ChunkThreshold int
	Chunking       string // auto, force, off
	ContextChars   int

	// Retry
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
	CallTimeout       time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Artifacts
	OutputDir string

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("PDF2MD_API_KEY"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   envOr("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		PromptFile:    os.Getenv("PROMPT_FILE"),
		Stream:        envBool("STREAM", true),

		ChunkSize:      envInt("CHUNK_SIZE", 2),
		ChunkThreshold: envInt("CHUNK_THRESHOLD", 10),
		Chunking:       envOr("CHUNKING", "auto"),
		ContextChars:   envInt("CONTEXT_CHARS", 500),

		MaxAttempts:       envInt("MAX_ATTEMPTS", 3),
		BaseDelay:         envDuration("BASE_DELAY", 2*time.Second),
		BackoffMultiplier: envFloat("BACKOFF_MULTIPLIER", 2),
		MaxDelay:          envDuration("MAX_DELAY", 60*time.Second),
		CallTimeout:       envDuration("CALL_TIMEOUT", 120*time.Second),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		OutputDir: envOr("OUTPUT_DIR", "output"),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2
	}
	if cfg.ChunkThreshold <= 0 {
		cfg.ChunkThreshold = 10
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = 500
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 120 * time.Second
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

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PDF2MD_API_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	switch c.Chunking {
	case "auto", "force", "off":
	default:
		return fmt.Errorf("CHUNKING must be auto, force, or off (got %q)", c.Chunking)
	}
	return nil
}

// ChunkMode maps the CHUNKING setting onto a planner mode.
func (c Config) ChunkMode() plan.Mode {
	switch c.Chunking {
	case "force":
		return plan.ModeForce
	case "off":
		return plan.ModeOff
	default:
		return plan.ModeAuto
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
