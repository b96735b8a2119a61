package config

import (
	"testing"
	"time"

	"pdf2md/internal/plan"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.ChunkSize != 2 || cfg.ChunkThreshold != 10 {
		t.Errorf("chunking defaults = %d/%d", cfg.ChunkSize, cfg.ChunkThreshold)
	}
	if cfg.Chunking != "auto" {
		t.Errorf("chunking mode = %q", cfg.Chunking)
	}
	if cfg.ContextChars != 500 {
		t.Errorf("context chars = %d", cfg.ContextChars)
	}
	if cfg.MaxAttempts != 3 || cfg.BaseDelay != 2*time.Second || cfg.MaxDelay != 60*time.Second {
		t.Errorf("retry defaults = %d/%s/%s", cfg.MaxAttempts, cfg.BaseDelay, cfg.MaxDelay)
	}
	if !cfg.Stream {
		t.Error("streaming should default on")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "5")
	t.Setenv("CHUNKING", "force")
	t.Setenv("BASE_DELAY", "500ms")
	t.Setenv("BACKOFF_MULTIPLIER", "1.5")
	t.Setenv("STREAM", "false")

	cfg := Load()
	if cfg.ChunkSize != 5 {
		t.Errorf("chunk size = %d", cfg.ChunkSize)
	}
	if cfg.Chunking != "force" {
		t.Errorf("chunking = %q", cfg.Chunking)
	}
	if cfg.BaseDelay != 500*time.Millisecond {
		t.Errorf("base delay = %s", cfg.BaseDelay)
	}
	if cfg.BackoffMultiplier != 1.5 {
		t.Errorf("multiplier = %v", cfg.BackoffMultiplier)
	}
	if cfg.Stream {
		t.Error("STREAM=false not honored")
	}
}

func TestLoad_RejectsNonsenseValues(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "-3")
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("BACKOFF_MULTIPLIER", "0.1")

	cfg := Load()
	if cfg.ChunkSize != 2 {
		t.Errorf("negative chunk size should fall back, got %d", cfg.ChunkSize)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("zero workers should fall back, got %d", cfg.WorkerCount)
	}
	if cfg.BackoffMultiplier != 2 {
		t.Errorf("sub-unit multiplier should fall back, got %v", cfg.BackoffMultiplier)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{APIKey: "k", GeminiAPIKey: "g", Chunking: "auto"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.GeminiAPIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing GEMINI_API_KEY must fail validation")
	}

	cfg.GeminiAPIKey = "g"
	cfg.Chunking = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown chunking mode must fail validation")
	}
}

func TestChunkMode(t *testing.T) {
	cases := map[string]plan.Mode{
		"auto":  plan.ModeAuto,
		"force": plan.ModeForce,
		"off":   plan.ModeOff,
		"":      plan.ModeAuto,
	}
	for in, want := range cases {
		if got := (Config{Chunking: in}).ChunkMode(); got != want {
			t.Errorf("ChunkMode(%q) = %v, want %v", in, got, want)
		}
	}
}
