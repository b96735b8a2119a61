package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pdf2md/internal/api"
	"pdf2md/internal/config"
	"pdf2md/internal/extract"
	"pdf2md/internal/pipeline"
	"pdf2md/internal/plan"
)

func main() {
	godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the extraction service.
	gemini, err := extract.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.Stream)
	if err != nil {
		log.Error("gemini client init failed", "error", err)
		os.Exit(1)
	}

	template := extract.LoadTemplate(cfg.PromptFile)

	stats := extract.NewCallStats(time.Hour)
	invoker := extract.NewInvoker(gemini, template, extract.InvokerConfig{
		MaxAttempts: cfg.MaxAttempts,
		Backoff: extract.Backoff{
			BaseDelay:  cfg.BaseDelay,
			Multiplier: cfg.BackoffMultiplier,
			MaxDelay:   cfg.MaxDelay,
		},
		CallTimeout: cfg.CallTimeout,
	}, stats, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.MaxQueueSize,
		JobTTL:    cfg.JobTTL,
		OutputDir: cfg.OutputDir,
		Convert: pipeline.ConvertOptions{
			Plan: plan.Options{
				ChunkSize: cfg.ChunkSize,
				Threshold: cfg.ChunkThreshold,
				Mode:      cfg.ChunkMode(),
			},
			ContextChars: cfg.ContextChars,
			AttachRaw:    true,
		},
	}, invoker, nil, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, stats, cfg.GeminiModel, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting pdf2md server", "port", cfg.Port, "model", cfg.GeminiModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
