package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"pdf2md/internal/extract"
	"pdf2md/internal/pagesource"
	"pdf2md/internal/pipeline"
	"pdf2md/internal/plan"
)

type convertFlags struct {
	output         string
	apiKey         string
	model          string
	baseURL        string
	promptFile     string
	chunkSize      int
	chunkThreshold int
	contextChars   int
	maxAttempts    int
	workers        int
	noStream       bool
	noChunking     bool
	forceChunking  bool
	verbose        bool
}

func (f *convertFlags) planOptions() plan.Options {
	opts := plan.Options{
		ChunkSize: f.chunkSize,
		Threshold: f.chunkThreshold,
		Mode:      plan.ModeAuto,
	}
	if f.noChunking {
		opts.Mode = plan.ModeOff
	}
	if f.forceChunking {
		opts.Mode = plan.ModeForce
	}
	return opts
}

func runConvert(ctx context.Context, input string, flags *convertFlags) error {
	godotenv.Load()

	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	apiKey := flags.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	gemini, err := extract.NewGeminiService(ctx, apiKey, flags.model, flags.baseURL, !flags.noStream)
	if err != nil {
		return err
	}

	invoker := extract.NewInvoker(gemini, extract.LoadTemplate(flags.promptFile), extract.InvokerConfig{
		MaxAttempts: flags.maxAttempts,
		Backoff:     extract.DefaultBackoff(),
		CallTimeout: 120 * time.Second,
	}, nil, log)

	convOpts := pipeline.ConvertOptions{
		Plan:         flags.planOptions(),
		ContextChars: flags.contextChars,
		AttachRaw:    true,
	}

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return convertDir(ctx, input, flags, invoker, convOpts, log)
	}
	return convertFile(ctx, input, flags.output, invoker, convOpts, log)
}

func convertFile(ctx context.Context, path, output string, invoker pipeline.ChunkInvoker, opts pipeline.ConvertOptions, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	src, err := pagesource.Open(filepath.Base(path), data)
	if err != nil {
		return err
	}

	conv := pipeline.NewConverter(invoker, nil, opts, log, func(p pipeline.Progress) {
		if !p.Failed {
			fmt.Fprintf(os.Stderr, "chunk %d/%d done\n", p.Index+1, p.Total)
		}
	})

	text, convErr := conv.Convert(ctx, src)
	if text == "" && convErr != nil {
		return convErr
	}

	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + ".md"
	}
	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if convErr != nil {
		fmt.Fprintf(os.Stderr, "partial result written to %s\n", output)
		return convErr
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d chars)\n", output, len(text))
	return nil
}

func convertDir(ctx context.Context, dir string, flags *convertFlags, invoker pipeline.ChunkInvoker, opts pipeline.ConvertOptions, log *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read input dir: %w", err)
	}

	outputDir := flags.output
	if outputDir == "" {
		outputDir = dir
	}

	var jobs []*pipeline.Job
	for _, entry := range entries {
		if entry.IsDir() || !pagesource.IsSupportedExtension(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn("skipping unreadable file", "file", entry.Name(), "error", err)
			continue
		}
		id := pipeline.ContentHashHex(data)[:16]
		jobs = append(jobs, pipeline.NewJob(id, entry.Name(), data))
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no convertible documents in %s", dir)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Filename < jobs[j].Filename })

	log.Info("batch conversion", "documents", len(jobs), "workers", flags.workers, "output", outputDir)

	queue := make(chan *pipeline.Job)
	var wg sync.WaitGroup
	workers := flags.workers
	if workers <= 0 {
		workers = 1
	}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := pipeline.NewWorker(invoker, nil, opts, outputDir, log)
			for job := range queue {
				w.Process(ctx, job)
			}
		}()
	}
	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()

	failed := 0
	for _, job := range jobs {
		snap := job.Snapshot()
		switch snap.Status {
		case pipeline.StatusCompleted:
			fmt.Fprintf(os.Stderr, "ok      %s\n", snap.Filename)
		case pipeline.StatusPartial:
			failed++
			fmt.Fprintf(os.Stderr, "partial %s: %s\n", snap.Filename, strings.Join(snap.Progress.Errors, "; "))
		default:
			failed++
			fmt.Fprintf(os.Stderr, "failed  %s: %s\n", snap.Filename, strings.Join(snap.Progress.Errors, "; "))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents did not fully convert", failed, len(jobs))
	}
	return nil
}
