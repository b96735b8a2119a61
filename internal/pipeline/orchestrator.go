package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pdf2md/internal/pagesource"
	"pdf2md/internal/stitch"
)

// Worker converts a single queued document.
type Worker struct {
	invoker   ChunkInvoker
	stitcher  *stitch.Stitcher
	opts      ConvertOptions
	outputDir string
	log       *slog.Logger
}

func NewWorker(invoker ChunkInvoker, stitcher *stitch.Stitcher, opts ConvertOptions, outputDir string, log *slog.Logger) *Worker {
	return &Worker{
		invoker:   invoker,
		stitcher:  stitcher,
		opts:      opts,
		outputDir: outputDir,
		log:       log,
	}
}

// Process runs the full conversion for one job. A failure here never affects
// sibling documents in flight on other workers.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	job.SetStatus(StatusPlanning)
	src, err := pagesource.Open(job.Filename, job.FileData())
	if err != nil {
		log.Error("open document failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed)
		job.ReleaseFileData()
		return
	}

	opts := w.opts
	if job.Convert != nil {
		opts = *job.Convert
	}

	job.SetStatus(StatusExtracting)
	conv := NewConverter(w.invoker, w.stitcher, opts, log, job.RecordChunk)
	text, convErr := conv.Convert(ctx, src)
	job.ReleaseFileData()

	outputPath := ""
	if text != "" && w.outputDir != "" {
		outputPath, err = WriteArtifact(w.outputDir, job.Filename, text)
		if err != nil {
			log.Error("artifact write failed", "error", err)
			job.AddError(fmt.Sprintf("write artifact: %s", err))
			outputPath = ""
		}
	}
	job.SetResult(text, outputPath)

	if convErr != nil {
		job.AddError(convErr.Error())
		if text != "" {
			// Chunks stitched before the failure are preserved and
			// reported, not discarded.
			job.SetStatus(StatusPartial)
		} else {
			job.SetStatus(StatusFailed)
		}
		log.Error("conversion stopped", "error", convErr)
		return
	}

	job.SetStatus(StatusCompleted)
	log.Info("conversion complete", "chars", len(text), "artifact", outputPath)
}

// WriteArtifact writes the stitched markdown next to the input's stem.
func WriteArtifact(dir, inputFilename, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Base(inputFilename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	path := filepath.Join(dir, stem+".md")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// Orchestrator fans queued documents out to a bounded worker pool. Documents
// convert concurrently; chunks within one document never do.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	invoker   ChunkInvoker
	stitcher  *stitch.Stitcher
	opts      ConvertOptions
	outputDir string
	workers   int
	log       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OrchestratorConfig sizes the pool and the job registry.
type OrchestratorConfig struct {
	Workers   int
	QueueSize int
	JobTTL    time.Duration
	OutputDir string
	Convert   ConvertOptions
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg OrchestratorConfig, invoker ChunkInvoker, stitcher *stitch.Stitcher, log *slog.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.QueueSize),
		invoker:   invoker,
		stitcher:  stitcher,
		opts:      cfg.Convert,
		outputDir: cfg.OutputDir,
		workers:   cfg.Workers,
		log:       log,
	}
}

// Start launches worker goroutines and the job-store cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.invoker, o.stitcher, o.opts, o.outputDir, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed)
		job.AddError("job queue is full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// OutputDir returns where finished artifacts are written.
func (o *Orchestrator) OutputDir() string {
	return o.outputDir
}

// Options returns the pipeline-wide conversion defaults, used as the base
// for per-job overrides.
func (o *Orchestrator) Options() ConvertOptions {
	return o.opts
}
