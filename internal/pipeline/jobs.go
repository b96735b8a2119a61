package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusPlanning   JobStatus = "planning"
	StatusExtracting JobStatus = "extracting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// JobProgress tracks per-chunk conversion progress.
type JobProgress struct {
	TotalChunks int      `json:"total_chunks"`
	ChunksDone  int      `json:"chunks_done"`
	FailedChunk int      `json:"failed_chunk"` // -1 while no chunk has failed
	Errors      []string `json:"errors"`
}

// Job tracks the state of a single document conversion.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Filename string    `json:"filename"`
	Status   JobStatus `json:"status"`

	Progress JobProgress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Convert overrides the pipeline-wide conversion options for this job.
	// Nil means use the defaults the orchestrator was built with.
	Convert *ConvertOptions `json:"-"`

	// Internal: not serialized.
	fileData   []byte
	result     string
	outputPath string
}

// NewJob creates a queued job for one uploaded document.
func NewJob(id, filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Filename:  filename,
		Status:    StatusQueued,
		Progress:  JobProgress{FailedChunk: -1},
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// AddError records an error message.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, err)
	j.UpdatedAt = time.Now()
}

// RecordChunk applies a progress event from the converter.
func (j *Job) RecordChunk(p Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = p.Total
	if p.Failed {
		j.Progress.FailedChunk = p.Index
	} else {
		j.Progress.ChunksDone++
	}
	j.UpdatedAt = time.Now()
}

// SetResult stores the stitched text and the artifact path, if written.
func (j *Job) SetResult(text, outputPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = text
	j.outputPath = outputPath
	j.UpdatedAt = time.Now()
}

// Result returns the stitched markdown (possibly partial) and artifact path.
func (j *Job) Result() (string, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.outputPath
}

// FileData returns the raw uploaded bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// ReleaseFileData drops the uploaded bytes once conversion is done.
func (j *Job) ReleaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string      `json:"job_id"`
	Filename   string      `json:"filename"`
	Status     JobStatus   `json:"status"`
	Progress   JobProgress `json:"progress"`
	OutputPath string      `json:"output_path,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:       j.ID,
		Filename: j.Filename,
		Status:   j.Status,
		Progress: JobProgress{
			TotalChunks: j.Progress.TotalChunks,
			ChunksDone:  j.Progress.ChunksDone,
			FailedChunk: j.Progress.FailedChunk,
			Errors:      errs,
		},
		OutputPath: j.outputPath,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns the hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
