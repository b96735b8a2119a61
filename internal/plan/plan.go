package plan

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan indicates a page count or chunk size that cannot be planned.
var ErrInvalidPlan = errors.New("invalid chunk plan")

// Mode controls whether a document is split into chunks at all.
type Mode int

const (
	// ModeAuto chunks only documents larger than the threshold.
	ModeAuto Mode = iota
	// ModeForce chunks every document regardless of size.
	ModeForce
	// ModeOff converts every document as a single chunk.
	ModeOff
)

// Spec is a half-open page range [Start, End) processed as one request.
type Spec struct {
	Start int // inclusive, 0-based
	End   int // exclusive
}

// Width returns the number of pages covered by the spec.
func (s Spec) Width() int { return s.End - s.Start }

// Options controls chunk planning.
type Options struct {
	ChunkSize int  // pages per chunk
	Threshold int  // auto mode: documents with at most this many pages stay whole
	Mode      Mode
}

// DefaultOptions returns the planner defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize: 2,
		Threshold: 10,
		Mode:      ModeAuto,
	}
}

// Pages partitions a document of n pages into ordered, contiguous,
// non-overlapping specs that cover [0, n) exactly. Every spec is ChunkSize
// pages wide except possibly the last, which holds the remainder.
func Pages(n int, opts Options) ([]Spec, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: page count %d", ErrInvalidPlan, n)
	}
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidPlan, opts.ChunkSize)
	}

	single := opts.Mode == ModeOff ||
		(opts.Mode == ModeAuto && n <= opts.Threshold)
	if single {
		return []Spec{{Start: 0, End: n}}, nil
	}

	count := (n + opts.ChunkSize - 1) / opts.ChunkSize
	specs := make([]Spec, 0, count)
	for start := 0; start < n; start += opts.ChunkSize {
		end := start + opts.ChunkSize
		if end > n {
			end = n
		}
		specs = append(specs, Spec{Start: start, End: end})
	}
	return specs, nil
}
