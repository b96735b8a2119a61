package pipeline

import (
	"context"
	"log/slog"

	"pdf2md/internal/extract"
	"pdf2md/internal/pagesource"
	"pdf2md/internal/plan"
	"pdf2md/internal/stitch"
)

// ChunkInvoker is the extraction seam the converter drives.
type ChunkInvoker interface {
	Invoke(ctx context.Context, req extract.ChunkRequest) extract.Result
}

// Progress is emitted after each chunk completes, in chunk-index order.
type Progress struct {
	Index  int
	Total  int
	Failed bool
}

// ConvertOptions controls one document's conversion.
type ConvertOptions struct {
	Plan         plan.Options
	ContextChars int  // cap on the carried context snippet
	AttachRaw    bool // send the raw document bytes alongside each prompt
}

// DefaultConvertOptions returns the conversion defaults.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		Plan:         plan.DefaultOptions(),
		ContextChars: stitch.DefaultContextChars,
		AttachRaw:    true,
	}
}

// Converter drives one document through plan → extract → stitch. Chunks are
// processed strictly in order because each request is primed with the
// literal tail of its predecessor's output and every boundary repair depends
// on adjacent results.
type Converter struct {
	invoker  ChunkInvoker
	stitcher *stitch.Stitcher
	opts     ConvertOptions
	log      *slog.Logger
	progress func(Progress)
}

// NewConverter builds a converter. progress may be nil.
func NewConverter(invoker ChunkInvoker, stitcher *stitch.Stitcher, opts ConvertOptions, log *slog.Logger, progress func(Progress)) *Converter {
	if opts.ContextChars <= 0 {
		opts.ContextChars = stitch.DefaultContextChars
	}
	if stitcher == nil {
		stitcher = stitch.New(stitch.DefaultRules()...)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Converter{
		invoker:  invoker,
		stitcher: stitcher,
		opts:     opts,
		log:      log,
		progress: progress,
	}
}

// Convert produces the stitched markdown for one document. On a chunk
// failure the document halts: remaining chunks are not attempted and the
// text stitched so far is returned alongside the error, never discarded.
func (c *Converter) Convert(ctx context.Context, src pagesource.Source) (string, error) {
	specs, err := plan.Pages(src.PageCount(), c.opts.Plan)
	if err != nil {
		return "", err
	}

	var raw []byte
	var mime string
	if c.opts.AttachRaw {
		raw, mime = src.Raw()
	}

	c.log.Info("converting document", "pages", src.PageCount(), "chunks", len(specs))

	fragments := make([]string, 0, len(specs))
	prevContext := ""
	for i, spec := range specs {
		pages, err := src.Pages(spec.Start, spec.End)
		if err != nil {
			c.emit(Progress{Index: i, Total: len(specs), Failed: true})
			return c.stitcher.Stitch(fragments), &extract.ChunkError{Index: i, Err: err}
		}

		res := c.invoker.Invoke(ctx, extract.ChunkRequest{
			Index:          i,
			Spec:           spec,
			Pages:          pages,
			PrevContext:    prevContext,
			Attachment:     raw,
			AttachmentMIME: mime,
		})
		c.emit(Progress{Index: i, Total: len(specs), Failed: res.Failed()})

		if res.Failed() {
			c.log.Error("chunk failed, halting document",
				"chunk", i, "pages", spec, "error", res.Err)
			return c.stitcher.Stitch(fragments), res.Err
		}

		fragments = append(fragments, res.Text)
		// The next chunk's context derives solely from this chunk's
		// finished text.
		prevContext = stitch.TailSnippet(res.Text, c.opts.ContextChars)
	}

	return c.stitcher.Stitch(fragments), nil
}

func (c *Converter) emit(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}
