package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"pdf2md/internal/extract"
	"pdf2md/internal/plan"
)

type fakeSource struct {
	pages []string
	raw   []byte
	mime  string
}

func (f *fakeSource) PageCount() int { return len(f.pages) }

func (f *fakeSource) Pages(start, end int) ([]string, error) {
	if start < 0 || end > len(f.pages) || start >= end {
		return nil, errors.New("bad range")
	}
	return f.pages[start:end], nil
}

func (f *fakeSource) Raw() ([]byte, string) { return f.raw, f.mime }

type fakeInvoker struct {
	mu   sync.Mutex
	reqs []extract.ChunkRequest
	fn   func(req extract.ChunkRequest) extract.Result
}

func (f *fakeInvoker) Invoke(ctx context.Context, req extract.ChunkRequest) extract.Result {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func testOpts(chunkSize int) ConvertOptions {
	return ConvertOptions{
		Plan:         plan.Options{ChunkSize: chunkSize, Threshold: 10, Mode: plan.ModeForce},
		ContextChars: 500,
	}
}

func okInvoker(texts map[int]string) *fakeInvoker {
	return &fakeInvoker{fn: func(req extract.ChunkRequest) extract.Result {
		return extract.Result{Index: req.Index, Spec: req.Spec, Text: texts[req.Index]}
	}}
}

func discardLog() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestConvert_SequentialOrderAndContext(t *testing.T) {
	src := &fakeSource{pages: []string{"p0", "p1", "p2", "p3", "p4", "p5"}}
	inv := okInvoker(map[int]string{
		0: "First chunk output.",
		1: "Second chunk output.",
		2: "Third chunk output.",
	})

	conv := NewConverter(inv, nil, testOpts(2), discardLog(), nil)
	got, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inv.reqs) != 3 {
		t.Fatalf("expected 3 chunk requests, got %d", len(inv.reqs))
	}
	for i, req := range inv.reqs {
		if req.Index != i {
			t.Errorf("request %d has index %d; chunks must run in order", i, req.Index)
		}
	}
	if inv.reqs[0].PrevContext != "" {
		t.Errorf("first chunk must have empty context, got %q", inv.reqs[0].PrevContext)
	}
	if inv.reqs[1].PrevContext != "First chunk output." {
		t.Errorf("second chunk context must be first chunk's text, got %q", inv.reqs[1].PrevContext)
	}
	if inv.reqs[2].PrevContext != "Second chunk output." {
		t.Errorf("third chunk context must be second chunk's text, got %q", inv.reqs[2].PrevContext)
	}

	for _, part := range []string{"First chunk output.", "Second chunk output.", "Third chunk output."} {
		if !strings.Contains(got, part) {
			t.Errorf("stitched output missing %q", part)
		}
	}
}

func TestConvert_ContextSnippetCapped(t *testing.T) {
	src := &fakeSource{pages: []string{"p0", "p1", "p2", "p3"}}
	long := strings.Repeat("a", 800) + "."
	inv := okInvoker(map[int]string{0: long, 1: "Done."})

	opts := testOpts(2)
	opts.ContextChars = 100
	conv := NewConverter(inv, nil, opts, discardLog(), nil)
	if _, err := conv.Convert(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(inv.reqs[1].PrevContext); n != 100 {
		t.Errorf("expected 100-char snippet, got %d", n)
	}
	if !strings.HasSuffix(long, inv.reqs[1].PrevContext) {
		t.Error("snippet must be the trailing slice of the previous output")
	}
}

func TestConvert_HaltsOnFailureKeepingPartial(t *testing.T) {
	src := &fakeSource{pages: []string{"p0", "p1", "p2", "p3", "p4", "p5"}}
	inv := &fakeInvoker{fn: func(req extract.ChunkRequest) extract.Result {
		if req.Index == 1 {
			return extract.Result{Index: 1, Spec: req.Spec,
				Err: &extract.ChunkError{Index: 1, Err: errors.New("exhausted")}}
		}
		return extract.Result{Index: req.Index, Spec: req.Spec,
			Text: fmt.Sprintf("Chunk %d text.", req.Index)}
	}}

	conv := NewConverter(inv, nil, testOpts(2), discardLog(), nil)
	got, err := conv.Convert(context.Background(), src)

	var chunkErr *extract.ChunkError
	if !errors.As(err, &chunkErr) || chunkErr.Index != 1 {
		t.Fatalf("expected ChunkError for chunk 1, got %v", err)
	}
	if got != "Chunk 0 text." {
		t.Errorf("expected partial result with chunk 0 only, got %q", got)
	}
	if len(inv.reqs) != 2 {
		t.Errorf("chunks after the failure must not be attempted, got %d requests", len(inv.reqs))
	}
}

func TestConvert_ProgressEvents(t *testing.T) {
	src := &fakeSource{pages: []string{"p0", "p1", "p2"}}
	inv := okInvoker(map[int]string{0: "A.", 1: "B."})

	var events []Progress
	conv := NewConverter(inv, nil, testOpts(2), discardLog(), func(p Progress) {
		events = append(events, p)
	})
	if _, err := conv.Convert(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 progress events, got %d", len(events))
	}
	for i, e := range events {
		if e.Index != i || e.Total != 2 || e.Failed {
			t.Errorf("event %d = %+v", i, e)
		}
	}
}

func TestConvert_SingleChunkSmallDocument(t *testing.T) {
	src := &fakeSource{pages: []string{"p0", "p1", "p2"}}
	inv := okInvoker(map[int]string{0: "Whole document."})

	opts := ConvertOptions{
		Plan:         plan.Options{ChunkSize: 2, Threshold: 10, Mode: plan.ModeAuto},
		ContextChars: 500,
	}
	conv := NewConverter(inv, nil, opts, discardLog(), nil)
	got, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.reqs) != 1 {
		t.Fatalf("3 pages under threshold 10 must be one chunk, got %d", len(inv.reqs))
	}
	if got != "Whole document." {
		t.Errorf("got %q", got)
	}
}

func TestConvert_InvalidPlanSurfaces(t *testing.T) {
	src := &fakeSource{} // zero pages
	inv := okInvoker(nil)
	conv := NewConverter(inv, nil, testOpts(2), discardLog(), nil)
	_, err := conv.Convert(context.Background(), src)
	if !errors.Is(err, plan.ErrInvalidPlan) {
		t.Errorf("expected ErrInvalidPlan, got %v", err)
	}
	if len(inv.reqs) != 0 {
		t.Error("no extraction should happen for an unplannable document")
	}
}

func TestConvert_AttachmentForwarded(t *testing.T) {
	src := &fakeSource{
		pages: []string{"p0", "p1", "p2", "p3"},
		raw:   []byte("%PDF-1.7"),
		mime:  "application/pdf",
	}
	inv := okInvoker(map[int]string{0: "a.", 1: "b."})

	opts := testOpts(2)
	opts.AttachRaw = true
	conv := NewConverter(inv, nil, opts, discardLog(), nil)
	if _, err := conv.Convert(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, req := range inv.reqs {
		if string(req.Attachment) != "%PDF-1.7" || req.AttachmentMIME != "application/pdf" {
			t.Errorf("request %d missing raw attachment", i)
		}
	}
}

func TestConvert_BoundaryRepairAcrossChunks(t *testing.T) {
	src := &fakeSource{pages: []string{"p0", "p1", "p2", "p3"}}
	inv := okInvoker(map[int]string{
		0: "The total balance due",
		1: "is settled in full.",
	})
	conv := NewConverter(inv, nil, testOpts(2), discardLog(), nil)
	got, err := conv.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "The total balance due is settled in full."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
