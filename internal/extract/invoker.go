package extract

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"pdf2md/internal/plan"
)

// Backoff is the exponential retry wait policy.
type Backoff struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// DefaultBackoff mirrors the service defaults: 2s base, doubling, 60s cap.
func DefaultBackoff() Backoff {
	return Backoff{BaseDelay: 2 * time.Second, Multiplier: 2, MaxDelay: 60 * time.Second}
}

// Delay returns the wait before retrying after the given attempt (1-based):
// BaseDelay * Multiplier^(attempt-1), capped at MaxDelay, plus jitter of up
// to half the base wait to avoid thundering-herd recontact.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(b.BaseDelay) * math.Pow(b.Multiplier, float64(attempt-1)))
	if d <= 0 || d > b.MaxDelay {
		d = b.MaxDelay
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

// ChunkRequest is everything needed to extract one chunk.
type ChunkRequest struct {
	Index          int
	Spec           plan.Spec
	Pages          []string // per-page text for the range, in page order
	PrevContext    string   // tail snippet of the previous chunk's output
	Attachment     []byte   // optional raw document bytes
	AttachmentMIME string
}

// Result is the outcome of one chunk extraction. Immutable once produced.
type Result struct {
	Index int
	Spec  plan.Spec
	Text  string
	Err   error
}

func (r Result) Failed() bool { return r.Err != nil }

// InvokerConfig bounds the retry loop.
type InvokerConfig struct {
	MaxAttempts int
	Backoff     Backoff
	CallTimeout time.Duration // per-attempt; exceeding it is a transient failure
}

// Invoker turns one chunk request into extracted text, wrapping each service
// call in exponential backoff with jitter. Only classified-transient errors
// are retried; fatal errors surface immediately.
type Invoker struct {
	service  Service
	template string
	cfg      InvokerConfig
	stats    *CallStats
	log      *slog.Logger

	// sleep is swapped out in tests so retries need no real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewInvoker(service Service, template string, cfg InvokerConfig, stats *CallStats, log *slog.Logger) *Invoker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff.BaseDelay <= 0 {
		cfg.Backoff = DefaultBackoff()
	}
	if template == "" {
		template = DefaultTemplate
	}
	if log == nil {
		log = slog.Default()
	}
	return &Invoker{
		service:  service,
		template: template,
		cfg:      cfg,
		stats:    stats,
		log:      log,
		sleep:    sleepCtx,
	}
}

// Invoke runs the bounded retry loop for one chunk. It never returns an
// error directly: failures are carried in the Result so the caller decides
// how to surface them.
func (inv *Invoker) Invoke(ctx context.Context, req ChunkRequest) Result {
	content := RenderPages(req.Pages, req.Spec.Start)
	prompt := BuildPrompt(inv.template, req.PrevContext, content)
	call := Request{Prompt: prompt, Attachment: req.Attachment, AttachmentMIME: req.AttachmentMIME}

	var lastErr error
	for attempt := 1; attempt <= inv.cfg.MaxAttempts; attempt++ {
		text, err := inv.generateOnce(ctx, call)
		if err == nil {
			return Result{Index: req.Index, Spec: req.Spec, Text: text}
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
		if attempt == inv.cfg.MaxAttempts {
			break
		}
		delay := inv.cfg.Backoff.Delay(attempt)
		inv.log.Warn("transient extraction error",
			"chunk", req.Index, "attempt", attempt, "delay", delay, "error", err)
		if serr := inv.sleep(ctx, delay); serr != nil {
			lastErr = serr
			break
		}
	}
	return Result{
		Index: req.Index,
		Spec:  req.Spec,
		Err:   &ChunkError{Index: req.Index, Err: lastErr},
	}
}

// generateOnce makes a single service call under the per-attempt timeout.
func (inv *Invoker) generateOnce(ctx context.Context, req Request) (string, error) {
	if inv.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := inv.service.Generate(ctx, req)
	if inv.stats != nil {
		inv.stats.Record(time.Since(start).Milliseconds(), err != nil)
	}

	// A per-attempt deadline counts as transient regardless of how the
	// service surfaced it.
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !IsTransient(err) {
		return "", &TransientError{Kind: KindTimeout, Err: err}
	}
	return text, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
