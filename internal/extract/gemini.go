package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-3-flash-preview"

// Request is one extraction call: a fully-substituted prompt plus an optional
// raw-document attachment for multimodal grounding.
type Request struct {
	Prompt         string
	Attachment     []byte
	AttachmentMIME string
}

// Service is the external extraction-service contract. Generate returns the
// complete extracted text for one request; streamed responses are accumulated
// before returning so callers only ever see materialized text.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiService calls the Gemini API for page-to-markdown extraction.
type GeminiService struct {
	client *genai.Client
	model  string
	stream bool
}

func NewGeminiService(ctx context.Context, apiKey, model, baseURL string, stream bool) (*GeminiService, error) {
	if apiKey == "" {
		return nil, &FatalError{Kind: KindAuth, Err: errors.New("missing GEMINI_API_KEY")}
	}
	if model == "" {
		model = DefaultModel
	}
	cc := &genai.ClientConfig{APIKey: apiKey}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiService{client: c, model: model, stream: stream}, nil
}

func (g *GeminiService) Generate(ctx context.Context, req Request) (string, error) {
	var parts []*genai.Part
	if len(req.Attachment) > 0 {
		mt := req.AttachmentMIME
		if mt == "" {
			mt = "application/pdf"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mt, Data: req.Attachment},
		})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	if g.stream {
		var sb strings.Builder
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, nil) {
			if err != nil {
				return "", classifyGenAI(err)
			}
			sb.WriteString(resp.Text())
		}
		return sb.String(), nil
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", classifyGenAI(err)
	}
	return res.Text(), nil
}

// classifyGenAI maps Gemini API errors onto the transient/fatal taxonomy.
// Unrecognized errors propagate unchanged and are not retried.
func classifyGenAI(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Kind: KindTimeout, Err: err}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &TransientError{Kind: KindRateLimit, Err: err}
		case apiErr.Code >= 500:
			return &TransientError{Kind: KindUnavailable, Err: err}
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return &FatalError{Kind: KindAuth, Err: err}
		case apiErr.Code == http.StatusBadRequest:
			return &FatalError{Kind: KindBadRequest, Err: err}
		}
	}
	return err
}
