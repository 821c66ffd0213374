package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GeminiGenerator is a thin wrapper around the official genai client.
type GeminiGenerator struct {
	cli   *genai.Client
	model string
}

// NewGeminiGenerator constructs a model-backed generator. The API key is
// read from the environment by the genai SDK (GEMINI_API_KEY).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiGenerator{cli: cli, model: model}, nil
}

// Summarize sends the prompt context to the model with small retries and
// returns ErrUnavailable when no usable text comes back.
func (g *GeminiGenerator) Summarize(ctx context.Context, nc Context) (string, error) {
	prompt := buildPrompt(nc)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			nil,
		)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrUnavailable
		} else {
			text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
			if text != "" {
				return text, nil
			}
			lastErr = ErrUnavailable
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func buildPrompt(nc Context) string {
	var b strings.Builder
	b.WriteString("Write a short factual paragraph summarizing this emissions analysis. ")
	b.WriteString("Do not invent numbers; use only the facts given.\n\n")
	fmt.Fprintf(&b, "Subject: %s\nPeriod: %s\n", nc.Subject, nc.Period)
	for _, k := range sortedKeys(nc.Facts) {
		fmt.Fprintf(&b, "%s: %s\n", k, nc.Facts[k])
	}
	if len(nc.Findings) > 0 {
		b.WriteString("Findings:\n")
		for _, f := range nc.Findings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}
