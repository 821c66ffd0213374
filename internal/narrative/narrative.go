// Package narrative generates the human-readable summaries attached to
// agent results and the final report. Generation is always best-effort:
// callers must be able to proceed with a templated fallback when the
// external model is unreachable.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnavailable signals that the text-generation collaborator could not
// produce output. Callers fall back to a template, never fail the job.
var ErrUnavailable = errors.New("text generation unavailable")

// Context is the prompt material for one summary request.
type Context struct {
	Subject  string            // e.g. "vendor emissions for DC-1"
	Period   string            // canonical YYYY-Qn
	Facts    map[string]string // key metrics, already formatted
	Findings []string          // anomaly reasons, may be empty
}

// Generator produces a narrative summary for a prompt context.
type Generator interface {
	Summarize(ctx context.Context, nc Context) (string, error)
}

// TemplateGenerator renders a deterministic fallback narrative from the
// structured facts alone. It is also the degraded path when a model-backed
// generator fails.
type TemplateGenerator struct{}

func (TemplateGenerator) Summarize(_ context.Context, nc Context) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of %s for period %s.", nc.Subject, nc.Period)
	for _, k := range sortedKeys(nc.Facts) {
		fmt.Fprintf(&b, " %s: %s.", k, nc.Facts[k])
	}
	if len(nc.Findings) == 0 {
		b.WriteString(" No anomalies detected.")
	} else {
		fmt.Fprintf(&b, " %d finding(s): %s.", len(nc.Findings), strings.Join(nc.Findings, "; "))
	}
	return b.String(), nil
}

// Summarize calls gen and falls back to the template when gen is nil or
// fails. The returned string is always usable.
func Summarize(ctx context.Context, gen Generator, nc Context) string {
	if gen != nil {
		if text, err := gen.Summarize(ctx, nc); err == nil && text != "" {
			return text
		}
	}
	text, _ := TemplateGenerator{}.Summarize(ctx, nc)
	return text
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
