// Package agents implements the domain agents of the analysis pipeline:
// vendor, scope1, scope2, staff (scope composition) and carbon credits.
// Each agent is independently callable, reads from the external store,
// optionally asks the narrative collaborator for prose, and returns a
// structured result. Agents never write.
package agents

import (
	"github.com/CarbonProof/Platform/internal/anomaly"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/period"
)

// historyLimit caps the historical series fetched per category.
const historyLimit = 6

// buildComparison assembles the current/previous/historical view and the
// derived percent change for an agent result.
func buildComparison(current, previous *float64, historical []float64) models.Comparison {
	c := models.Comparison{
		Current:    current,
		Previous:   previous,
		Historical: historical,
	}
	if current != nil && previous != nil {
		change := anomaly.PercentChange(*current, *previous)
		c.PercentChange = &change
	}
	return c
}

// previousPeriod returns the predecessor of a canonical period, or "" when
// the period is not canonical (normalization is best-effort upstream, so
// agents must tolerate this and simply skip previous-period comparisons).
func previousPeriod(p string) string {
	prev, err := period.PreviousQuarter(p)
	if err != nil {
		return ""
	}
	return prev
}

// reasons flattens findings into prompt material for the narrative call.
func reasons(findings []anomaly.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Reason)
	}
	return out
}

func fptr(v float64) *float64 { return &v }
