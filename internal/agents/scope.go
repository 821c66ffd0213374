package agents

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/CarbonProof/Platform/internal/anomaly"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/narrative"
	"github.com/CarbonProof/Platform/internal/store"
)

// ScopeAgent computes the scope1 or scope2 emissions comparison from the
// per-facility report record.
type ScopeAgent struct {
	Store     store.Store
	Narrative narrative.Generator
	Scope     int // 1 or 2
}

// Name returns the agent identity used in ledger entries and evidence refs.
func (a *ScopeAgent) Name() string {
	return "scope" + strconv.Itoa(a.Scope)
}

// Run extracts the scope total for (facility, period), compares it against
// the previous period and the historical series, and attaches a narrative.
// A missing report degrades to a MISSING_DATA finding; only store faults
// are errors.
func (a *ScopeAgent) Run(ctx context.Context, facilityID, periodStr string) (*models.AgentResult, error) {
	current, err := a.currentTotal(ctx, facilityID, periodStr)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch report: %w", a.Name(), err)
	}

	var previous *float64
	if prev := previousPeriod(periodStr); prev != "" {
		previous, err = a.currentTotal(ctx, facilityID, prev)
		if err != nil {
			return nil, fmt.Errorf("%s: fetch previous report: %w", a.Name(), err)
		}
	}

	historical, err := a.Store.ListHistorical(ctx, facilityID, a.Name(), historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch history: %w", a.Name(), err)
	}

	findings := anomaly.Detect(current, previous, historical)

	var total float64
	if current != nil {
		total = *current
	}
	result := &models.AgentResult{
		Agent:      a.Name(),
		Category:   a.Name(),
		Total:      total,
		Comparison: buildComparison(current, previous, historical),
		Findings:   findings,
	}
	result.Narrative = narrative.Summarize(ctx, a.Narrative, narrative.Context{
		Subject: fmt.Sprintf("%s emissions for %s", a.Name(), facilityID),
		Period:  periodStr,
		Facts: map[string]string{
			"total": fmt.Sprintf("%.2f tCO2e", total),
		},
		Findings: reasons(findings),
	})
	return result, nil
}

// currentTotal returns nil when the period has no report or the record has
// no extractable numeric content.
func (a *ScopeAgent) currentTotal(ctx context.Context, facilityID, periodStr string) (*float64, error) {
	report, err := a.Store.GetReport(ctx, facilityID, periodStr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	v, ok := extractScopeTotal(report.Data, a.Scope)
	if !ok {
		return nil, nil
	}
	return &v, nil
}
