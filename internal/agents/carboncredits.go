package agents

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/CarbonProof/Platform/internal/anomaly"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/narrative"
	"github.com/CarbonProof/Platform/internal/store"
	"github.com/CarbonProof/Platform/internal/threshold"
)

// CarbonCreditsAgent compares a facility's annualized credit usage against
// its jurisdiction threshold.
type CarbonCreditsAgent struct {
	Store      store.Store
	Thresholds threshold.Lookup
	Narrative  narrative.Generator
}

func (a *CarbonCreditsAgent) Name() string { return "carbon_credits" }

// quarterlyToAnnual scales one quarter's usage to a yearly figure for
// comparison against annual thresholds.
const quarterlyToAnnual = 4

// Run resolves the facility jurisdiction, annualizes the quarterly credit
// usage and classifies compliance against the looked-up threshold. The
// threshold lookup itself never fails the agent: it falls back to the
// static table.
func (a *CarbonCreditsAgent) Run(ctx context.Context, facilityID, periodStr string) (*models.CarbonCreditAnalysis, error) {
	facility, err := a.Store.GetFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("carbon_credits: fetch facility: %w", err)
	}

	current, err := a.creditTotal(ctx, facilityID, periodStr)
	if err != nil {
		return nil, fmt.Errorf("carbon_credits: fetch report: %w", err)
	}
	var previous *float64
	if prev := previousPeriod(periodStr); prev != "" {
		previous, err = a.creditTotal(ctx, facilityID, prev)
		if err != nil {
			return nil, fmt.Errorf("carbon_credits: fetch previous report: %w", err)
		}
	}
	historical, err := a.Store.ListHistorical(ctx, facilityID, "carbon_credits", historyLimit)
	if err != nil {
		return nil, fmt.Errorf("carbon_credits: fetch history: %w", err)
	}

	var quarterly float64
	if current != nil {
		quarterly = *current
	}
	annualized := quarterly * quarterlyToAnnual

	jurisdiction := ResolveJurisdiction(facility)
	th := threshold.Resolve(ctx, a.Thresholds, jurisdiction)

	status := models.Compliant
	var deficit float64
	if annualized > th.Value {
		status = models.NonCompliant
		deficit = math.Ceil(annualized - th.Value)
	}

	findings := anomaly.Detect(current, previous, historical)
	analysis := &models.CarbonCreditAnalysis{
		AgentResult: models.AgentResult{
			Agent:      a.Name(),
			Category:   "carbon_credits",
			Total:      quarterly,
			Comparison: buildComparison(current, previous, historical),
			Findings:   findings,
		},
		Jurisdiction:    jurisdiction,
		QuarterlyTotal:  quarterly,
		AnnualizedTotal: annualized,
		Threshold:       th.Value,
		ThresholdSource: th.Source,
		Status:          status,
		CreditDeficit:   deficit,
	}
	analysis.Narrative = narrative.Summarize(ctx, a.Narrative, narrative.Context{
		Subject: fmt.Sprintf("carbon credit usage for %s", facilityID),
		Period:  periodStr,
		Facts: map[string]string{
			"jurisdiction": jurisdiction,
			"annualized":   fmt.Sprintf("%.2f credits", annualized),
			"threshold":    fmt.Sprintf("%.2f credits (%s)", th.Value, th.Source),
			"status":       string(status),
		},
		Findings: reasons(findings),
	})
	return analysis, nil
}

func (a *CarbonCreditsAgent) creditTotal(ctx context.Context, facilityID, periodStr string) (*float64, error) {
	report, err := a.Store.GetReport(ctx, facilityID, periodStr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	v, ok := extractCreditTotal(report.Data)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// ResolveJurisdiction derives the regulatory jurisdiction from facility
// metadata: an explicit metadata override first, then the trailing
// ", Country" of the location, then the first token of the facility name.
func ResolveJurisdiction(f *store.Facility) string {
	if f == nil {
		return ""
	}
	if j, ok := f.Metadata["jurisdiction"].(string); ok && j != "" {
		return j
	}
	if idx := strings.LastIndex(f.Location, ","); idx >= 0 {
		if country := strings.TrimSpace(f.Location[idx+1:]); country != "" {
			return country
		}
	}
	fields := strings.Fields(f.Name)
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}
