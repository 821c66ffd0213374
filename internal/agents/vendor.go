package agents

import (
	"context"
	"fmt"

	"github.com/CarbonProof/Platform/internal/anomaly"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/narrative"
	"github.com/CarbonProof/Platform/internal/store"
)

// VendorAgent aggregates every vendor submission for a (facility, period)
// into one comparison+findings set per vendor plus an aggregate summary.
type VendorAgent struct {
	Store     store.Store
	Narrative narrative.Generator
}

func (a *VendorAgent) Name() string { return "vendor" }

// Run fetches the current and previous submissions, evaluates each vendor
// independently, then evaluates the aggregate total.
func (a *VendorAgent) Run(ctx context.Context, facilityID, periodStr string) (*models.VendorAnalysis, error) {
	subs, err := a.Store.ListVendorSubmissions(ctx, facilityID, periodStr)
	if err != nil {
		return nil, fmt.Errorf("vendor: list submissions: %w", err)
	}

	prevByVendor := map[string]*float64{}
	if prev := previousPeriod(periodStr); prev != "" {
		prevSubs, err := a.Store.ListVendorSubmissions(ctx, facilityID, prev)
		if err != nil {
			return nil, fmt.Errorf("vendor: list previous submissions: %w", err)
		}
		for _, s := range prevSubs {
			prevByVendor[s.VendorID] = s.Emissions
		}
	}

	analysis := &models.VendorAnalysis{
		AgentResult: models.AgentResult{
			Agent:    a.Name(),
			Category: "vendor_emissions",
		},
	}

	var (
		total       float64
		prevTotal   float64
		havePrev    bool
		anyFindings []string
	)
	for _, sub := range subs {
		history, err := a.Store.ListHistorical(ctx, facilityID, "vendor:"+sub.VendorID, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("vendor %s: fetch history: %w", sub.VendorID, err)
		}
		previous := prevByVendor[sub.VendorID]
		findings := anomaly.Detect(sub.Emissions, previous, history)

		analysis.Entries = append(analysis.Entries, models.VendorEntry{
			VendorID:   sub.VendorID,
			VendorName: sub.VendorName,
			Comparison: buildComparison(sub.Emissions, previous, history),
			Findings:   findings,
		})
		anyFindings = append(anyFindings, reasons(findings)...)

		if sub.Emissions != nil {
			total += *sub.Emissions
		}
		if previous != nil {
			prevTotal += *previous
			havePrev = true
		}
	}

	analysis.Total = total
	if len(subs) > 0 {
		var prevPtr *float64
		if havePrev {
			prevPtr = &prevTotal
		}
		aggHistory, err := a.Store.ListHistorical(ctx, facilityID, "vendor_total", historyLimit)
		if err != nil {
			return nil, fmt.Errorf("vendor: fetch aggregate history: %w", err)
		}
		analysis.Comparison = buildComparison(fptr(total), prevPtr, aggHistory)
		analysis.Findings = anomaly.Detect(fptr(total), prevPtr, aggHistory)
	} else {
		// No submissions at all: the aggregate itself is missing data.
		analysis.Comparison = buildComparison(nil, nil, nil)
		analysis.Findings = anomaly.Detect(nil, nil, nil)
	}

	analysis.Narrative = narrative.Summarize(ctx, a.Narrative, narrative.Context{
		Subject: fmt.Sprintf("vendor emissions for %s", facilityID),
		Period:  periodStr,
		Facts: map[string]string{
			"vendors": fmt.Sprintf("%d", len(subs)),
			"total":   fmt.Sprintf("%.2f tCO2e", total),
		},
		Findings: anyFindings,
	})
	return analysis, nil
}
