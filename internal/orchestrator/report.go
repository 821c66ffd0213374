package orchestrator

import (
	"context"
	"fmt"

	"github.com/CarbonProof/Platform/internal/anomaly"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/narrative"
)

// rollUpAnomalies flattens every finding across all agents into one list,
// attributed to the agent (and vendor) that raised it. Order follows the
// same canonical agent order as evidence extraction.
func rollUpAnomalies(c *models.CompositeAnalysis) []models.AgentAnomaly {
	var out []models.AgentAnomaly
	add := func(agent, subject string, findings []anomaly.Finding) {
		for _, f := range findings {
			out = append(out, models.AgentAnomaly{
				Agent:   agent,
				Subject: subject,
				Type:    f.Type,
				Reason:  f.Reason,
			})
		}
	}

	if c.Vendors != nil {
		for _, e := range c.Vendors.Entries {
			add(c.Vendors.Agent, e.VendorID, e.Findings)
		}
		add(c.Vendors.Agent, "", c.Vendors.Findings)
	}
	if c.CarbonCredits != nil {
		add(c.CarbonCredits.Agent, "", c.CarbonCredits.Findings)
	}
	if c.Staff != nil {
		if c.Staff.Scope1 != nil {
			add(c.Staff.Scope1.Agent, "", c.Staff.Scope1.Findings)
		}
		if c.Staff.Scope2 != nil {
			add(c.Staff.Scope2.Agent, "", c.Staff.Scope2.Findings)
		}
		add(c.Staff.Agent, "", c.Staff.Findings)
	}
	return out
}

// buildFinalReport produces the human-facing narrative for the whole job,
// degrading to the template when the collaborator is down.
func (o *Orchestrator) buildFinalReport(ctx context.Context, job models.Job, c *models.CompositeAnalysis, anomalies []models.AgentAnomaly) string {
	facts := map[string]string{}
	if c.Vendors != nil {
		facts["vendor emissions"] = fmt.Sprintf("%.2f tCO2e across %d vendor(s)", c.Vendors.Total, len(c.Vendors.Entries))
	}
	if c.Staff != nil {
		facts["staff emissions"] = fmt.Sprintf("%.2f tCO2e (scope1+scope2)", c.Staff.Total)
	}
	if c.CarbonCredits != nil {
		facts["carbon credits"] = fmt.Sprintf("%s, %.2f annualized against threshold %.2f",
			c.CarbonCredits.Status, c.CarbonCredits.AnnualizedTotal, c.CarbonCredits.Threshold)
	}

	findings := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		findings = append(findings, fmt.Sprintf("%s: %s", a.Agent, a.Reason))
	}

	return narrative.Summarize(ctx, o.narrative, narrative.Context{
		Subject:  fmt.Sprintf("quarterly emissions for %s", job.Datacenter),
		Period:   job.Period,
		Facts:    facts,
		Findings: findings,
	})
}

// buildUIPayload projects the composite into the chart/table/timeline
// shapes the reporting UI renders directly.
func buildUIPayload(c *models.CompositeAnalysis, timeline []models.TimelineEvent) *models.UIPayload {
	ui := &models.UIPayload{
		Tables:   map[string][]string{},
		Timeline: timeline,
	}

	if c.Vendors != nil {
		series := models.ChartSeries{Name: "vendor_emissions"}
		var rows []string
		for _, e := range c.Vendors.Entries {
			v := 0.0
			if e.Comparison.Current != nil {
				v = *e.Comparison.Current
			}
			series.Values = append(series.Values, v)
			rows = append(rows, fmt.Sprintf("%s|%s|%.2f", e.VendorID, e.VendorName, v))
		}
		ui.Charts = append(ui.Charts, series)
		ui.Tables["vendors"] = rows
	}
	if c.Staff != nil {
		scope1, scope2 := 0.0, 0.0
		if c.Staff.Scope1 != nil {
			scope1 = c.Staff.Scope1.Total
		}
		if c.Staff.Scope2 != nil {
			scope2 = c.Staff.Scope2.Total
		}
		ui.Charts = append(ui.Charts, models.ChartSeries{
			Name:   "staff_scopes",
			Values: []float64{scope1, scope2},
		})
		ui.Tables["staff"] = []string{
			fmt.Sprintf("scope1|%.2f", scope1),
			fmt.Sprintf("scope2|%.2f", scope2),
			fmt.Sprintf("total|%.2f", c.Staff.Total),
		}
	}
	if c.CarbonCredits != nil {
		ui.Charts = append(ui.Charts, models.ChartSeries{
			Name:   "carbon_credits",
			Values: []float64{c.CarbonCredits.AnnualizedTotal, c.CarbonCredits.Threshold},
		})
		ui.Tables["carbon_credits"] = []string{
			fmt.Sprintf("jurisdiction|%s", c.CarbonCredits.Jurisdiction),
			fmt.Sprintf("status|%s", c.CarbonCredits.Status),
			fmt.Sprintf("deficit|%.0f", c.CarbonCredits.CreditDeficit),
		}
	}
	return ui
}
