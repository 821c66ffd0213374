package agents

import (
	"context"
	"fmt"

	"github.com/CarbonProof/Platform/internal/anomaly"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/narrative"
	"github.com/CarbonProof/Platform/internal/store"
)

// StaffAgent is a thin composition: it runs the scope1 and scope2 agents
// concurrently and sums their totals into the staff summary.
type StaffAgent struct {
	Store     store.Store
	Narrative narrative.Generator
	Scope1    *ScopeAgent
	Scope2    *ScopeAgent
}

// NewStaffAgent wires the two scope agents over the same store/narrative.
func NewStaffAgent(st store.Store, gen narrative.Generator) *StaffAgent {
	return &StaffAgent{
		Store:     st,
		Narrative: gen,
		Scope1:    &ScopeAgent{Store: st, Narrative: gen, Scope: 1},
		Scope2:    &ScopeAgent{Store: st, Narrative: gen, Scope: 2},
	}
}

func (a *StaffAgent) Name() string { return "staff" }

type scopeOutcome struct {
	result *models.AgentResult
	err    error
}

// Run fans out to both scope agents and blocks until both return. Either
// scope failing fails the staff agent as a whole.
func (a *StaffAgent) Run(ctx context.Context, facilityID, periodStr string) (*models.StaffAnalysis, error) {
	run := func(agent *ScopeAgent, out chan<- scopeOutcome) {
		r, err := agent.Run(ctx, facilityID, periodStr)
		out <- scopeOutcome{result: r, err: err}
	}

	ch1 := make(chan scopeOutcome, 1)
	ch2 := make(chan scopeOutcome, 1)
	go run(a.Scope1, ch1)
	go run(a.Scope2, ch2)

	o1, o2 := <-ch1, <-ch2
	if o1.err != nil {
		return nil, fmt.Errorf("staff: %w", o1.err)
	}
	if o2.err != nil {
		return nil, fmt.Errorf("staff: %w", o2.err)
	}

	total := o1.result.Total + o2.result.Total
	current := fptr(total)

	// The staff previous value only exists when both scopes had one;
	// otherwise a partial sum would fake a comparison.
	var previous *float64
	if o1.result.Comparison.Previous != nil && o2.result.Comparison.Previous != nil {
		previous = fptr(*o1.result.Comparison.Previous + *o2.result.Comparison.Previous)
	}

	historical, err := a.Store.ListHistorical(ctx, facilityID, "staff", historyLimit)
	if err != nil {
		return nil, fmt.Errorf("staff: fetch history: %w", err)
	}

	findings := anomaly.Detect(current, previous, historical)
	analysis := &models.StaffAnalysis{
		AgentResult: models.AgentResult{
			Agent:      a.Name(),
			Category:   "staff_emissions",
			Total:      total,
			Comparison: buildComparison(current, previous, historical),
			Findings:   findings,
		},
		Scope1: o1.result,
		Scope2: o2.result,
	}
	analysis.Narrative = narrative.Summarize(ctx, a.Narrative, narrative.Context{
		Subject: fmt.Sprintf("staff emissions for %s", facilityID),
		Period:  periodStr,
		Facts: map[string]string{
			"scope1": fmt.Sprintf("%.2f tCO2e", o1.result.Total),
			"scope2": fmt.Sprintf("%.2f tCO2e", o2.result.Total),
			"total":  fmt.Sprintf("%.2f tCO2e", total),
		},
		Findings: reasons(findings),
	})
	return analysis, nil
}
