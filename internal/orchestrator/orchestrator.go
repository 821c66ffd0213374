// Package orchestrator sequences the four pipeline pillars for one analysis
// job: concurrent domain agents, integrity freeze, ledger logging, and
// report assembly. It owns job identity and top-level error handling.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/CarbonProof/Platform/internal/agents"
	"github.com/CarbonProof/Platform/internal/freeze"
	"github.com/CarbonProof/Platform/internal/ledger"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/narrative"
	"github.com/CarbonProof/Platform/internal/period"
	"github.com/CarbonProof/Platform/internal/store"
	"github.com/CarbonProof/Platform/internal/threshold"
)

// Stage is one step of the pipeline state machine.
type Stage string

const (
	StageStarted         Stage = "STARTED"
	StageAgentsRunning   Stage = "AGENTS_RUNNING"
	StageFrozen          Stage = "FROZEN"
	StageLedgerLogged    Stage = "LEDGER_LOGGED"
	StageReportAssembled Stage = "REPORT_ASSEMBLED"
	StageDone            Stage = "DONE"
	StageFailed          Stage = "FAILED"
)

// StageError identifies the job and the stage a fatal failure occurred in.
type StageError struct {
	JobID      string
	Datacenter string
	Period     string
	Stage      Stage
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("job %s (datacenter=%s period=%s) failed at stage %s: %v",
		e.JobID, e.Datacenter, e.Period, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Config controls orchestration policy.
type Config struct {
	// ContinueOnAgentFailure degrades a job to partial evidence when an
	// agent fails instead of aborting it. Default false: the fan-in
	// requires all three agents.
	ContinueOnAgentFailure bool
}

// Archiver stores the frozen report durably after a successful freeze.
// Archival is best-effort and never fails a job.
type Archiver interface {
	ArchiveReport(ctx context.Context, job models.Job, proof *models.CryptographicProof, composite *models.CompositeAnalysis) (string, error)
}

// Orchestrator runs analysis jobs. All collaborators are injected at
// construction; nothing here holds process-wide mutable state, so multiple
// jobs may run concurrently on one instance.
type Orchestrator struct {
	store     store.Store
	ledger    *ledger.Ledger
	vendor    *agents.VendorAgent
	carbon    *agents.CarbonCreditsAgent
	staff     *agents.StaffAgent
	narrative narrative.Generator
	archiver  Archiver
	cfg       Config
	now       func() time.Time
}

// New wires an orchestrator and its three top-level agents over the shared
// collaborators.
func New(st store.Store, led *ledger.Ledger, thresholds threshold.Lookup, gen narrative.Generator, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:     st,
		ledger:    led,
		vendor:    &agents.VendorAgent{Store: st, Narrative: gen},
		carbon:    &agents.CarbonCreditsAgent{Store: st, Thresholds: thresholds, Narrative: gen},
		staff:     agents.NewStaffAgent(st, gen),
		narrative: gen,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithArchiver attaches a report archiver.
func (o *Orchestrator) WithArchiver(a Archiver) *Orchestrator {
	o.archiver = a
	return o
}

// WithClock overrides the timestamp source. Test hook.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

type agentOutcome struct {
	name   string
	vendor *models.VendorAnalysis
	carbon *models.CarbonCreditAnalysis
	staff  *models.StaffAnalysis
	err    error
}

// Run executes one job end to end and returns the full payload, or a
// StageError identifying where it failed.
func (o *Orchestrator) Run(ctx context.Context, facilityID, rawPeriod string) (*models.JobResult, error) {
	// STARTED: job identity, period normalization, facility resolution.
	job := models.Job{
		JobID:      uuid.New().String(),
		Datacenter: facilityID,
		StartedAt:  o.now(),
	}
	normalized, ok := period.Normalize(rawPeriod)
	if !ok {
		log.Printf("[orchestrator] job %s: period %q is not canonical, proceeding as-is", job.JobID, rawPeriod)
	}
	job.Period = normalized

	fail := func(stage Stage, err error) (*models.JobResult, error) {
		return nil, &StageError{
			JobID:      job.JobID,
			Datacenter: job.Datacenter,
			Period:     job.Period,
			Stage:      stage,
			Err:        err,
		}
	}

	if _, err := o.store.GetFacility(ctx, facilityID); err != nil {
		return fail(StageStarted, err)
	}

	var timeline []models.TimelineEvent
	mark := func(stage Stage, note string) {
		timeline = append(timeline, models.TimelineEvent{Stage: string(stage), At: o.now(), Note: note})
	}
	mark(StageStarted, "job "+job.JobID)

	var txs []models.LedgerTransaction
	record := func(r ledger.Receipt, err error, what string) {
		if err != nil {
			log.Printf("[orchestrator] job %s: ledger %s failed: %v", job.JobID, what, err)
			return
		}
		if r.Recorded && r.Transaction != nil {
			txs = append(txs, *r.Transaction)
		}
	}

	for _, name := range []string{o.vendor.Name(), o.carbon.Name(), o.staff.Name()} {
		r, err := o.ledger.RegisterIdentity(ctx, name, map[string]interface{}{"jobId": job.JobID})
		record(r, err, "identity registration for "+name)
	}

	// AGENTS_RUNNING: bounded fan-out of the three top-level agents. The
	// fan-in waits for all three unless one fails first; in-flight agents
	// are not cancelled, their results are simply discarded.
	mark(StageAgentsRunning, "")
	composite, err := o.runAgents(ctx, job, record)
	if err != nil {
		return fail(StageAgentsRunning, err)
	}

	// FROZEN: canonical hash + Merkle root. A freeze failure degrades the
	// job to proofs=nil instead of aborting it.
	outcome := o.freezeComposite(ctx, job, composite, record)
	mark(StageFrozen, outcome.note())

	// LEDGER_LOGGED: decisions and payment schedules, each best-effort.
	o.logPillarDecisions(ctx, job, composite, outcome, record)
	mark(StageLedgerLogged, "")

	// REPORT_ASSEMBLED: narrative, UI projections, anomaly roll-up.
	anomalies := rollUpAnomalies(composite)
	finalReport := o.buildFinalReport(ctx, job, composite, anomalies)
	ui := buildUIPayload(composite, timeline)
	mark(StageReportAssembled, "")

	return &models.JobResult{
		JobID:               job.JobID,
		Datacenter:          job.Datacenter,
		Period:              job.Period,
		VendorsSummary:      composite.Vendors,
		CarbonCreditSummary: composite.CarbonCredits,
		StaffSummary:        composite.Staff,
		Anomalies:           anomalies,
		CryptographicProofs: outcome.Proof,
		MasumiTransactions:  txs,
		FinalReport:         finalReport,
		UIPayload:           ui,
		GeneratedAt:         o.now(),
	}, nil
}

func (o *Orchestrator) runAgents(ctx context.Context, job models.Job, record func(ledger.Receipt, error, string)) (*models.CompositeAnalysis, error) {
	results := make(chan agentOutcome, 3)

	go func() {
		v, err := o.vendor.Run(ctx, job.Datacenter, job.Period)
		results <- agentOutcome{name: o.vendor.Name(), vendor: v, err: err}
	}()
	go func() {
		c, err := o.carbon.Run(ctx, job.Datacenter, job.Period)
		results <- agentOutcome{name: o.carbon.Name(), carbon: c, err: err}
	}()
	go func() {
		s, err := o.staff.Run(ctx, job.Datacenter, job.Period)
		results <- agentOutcome{name: o.staff.Name(), staff: s, err: err}
	}()

	composite := &models.CompositeAnalysis{}
	for i := 0; i < 3; i++ {
		out := <-results
		if out.err != nil {
			r, lerr := o.ledger.LogDecision(ctx, out.name, map[string]interface{}{
				"event": "analysis_failed",
				"jobId": job.JobID,
				"error": out.err.Error(),
			})
			record(r, lerr, "analysis_failed decision")
			if !o.cfg.ContinueOnAgentFailure {
				return nil, fmt.Errorf("agent %s: %w", out.name, out.err)
			}
			log.Printf("[orchestrator] job %s: agent %s failed, continuing with partial evidence: %v", job.JobID, out.name, out.err)
			continue
		}
		switch {
		case out.vendor != nil:
			composite.Vendors = out.vendor
		case out.carbon != nil:
			composite.CarbonCredits = out.carbon
		case out.staff != nil:
			composite.Staff = out.staff
		}
	}
	return composite, nil
}

// freezeOutcome makes the frozen/skipped distinction explicit instead of
// signalling it through caught errors.
type freezeOutcome struct {
	Proof   *models.CryptographicProof
	Skipped string // non-empty reason when the freeze was skipped
}

func (f freezeOutcome) note() string {
	if f.Skipped != "" {
		return "skipped: " + f.Skipped
	}
	return "merkle root " + f.Proof.EvidenceMerkleRoot
}

func (o *Orchestrator) freezeComposite(ctx context.Context, job models.Job, composite *models.CompositeAnalysis, record func(ledger.Receipt, error, string)) freezeOutcome {
	proof, err := freeze.Freeze(composite)
	if err != nil {
		log.Printf("[orchestrator] job %s: freeze skipped: %v", job.JobID, err)
		r, lerr := o.ledger.LogDecision(ctx, "orchestrator", map[string]interface{}{
			"event": "freeze_skipped",
			"jobId": job.JobID,
			"error": err.Error(),
		})
		record(r, lerr, "freeze_skipped decision")
		return freezeOutcome{Skipped: err.Error()}
	}

	if o.archiver != nil {
		key, err := o.archiver.ArchiveReport(ctx, job, proof, composite)
		if err != nil {
			log.Printf("[orchestrator] job %s: report archive failed: %v", job.JobID, err)
		} else {
			log.Printf("[orchestrator] job %s: frozen report archived at %s", job.JobID, key)
		}
	}
	return freezeOutcome{Proof: proof}
}

func (o *Orchestrator) logPillarDecisions(ctx context.Context, job models.Job, composite *models.CompositeAnalysis, outcome freezeOutcome, record func(ledger.Receipt, error, string)) {
	if outcome.Proof != nil {
		r, err := o.ledger.LogDecision(ctx, "orchestrator", map[string]interface{}{
			"event":      "merkle_generated",
			"jobId":      job.JobID,
			"merkleRoot": outcome.Proof.EvidenceMerkleRoot,
			"reportHash": outcome.Proof.ReportHash,
		})
		record(r, err, "merkle_generated decision")
	}

	r, err := o.ledger.LogDecision(ctx, "orchestrator", map[string]interface{}{
		"event":  "orchestration_completed",
		"jobId":  job.JobID,
		"period": job.Period,
	})
	record(r, err, "orchestration_completed decision")

	for _, p := range paymentPlans(composite) {
		amount := ledger.CalculatePayment(p.agent, p.metrics)
		r, err := o.ledger.SchedulePayment(ctx, p.agent, amount, p.metrics)
		record(r, err, "payment schedule for "+p.agent)
	}
}

type paymentPlan struct {
	agent   string
	metrics ledger.WorkMetrics
}

func paymentPlans(c *models.CompositeAnalysis) []paymentPlan {
	var plans []paymentPlan
	if c.Vendors != nil {
		plans = append(plans, paymentPlan{agent: c.Vendors.Agent, metrics: ledger.WorkMetrics{
			ItemsProcessed: len(c.Vendors.Entries),
			AnomaliesFound: countFindings(c.Vendors),
		}})
	}
	if c.CarbonCredits != nil {
		plans = append(plans, paymentPlan{agent: c.CarbonCredits.Agent, metrics: ledger.WorkMetrics{
			ItemsProcessed: 1,
			AnomaliesFound: len(c.CarbonCredits.Findings),
		}})
	}
	if c.Staff != nil {
		plans = append(plans, paymentPlan{agent: c.Staff.Agent, metrics: ledger.WorkMetrics{
			ItemsProcessed: 2, // scope1 + scope2
			AnomaliesFound: len(c.Staff.Findings),
		}})
	}
	return plans
}

func countFindings(v *models.VendorAnalysis) int {
	n := len(v.Findings)
	for _, e := range v.Entries {
		n += len(e.Findings)
	}
	return n
}
