// Package ledger records agent identity registrations, decision log entries
// and payment schedules as discrete transactions on the settlement ledger
// (Masumi). It is a logging shim, not a consensus client: every call is
// best-effort and the whole package no-ops cleanly when disabled.
package ledger

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/CarbonProof/Platform/internal/freeze"
	"github.com/CarbonProof/Platform/internal/models"
)

// Submitter forwards a transaction to the external settlement system.
type Submitter interface {
	Submit(ctx context.Context, tx models.LedgerTransaction) error
	Close() error
}

// Receipt is the outcome of one ledger call. Recorded=false with a nil
// error is the deliberate degrade-gracefully contract of disabled mode.
type Receipt struct {
	Recorded    bool
	Transaction *models.LedgerTransaction
}

// Ledger builds deterministic transactions and forwards them to a Submitter.
type Ledger struct {
	enabled   bool
	submitter Submitter
	now       func() time.Time
	seq       atomic.Uint64
}

// New constructs a Ledger. A nil submitter is valid: transactions are built
// and returned but forwarded nowhere (local simulation).
func New(enabled bool, submitter Submitter) *Ledger {
	return &Ledger{
		enabled:   enabled,
		submitter: submitter,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source. Test hook.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// RegisterIdentity records that an agent identity participated in a job.
func (l *Ledger) RegisterIdentity(ctx context.Context, agentID string, metadata interface{}) (Receipt, error) {
	return l.record(ctx, agentID, models.TxRegistration, map[string]interface{}{
		"agentId":  agentID,
		"metadata": metadata,
	})
}

// LogDecision records one pipeline decision attributed to an agent.
func (l *Ledger) LogDecision(ctx context.Context, agentID string, decision interface{}) (Receipt, error) {
	return l.record(ctx, agentID, models.TxDecision, map[string]interface{}{
		"agentId":  agentID,
		"decision": decision,
	})
}

// SchedulePayment records a payment schedule entry for an agent. Scheduling
// is logged, not settled; there is no two-phase commit here.
func (l *Ledger) SchedulePayment(ctx context.Context, agentID string, amount float64, metrics WorkMetrics) (Receipt, error) {
	return l.record(ctx, agentID, models.TxPayment, map[string]interface{}{
		"agentId": agentID,
		"amount":  amount,
		"metrics": metrics,
	})
}

func (l *Ledger) record(ctx context.Context, agentID string, kind models.TransactionKind, payload interface{}) (Receipt, error) {
	if !l.enabled {
		return Receipt{Recorded: false}, nil
	}

	ts := l.now()
	// The tx id is a deterministic hash of kind+payload+timestamp. A
	// monotonic sequence number is folded in so identical payloads in the
	// same instant still get distinct ids.
	seq := l.seq.Add(1)
	txID, err := freeze.SHA256Hex(map[string]interface{}{
		"kind":      string(kind),
		"payload":   payload,
		"timestamp": ts.Format(time.RFC3339Nano),
		"seq":       seq,
	})
	if err != nil {
		return Receipt{Recorded: false}, fmt.Errorf("compute tx id: %w", err)
	}

	tx := models.LedgerTransaction{
		AgentID:   agentID,
		Kind:      kind,
		Payload:   payload,
		TxID:      txID,
		Timestamp: ts,
	}

	if l.submitter != nil {
		if err := l.submitter.Submit(ctx, tx); err != nil {
			log.Printf("[ledger] submit %s tx for %s failed: %v", kind, agentID, err)
			return Receipt{Recorded: false, Transaction: &tx}, fmt.Errorf("submit %s transaction: %w", kind, err)
		}
	}
	return Receipt{Recorded: true, Transaction: &tx}, nil
}

// WorkMetrics quantifies one agent's work for payment calculation.
type WorkMetrics struct {
	ItemsProcessed int `json:"itemsProcessed"`
	AnomaliesFound int `json:"anomaliesFound"`
}

// Agent base rates in credits per completed analysis, plus a per-item bonus.
var baseRates = map[string]float64{
	"vendor":         10,
	"carbon_credits": 8,
	"staff":          12,
	"scope1":         5,
	"scope2":         5,
}

const (
	defaultBaseRate = 5
	perItemBonus    = 0.5
)

// CalculatePayment is a pure lookup-table function: base rate for the agent
// plus a per-unit bonus for items processed. Independent of ledger state.
func CalculatePayment(agentID string, metrics WorkMetrics) float64 {
	rate, ok := baseRates[agentID]
	if !ok {
		rate = defaultBaseRate
	}
	total := rate + float64(metrics.ItemsProcessed)*perItemBonus
	return math.Round(total*100) / 100
}
