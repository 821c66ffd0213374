package ledger_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/CarbonProof/Platform/internal/ledger"
	"github.com/CarbonProof/Platform/internal/models"
)

var hex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestDisabledLedgerNoOps(t *testing.T) {
	sink := ledger.NewMemorySubmitter()
	l := ledger.New(false, sink)

	r1, err := l.RegisterIdentity(context.Background(), "vendor", map[string]string{"role": "analysis"})
	if err != nil {
		t.Fatalf("RegisterIdentity: %v", err)
	}
	r2, err := l.LogDecision(context.Background(), "vendor", "merkle_generated")
	if err != nil {
		t.Fatalf("LogDecision: %v", err)
	}
	r3, err := l.SchedulePayment(context.Background(), "vendor", 12.5, ledger.WorkMetrics{ItemsProcessed: 3})
	if err != nil {
		t.Fatalf("SchedulePayment: %v", err)
	}

	for i, r := range []ledger.Receipt{r1, r2, r3} {
		if r.Recorded {
			t.Errorf("receipt %d: disabled ledger must not record", i)
		}
	}
	if len(sink.Transactions()) != 0 {
		t.Fatalf("disabled ledger must not submit anything")
	}
}

func TestEnabledLedgerRecordsAndSubmits(t *testing.T) {
	sink := ledger.NewMemorySubmitter()
	l := ledger.New(true, sink)

	r, err := l.LogDecision(context.Background(), "orchestrator", map[string]string{"event": "orchestration_completed"})
	if err != nil {
		t.Fatalf("LogDecision: %v", err)
	}
	if !r.Recorded || r.Transaction == nil {
		t.Fatalf("expected recorded receipt with transaction")
	}
	if !hex64.MatchString(r.Transaction.TxID) {
		t.Fatalf("tx id not 64-hex: %s", r.Transaction.TxID)
	}
	if r.Transaction.Kind != models.TxDecision {
		t.Fatalf("wrong kind: %s", r.Transaction.Kind)
	}

	txs := sink.Transactions()
	if len(txs) != 1 || txs[0].TxID != r.Transaction.TxID {
		t.Fatalf("submitter did not receive the transaction")
	}
}

func TestTxIDsDistinctForIdenticalPayloadsAtSameInstant(t *testing.T) {
	fixed := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)
	l := ledger.New(true, nil).WithClock(func() time.Time { return fixed })

	r1, err := l.LogDecision(context.Background(), "vendor", "same")
	if err != nil {
		t.Fatalf("first LogDecision: %v", err)
	}
	r2, err := l.LogDecision(context.Background(), "vendor", "same")
	if err != nil {
		t.Fatalf("second LogDecision: %v", err)
	}
	if r1.Transaction.TxID == r2.Transaction.TxID {
		t.Fatalf("identical payloads at the same instant must still get distinct tx ids")
	}
}

func TestSubmitFailureIsReportedNotFatal(t *testing.T) {
	sink := ledger.NewMemorySubmitter()
	sink.FailWith = errors.New("broker down")
	l := ledger.New(true, sink)

	r, err := l.RegisterIdentity(context.Background(), "staff", nil)
	if err == nil {
		t.Fatalf("expected submit error")
	}
	if r.Recorded {
		t.Fatalf("failed submit must not count as recorded")
	}
	if r.Transaction == nil {
		t.Fatalf("the built transaction should still be returned for logging")
	}
}

func TestCalculatePayment(t *testing.T) {
	cases := []struct {
		agent   string
		metrics ledger.WorkMetrics
		want    float64
	}{
		{"vendor", ledger.WorkMetrics{ItemsProcessed: 2}, 11},
		{"staff", ledger.WorkMetrics{}, 12},
		{"carbon_credits", ledger.WorkMetrics{ItemsProcessed: 1}, 8.5},
		{"unknown-agent", ledger.WorkMetrics{ItemsProcessed: 4}, 7},
	}
	for _, c := range cases {
		if got := ledger.CalculatePayment(c.agent, c.metrics); got != c.want {
			t.Errorf("CalculatePayment(%s, %+v) = %v, want %v", c.agent, c.metrics, got, c.want)
		}
	}
}

func TestCalculatePaymentIsPure(t *testing.T) {
	m := ledger.WorkMetrics{ItemsProcessed: 3, AnomaliesFound: 1}
	a := ledger.CalculatePayment("vendor", m)
	b := ledger.CalculatePayment("vendor", m)
	if a != b {
		t.Fatalf("payment calculation must be deterministic: %v != %v", a, b)
	}
}
