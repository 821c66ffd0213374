package orchestrator_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/CarbonProof/Platform/internal/ledger"
	"github.com/CarbonProof/Platform/internal/models"
	"github.com/CarbonProof/Platform/internal/orchestrator"
	"github.com/CarbonProof/Platform/internal/store"
	"github.com/CarbonProof/Platform/internal/threshold"
)

var hex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func fp(v float64) *float64 { return &v }

func happyStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.AddFacility(store.Facility{ID: "DC-1", Name: "North Campus", Location: "Frankfurt, Germany"})
	st.AddReport(store.EmissionsReport{
		FacilityID: "DC-1",
		Period:     "2025-Q1",
		Data: map[string]interface{}{
			"scope1_total":        50.0,
			"scope2_total":        60.0,
			"carbon_credits_used": 25.0,
		},
	})
	st.AddReport(store.EmissionsReport{
		FacilityID: "DC-1",
		Period:     "2024-Q4",
		Data: map[string]interface{}{
			"scope1_total":        48.0,
			"scope2_total":        58.0,
			"carbon_credits_used": 24.0,
		},
	})
	st.AddVendorSubmission(store.VendorSubmission{
		VendorID: "v-1", VendorName: "Acme Cooling",
		FacilityID: "DC-1", Period: "2025-Q1", Emissions: fp(100),
	})
	st.AddVendorSubmission(store.VendorSubmission{
		VendorID: "v-1", VendorName: "Acme Cooling",
		FacilityID: "DC-1", Period: "2024-Q4", Emissions: fp(80),
	})
	st.SetHistory("DC-1", "vendor:v-1", []float64{78, 75, 70})
	st.SetHistory("DC-1", "scope1", []float64{48, 47, 49})
	st.SetHistory("DC-1", "scope2", []float64{58, 59, 57})
	st.SetHistory("DC-1", "staff", []float64{106, 106, 106})
	return st
}

// vendorFailingStore simulates the external store throwing on vendor lookup.
type vendorFailingStore struct {
	*store.MemoryStore
}

func (s *vendorFailingStore) ListVendorSubmissions(ctx context.Context, facilityID, period string) ([]store.VendorSubmission, error) {
	return nil, errors.New("connection reset by peer")
}

func TestHappyPath(t *testing.T) {
	led := ledger.New(true, ledger.NewMemorySubmitter())
	o := orchestrator.New(happyStore(), led, threshold.StaticTable{}, nil, orchestrator.Config{})

	res, err := o.Run(context.Background(), "DC-1", "2025-Q1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.JobID == "" || res.Datacenter != "DC-1" || res.Period != "2025-Q1" {
		t.Fatalf("job identity wrong: %+v", res)
	}
	if res.CryptographicProofs == nil {
		t.Fatalf("expected cryptographic proofs")
	}
	if !hex64.MatchString(res.CryptographicProofs.EvidenceMerkleRoot) {
		t.Fatalf("merkle root not 64-hex: %s", res.CryptographicProofs.EvidenceMerkleRoot)
	}
	if !hex64.MatchString(res.CryptographicProofs.ReportHash) {
		t.Fatalf("report hash not 64-hex: %s", res.CryptographicProofs.ReportHash)
	}
	if len(res.MasumiTransactions) < 3 {
		t.Fatalf("expected >=3 ledger transactions, got %d", len(res.MasumiTransactions))
	}
	if res.VendorsSummary == nil || len(res.VendorsSummary.Entries) != 1 {
		t.Fatalf("vendor summary missing or wrong: %+v", res.VendorsSummary)
	}
	if res.StaffSummary == nil || res.StaffSummary.Total != 110 {
		t.Fatalf("staff summary missing or wrong: %+v", res.StaffSummary)
	}
	if res.CarbonCreditSummary == nil || res.CarbonCreditSummary.Status != models.Compliant {
		t.Fatalf("carbon credit summary missing or wrong: %+v", res.CarbonCreditSummary)
	}
	for _, a := range res.Anomalies {
		if a.Type == "MISSING_DATA" || a.Type == "NO_BASELINE" {
			t.Fatalf("fully seeded job should not flag %s (%s)", a.Type, a.Reason)
		}
	}
	if res.FinalReport == "" {
		t.Fatalf("final report narrative missing")
	}
	if res.UIPayload == nil || len(res.UIPayload.Charts) == 0 {
		t.Fatalf("ui payload missing")
	}
}

func TestPeriodNormalizedBeforeAgents(t *testing.T) {
	led := ledger.New(false, nil)
	o := orchestrator.New(happyStore(), led, threshold.StaticTable{}, nil, orchestrator.Config{})

	res, err := o.Run(context.Background(), "DC-1", "Q1 2025")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Period != "2025-Q1" {
		t.Fatalf("period not normalized: %s", res.Period)
	}
	if res.StaffSummary == nil || res.StaffSummary.Total != 110 {
		t.Fatalf("agents did not see the canonical period")
	}
}

func TestAgentFailureFailsJob(t *testing.T) {
	st := &vendorFailingStore{MemoryStore: happyStore()}
	led := ledger.New(true, ledger.NewMemorySubmitter())
	o := orchestrator.New(st, led, threshold.StaticTable{}, nil, orchestrator.Config{})

	_, err := o.Run(context.Background(), "DC-1", "2025-Q1")
	if err == nil {
		t.Fatalf("expected job failure")
	}
	var se *orchestrator.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %T: %v", err, err)
	}
	if se.Stage != orchestrator.StageAgentsRunning {
		t.Fatalf("expected failure at AGENTS_RUNNING, got %s", se.Stage)
	}
	if se.JobID == "" || se.Datacenter != "DC-1" {
		t.Fatalf("stage error must identify the job: %+v", se)
	}
}

func TestFacilityNotFoundFailsAtStart(t *testing.T) {
	led := ledger.New(false, nil)
	o := orchestrator.New(store.NewMemoryStore(), led, threshold.StaticTable{}, nil, orchestrator.Config{})

	_, err := o.Run(context.Background(), "DC-404", "2025-Q1")
	var se *orchestrator.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Stage != orchestrator.StageStarted {
		t.Fatalf("expected failure at STARTED, got %s", se.Stage)
	}
	if !errors.Is(err, store.ErrFacilityNotFound) {
		t.Fatalf("expected wrapped ErrFacilityNotFound, got %v", err)
	}
}

func TestLedgerDisabledStillFreezes(t *testing.T) {
	led := ledger.New(false, nil)
	o := orchestrator.New(happyStore(), led, threshold.StaticTable{}, nil, orchestrator.Config{})

	res, err := o.Run(context.Background(), "DC-1", "2025-Q1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.MasumiTransactions) != 0 {
		t.Fatalf("disabled ledger must record nothing, got %d", len(res.MasumiTransactions))
	}
	if res.CryptographicProofs == nil || !hex64.MatchString(res.CryptographicProofs.EvidenceMerkleRoot) {
		t.Fatalf("proofs must be valid with the ledger disabled")
	}
}

func TestContinueOnAgentFailureDegrades(t *testing.T) {
	st := &vendorFailingStore{MemoryStore: happyStore()}
	led := ledger.New(true, ledger.NewMemorySubmitter())
	o := orchestrator.New(st, led, threshold.StaticTable{}, nil, orchestrator.Config{ContinueOnAgentFailure: true})

	res, err := o.Run(context.Background(), "DC-1", "2025-Q1")
	if err != nil {
		t.Fatalf("degrade mode must not fail the job: %v", err)
	}
	if res.VendorsSummary != nil {
		t.Fatalf("failed agent must not contribute a summary")
	}
	if res.StaffSummary == nil || res.CarbonCreditSummary == nil {
		t.Fatalf("surviving agents must still contribute")
	}
	if res.CryptographicProofs == nil {
		t.Fatalf("partial evidence should still freeze")
	}
}

// allFailingStore fails every read after facility resolution.
type allFailingStore struct {
	*store.MemoryStore
}

func (s *allFailingStore) GetReport(context.Context, string, string) (*store.EmissionsReport, error) {
	return nil, errors.New("store down")
}

func (s *allFailingStore) ListVendorSubmissions(context.Context, string, string) ([]store.VendorSubmission, error) {
	return nil, errors.New("store down")
}

func (s *allFailingStore) ListHistorical(context.Context, string, string, int) ([]float64, error) {
	return nil, errors.New("store down")
}

func TestFreezeSkippedWithoutEvidence(t *testing.T) {
	base := store.NewMemoryStore()
	base.AddFacility(store.Facility{ID: "DC-1", Name: "North Campus", Location: "Frankfurt, Germany"})
	st := &allFailingStore{MemoryStore: base}
	led := ledger.New(true, ledger.NewMemorySubmitter())
	o := orchestrator.New(st, led, threshold.StaticTable{}, nil, orchestrator.Config{ContinueOnAgentFailure: true})

	res, err := o.Run(context.Background(), "DC-1", "2025-Q1")
	if err != nil {
		t.Fatalf("freeze failure must degrade, not abort: %v", err)
	}
	if res.CryptographicProofs != nil {
		t.Fatalf("no evidence means no proofs, got %+v", res.CryptographicProofs)
	}
}
