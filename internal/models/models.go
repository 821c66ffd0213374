// Package models contains the canonical types shared across the analysis
// pipeline: agent outputs, evidence, proofs, ledger transactions and the job
// result contract consumed by the API and persistence layers.
package models

import (
	"time"

	"github.com/CarbonProof/Platform/internal/anomaly"
)

// Comparison holds the current/previous/historical view an agent computed
// for one emissions category. Pointers distinguish "absent" from zero.
type Comparison struct {
	Current       *float64  `json:"current"`
	Previous      *float64  `json:"previous,omitempty"`
	PercentChange *float64  `json:"percent_change,omitempty"`
	Historical    []float64 `json:"historical,omitempty"`
}

// AgentResult is the structured output every domain agent produces once per
// job. Immutable after return.
type AgentResult struct {
	Agent      string            `json:"agent"`
	Category   string            `json:"category"`
	Total      float64           `json:"total"`
	Comparison Comparison        `json:"comparison"`
	Findings   []anomaly.Finding `json:"findings"`
	Narrative  string            `json:"narrative,omitempty"`
}

// VendorEntry is one vendor's comparison within the vendor agent's output.
type VendorEntry struct {
	VendorID   string            `json:"vendor_id"`
	VendorName string            `json:"vendor_name"`
	Comparison Comparison        `json:"comparison"`
	Findings   []anomaly.Finding `json:"findings"`
}

// VendorAnalysis aggregates all vendor submissions for a (facility, period).
type VendorAnalysis struct {
	AgentResult
	Entries []VendorEntry `json:"entries"`
}

// ComplianceStatus is the carbon-credit classification outcome.
type ComplianceStatus string

const (
	Compliant    ComplianceStatus = "COMPLIANT"
	NonCompliant ComplianceStatus = "NON-COMPLIANT"
)

// CarbonCreditAnalysis is the carbon-credits agent output: quarterly usage
// annualized and compared against the jurisdiction threshold.
type CarbonCreditAnalysis struct {
	AgentResult
	Jurisdiction    string           `json:"jurisdiction"`
	QuarterlyTotal  float64          `json:"quarterly_total"`
	AnnualizedTotal float64          `json:"annualized_total"`
	Threshold       float64          `json:"threshold"`
	ThresholdSource string           `json:"threshold_source"`
	Status          ComplianceStatus `json:"status"`
	CreditDeficit   float64          `json:"credit_deficit"`
}

// StaffAnalysis composes the scope1 and scope2 agent results; Total is their sum.
type StaffAnalysis struct {
	AgentResult
	Scope1 *AgentResult `json:"scope1"`
	Scope2 *AgentResult `json:"scope2"`
}

// CompositeAnalysis is the combined output of the concurrent agent fan-out,
// assembled in canonical order by the orchestrator before freezing.
type CompositeAnalysis struct {
	Vendors       *VendorAnalysis       `json:"vendors"`
	CarbonCredits *CarbonCreditAnalysis `json:"carbon_credits"`
	Staff         *StaffAnalysis        `json:"staff"`
}

// EvidenceItem is one structured fragment of agent output selected, in fixed
// order, for hashing into the Merkle tree. Reordering the evidence list
// changes the Merkle root.
type EvidenceItem struct {
	Kind string      `json:"kind"`
	Ref  string      `json:"ref"`
	Data interface{} `json:"data"`
}

// CryptographicProof is the frozen integrity record for one job. All hashes
// are 64-hex-char SHA-256 strings. Never mutated after creation.
type CryptographicProof struct {
	ReportHash         string   `json:"report_hash"`
	EvidenceHashes     []string `json:"evidence_hashes"`
	EvidenceMerkleRoot string   `json:"evidence_merkle_root"`
}

// TransactionKind distinguishes the three ledger entry categories.
type TransactionKind string

const (
	TxRegistration TransactionKind = "registration"
	TxDecision     TransactionKind = "decision"
	TxPayment      TransactionKind = "payment"
)

// LedgerTransaction is one append-only audit ledger entry.
type LedgerTransaction struct {
	AgentID   string          `json:"agentId"`
	Kind      TransactionKind `json:"kind"`
	Payload   interface{}     `json:"payload"`
	TxID      string          `json:"txId"`
	Timestamp time.Time       `json:"timestamp"`
}

// Job correlates everything belonging to one orchestration run.
type Job struct {
	JobID      string    `json:"jobId"`
	Datacenter string    `json:"datacenter"`
	Period     string    `json:"period"`
	StartedAt  time.Time `json:"startedAt"`
}

// AgentAnomaly is one finding attributed to the agent (and optionally the
// vendor) that raised it, for the cross-agent roll-up.
type AgentAnomaly struct {
	Agent   string             `json:"agent"`
	Subject string             `json:"subject,omitempty"`
	Type    anomaly.FindingType `json:"type"`
	Reason  string             `json:"reason"`
}

// ChartSeries is a named series for the UI chart projection.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// UIPayload carries the chart/table/timeline projections the reporting UI
// renders without recomputing anything.
type UIPayload struct {
	Charts   []ChartSeries       `json:"charts"`
	Tables   map[string][]string `json:"tables"`
	Timeline []TimelineEvent     `json:"timeline"`
}

// TimelineEvent is one pipeline milestone shown on the job timeline.
type TimelineEvent struct {
	Stage string    `json:"stage"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"`
}

// JobResult is the sole output contract a caller depends on. Field names are
// part of the wire contract and must not change.
type JobResult struct {
	JobID               string                `json:"jobId"`
	Datacenter          string                `json:"datacenter"`
	Period              string                `json:"period"`
	VendorsSummary      *VendorAnalysis       `json:"vendors_summary"`
	CarbonCreditSummary *CarbonCreditAnalysis `json:"carbon_credit_summary"`
	StaffSummary        *StaffAnalysis        `json:"staff_summary"`
	Anomalies           []AgentAnomaly        `json:"anomalies"`
	CryptographicProofs *CryptographicProof   `json:"cryptographic_proofs"`
	MasumiTransactions  []LedgerTransaction   `json:"masumi_transactions"`
	FinalReport         string                `json:"final_report"`
	UIPayload           *UIPayload            `json:"ui_payload"`
	GeneratedAt         time.Time             `json:"generatedAt"`
}
