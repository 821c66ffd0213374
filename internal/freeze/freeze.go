// Package freeze computes the tamper-evident integrity record for a
// composite analysis: a canonical SHA-256 of the whole object plus a Merkle
// root over its extracted evidence items. Everything here is pure and
// bit-reproducible so a frozen report can be re-verified later without
// re-running the analysis.
package freeze

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/CarbonProof/Platform/internal/canonical"
	"github.com/CarbonProof/Platform/internal/models"
)

// ErrNoEvidence is returned when a composite result yields no evidence
// items. A report cannot be frozen without at least one.
var ErrNoEvidence = errors.New("no evidence items to freeze")

// SHA256Hex returns the hex SHA-256 of the canonical serialization of v.
func SHA256Hex(v interface{}) (string, error) {
	b, err := canonical.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize for hashing: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ExtractEvidence walks the composite agent outputs in a fixed order:
// vendor entries (array order), carbon credits, scope1, scope2, vendor
// summary, staff summary. The order is part of the hashed material, so it
// must never depend on agent completion order.
func ExtractEvidence(c *models.CompositeAnalysis) ([]models.EvidenceItem, error) {
	if c == nil {
		return nil, ErrNoEvidence
	}
	var items []models.EvidenceItem

	if c.Vendors != nil {
		for _, entry := range c.Vendors.Entries {
			items = append(items, models.EvidenceItem{
				Kind: "vendor_entry",
				Ref:  entry.VendorID,
				Data: entry,
			})
		}
	}
	if c.CarbonCredits != nil {
		items = append(items, models.EvidenceItem{
			Kind: "carbon_credit_summary",
			Ref:  c.CarbonCredits.Agent,
			Data: *c.CarbonCredits,
		})
	}
	if c.Staff != nil {
		if c.Staff.Scope1 != nil {
			items = append(items, models.EvidenceItem{
				Kind: "scope1_breakdown",
				Ref:  c.Staff.Scope1.Agent,
				Data: *c.Staff.Scope1,
			})
		}
		if c.Staff.Scope2 != nil {
			items = append(items, models.EvidenceItem{
				Kind: "scope2_breakdown",
				Ref:  c.Staff.Scope2.Agent,
				Data: *c.Staff.Scope2,
			})
		}
	}
	if c.Vendors != nil {
		items = append(items, models.EvidenceItem{
			Kind: "vendor_summary",
			Ref:  c.Vendors.Agent,
			Data: c.Vendors.AgentResult,
		})
	}
	if c.Staff != nil {
		items = append(items, models.EvidenceItem{
			Kind: "staff_summary",
			Ref:  c.Staff.Agent,
			Data: c.Staff.AgentResult,
		})
	}

	if len(items) == 0 {
		return nil, ErrNoEvidence
	}
	return items, nil
}

// MerkleRoot folds an ordered list of hex hashes into a single root.
// Adjacent elements pair left-to-right; each pair hashes as
// SHA256(leftHex + rightHex) over the concatenated hex strings, not raw
// bytes. An odd element at any level pairs with itself. A single hash is
// its own root. Empty input yields "".
func MerkleRoot(hashes []string) string {
	if len(hashes) == 0 {
		return ""
	}
	level := append([]string(nil), hashes...)
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			sum := sha256.Sum256([]byte(left + right))
			next = append(next, hex.EncodeToString(sum[:]))
		}
		level = next
	}
	return level[0]
}

// Freeze produces the CryptographicProof for a composite analysis:
// report hash, per-evidence hashes, and the Merkle root over them.
func Freeze(c *models.CompositeAnalysis) (*models.CryptographicProof, error) {
	reportHash, err := SHA256Hex(c)
	if err != nil {
		return nil, fmt.Errorf("hash composite result: %w", err)
	}

	items, err := ExtractEvidence(c)
	if err != nil {
		return nil, err
	}

	hashes := make([]string, 0, len(items))
	for i, item := range items {
		h, err := SHA256Hex(item)
		if err != nil {
			return nil, fmt.Errorf("hash evidence item %d (%s): %w", i, item.Kind, err)
		}
		hashes = append(hashes, h)
	}

	return &models.CryptographicProof{
		ReportHash:         reportHash,
		EvidenceHashes:     hashes,
		EvidenceMerkleRoot: MerkleRoot(hashes),
	}, nil
}

// VerifyReportHash recomputes the canonical hash of data and compares it to
// the expected value. Pure; used for later audit.
func VerifyReportHash(data interface{}, expectedHash string) bool {
	h, err := SHA256Hex(data)
	if err != nil {
		return false
	}
	return h == expectedHash
}

// VerifyMerkleRoot rehashes the evidence items in order and checks the
// recomputed root against the expected one.
func VerifyMerkleRoot(items []models.EvidenceItem, expectedRoot string) bool {
	if len(items) == 0 {
		return false
	}
	hashes := make([]string, 0, len(items))
	for _, item := range items {
		h, err := SHA256Hex(item)
		if err != nil {
			return false
		}
		hashes = append(hashes, h)
	}
	return MerkleRoot(hashes) == expectedRoot
}
