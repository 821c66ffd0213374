package ledger

import (
	"context"
	"sync"

	"github.com/CarbonProof/Platform/internal/models"
)

// MemorySubmitter collects transactions in memory. Used by tests and by
// local runs without a Kafka broker.
type MemorySubmitter struct {
	mu  sync.Mutex
	txs []models.LedgerTransaction

	// FailWith, when set, makes every Submit return this error.
	FailWith error
}

// NewMemorySubmitter returns an empty MemorySubmitter.
func NewMemorySubmitter() *MemorySubmitter {
	return &MemorySubmitter{}
}

func (m *MemorySubmitter) Submit(_ context.Context, tx models.LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.txs = append(m.txs, tx)
	return nil
}

// Transactions returns a copy of everything submitted so far.
func (m *MemorySubmitter) Transactions() []models.LedgerTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LedgerTransaction(nil), m.txs...)
}

func (m *MemorySubmitter) Close() error { return nil }
