package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu          sync.RWMutex
	facilities  map[string]Facility
	reports     map[string]EmissionsReport    // key: facilityID|period
	submissions map[string][]VendorSubmission // key: facilityID|period
	history     map[string][]float64          // key: facilityID|category, most recent first
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		facilities:  map[string]Facility{},
		reports:     map[string]EmissionsReport{},
		submissions: map[string][]VendorSubmission{},
		history:     map[string][]float64{},
	}
}

func key(a, b string) string { return a + "|" + b }

// AddFacility seeds a facility.
func (m *MemoryStore) AddFacility(f Facility) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facilities[f.ID] = f
}

// AddReport seeds the per-facility record for a period.
func (m *MemoryStore) AddReport(r EmissionsReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key(r.FacilityID, r.Period)] = r
}

// AddVendorSubmission appends a vendor submission for its (facility, period).
func (m *MemoryStore) AddVendorSubmission(vs VendorSubmission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(vs.FacilityID, vs.Period)
	m.submissions[k] = append(m.submissions[k], vs)
}

// SetHistory seeds the historical series for a facility category,
// most recent first.
func (m *MemoryStore) SetHistory(facilityID, category string, values []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[key(facilityID, category)] = append([]float64(nil), values...)
}

func (m *MemoryStore) GetFacility(ctx context.Context, id string) (*Facility, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.facilities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFacilityNotFound, id)
	}
	out := f
	return &out, nil
}

func (m *MemoryStore) GetReport(ctx context.Context, facilityID, period string) (*EmissionsReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[key(facilityID, period)]
	if !ok {
		return nil, fmt.Errorf("%w: report %s/%s", ErrNotFound, facilityID, period)
	}
	out := r
	return &out, nil
}

func (m *MemoryStore) ListVendorSubmissions(ctx context.Context, facilityID, period string) ([]VendorSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]VendorSubmission(nil), m.submissions[key(facilityID, period)]...), nil
}

func (m *MemoryStore) ListHistorical(ctx context.Context, facilityID, category string, limit int) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := m.history[key(facilityID, category)]
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	return append([]float64(nil), values...), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
