// Package store is the read-only persistence abstraction the analysis core
// consumes. The core never writes; submissions and history are owned by the
// ingestion side of the platform.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrFacilityNotFound is returned when the facility itself is unknown.
	ErrFacilityNotFound = errors.New("facility not found")
)

// Facility is a reporting site (datacenter). Location typically carries a
// trailing ", Country" suffix used for jurisdiction resolution.
type Facility struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Location string                 `json:"location"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// EmissionsReport is the per-facility record submitted for one period.
// Data is schemaless on purpose: upstream submitters are not guaranteed to
// share a field layout, which is why the scope agents carry a legacy
// field-name fallback.
type EmissionsReport struct {
	FacilityID  string                 `json:"facilityId"`
	Period      string                 `json:"period"`
	Data        map[string]interface{} `json:"data"`
	SubmittedBy string                 `json:"submittedBy"`
	SubmittedAt time.Time              `json:"submittedAt"`
}

// VendorSubmission is one external vendor's emissions figure for a period.
type VendorSubmission struct {
	VendorID    string                 `json:"vendorId"`
	VendorName  string                 `json:"vendorName"`
	FacilityID  string                 `json:"facilityId"`
	Period      string                 `json:"period"`
	Emissions   *float64               `json:"emissions"`
	Data        map[string]interface{} `json:"data,omitempty"`
	SubmittedAt time.Time              `json:"submittedAt"`
}

// Store is the narrow read contract the domain agents depend on.
type Store interface {
	// GetFacility returns the facility or ErrFacilityNotFound.
	GetFacility(ctx context.Context, id string) (*Facility, error)

	// GetReport returns the per-facility record for a period, or ErrNotFound.
	GetReport(ctx context.Context, facilityID, period string) (*EmissionsReport, error)

	// ListVendorSubmissions returns all vendor submissions for (facility, period).
	ListVendorSubmissions(ctx context.Context, facilityID, period string) ([]VendorSubmission, error)

	// ListHistorical returns up to limit historical values for a facility
	// category, most recent first.
	ListHistorical(ctx context.Context, facilityID, category string, limit int) ([]float64, error)

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error
}
