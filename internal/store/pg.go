package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGStore reads facilities, reports, vendor submissions and history from
// Postgres.
type PGStore struct {
	db *sql.DB
}

// NewPGStore constructs a Postgres-backed store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// Ping verifies connectivity to Postgres.
func (p *PGStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PGStore) GetFacility(ctx context.Context, id string) (*Facility, error) {
	q := `SELECT id, name, location, metadata FROM facilities WHERE id = $1`
	var (
		f        Facility
		metadata []byte
	)
	err := p.db.QueryRowContext(ctx, q, id).Scan(&f.ID, &f.Name, &f.Location, &metadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrFacilityNotFound, id)
		}
		return nil, fmt.Errorf("query facility: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, fmt.Errorf("decode facility metadata: %w", err)
		}
	}
	return &f, nil
}

func (p *PGStore) GetReport(ctx context.Context, facilityID, period string) (*EmissionsReport, error) {
	q := `
		SELECT facility_id, period, data, submitted_by, submitted_at
		FROM emissions_reports
		WHERE facility_id = $1 AND period = $2
	`
	var (
		r    EmissionsReport
		data []byte
	)
	err := p.db.QueryRowContext(ctx, q, facilityID, period).Scan(
		&r.FacilityID, &r.Period, &data, &r.SubmittedBy, &r.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: report %s/%s", ErrNotFound, facilityID, period)
		}
		return nil, fmt.Errorf("query report: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.Data); err != nil {
			return nil, fmt.Errorf("decode report data: %w", err)
		}
	}
	return &r, nil
}

func (p *PGStore) ListVendorSubmissions(ctx context.Context, facilityID, period string) ([]VendorSubmission, error) {
	q := `
		SELECT vendor_id, vendor_name, facility_id, period, emissions, data, submitted_at
		FROM vendor_submissions
		WHERE facility_id = $1 AND period = $2
		ORDER BY vendor_id ASC
	`
	rows, err := p.db.QueryContext(ctx, q, facilityID, period)
	if err != nil {
		return nil, fmt.Errorf("query vendor submissions: %w", err)
	}
	defer rows.Close()

	var out []VendorSubmission
	for rows.Next() {
		var (
			vs        VendorSubmission
			emissions sql.NullFloat64
			data      []byte
		)
		if err := rows.Scan(&vs.VendorID, &vs.VendorName, &vs.FacilityID, &vs.Period, &emissions, &data, &vs.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan vendor submission: %w", err)
		}
		if emissions.Valid {
			v := emissions.Float64
			vs.Emissions = &v
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &vs.Data); err != nil {
				return nil, fmt.Errorf("decode vendor submission data: %w", err)
			}
		}
		out = append(out, vs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor submissions: %w", err)
	}
	return out, nil
}

func (p *PGStore) ListHistorical(ctx context.Context, facilityID, category string, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 6
	}
	q := `
		SELECT value
		FROM emissions_history
		WHERE facility_id = $1 AND category = $2
		ORDER BY period DESC
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, q, facilityID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan history value: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
