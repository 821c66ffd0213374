package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/CarbonProof/Platform/internal/store"
)

func TestPGGetFacility(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "location", "metadata"}).
		AddRow("DC-1", "North Campus", "Frankfurt, Germany", []byte(`{"tier":"3"}`))
	mock.ExpectQuery("SELECT id, name, location, metadata FROM facilities").
		WithArgs("DC-1").
		WillReturnRows(rows)

	st := store.NewPGStore(db)
	f, err := st.GetFacility(context.Background(), "DC-1")
	assert.NoError(t, err)
	assert.Equal(t, "North Campus", f.Name)
	assert.Equal(t, "Frankfurt, Germany", f.Location)
	assert.Equal(t, "3", f.Metadata["tier"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGGetFacilityNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, location, metadata FROM facilities").
		WithArgs("DC-404").
		WillReturnError(sql.ErrNoRows)

	st := store.NewPGStore(db)
	_, err = st.GetFacility(context.Background(), "DC-404")
	if !errors.Is(err, store.ErrFacilityNotFound) {
		t.Fatalf("expected ErrFacilityNotFound, got %v", err)
	}
}

func TestPGGetReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	submitted := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"facility_id", "period", "data", "submitted_by", "submitted_at"}).
		AddRow("DC-1", "2025-Q1", []byte(`{"scope1_total":50,"scope2_total":60}`), "ops@dc1", submitted)
	mock.ExpectQuery("SELECT facility_id, period, data, submitted_by, submitted_at").
		WithArgs("DC-1", "2025-Q1").
		WillReturnRows(rows)

	st := store.NewPGStore(db)
	r, err := st.GetReport(context.Background(), "DC-1", "2025-Q1")
	assert.NoError(t, err)
	assert.Equal(t, float64(50), r.Data["scope1_total"])
	assert.Equal(t, submitted, r.SubmittedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGListVendorSubmissions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	submitted := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"vendor_id", "vendor_name", "facility_id", "period", "emissions", "data", "submitted_at"}).
		AddRow("v-1", "Acme Cooling", "DC-1", "2025-Q1", 100.0, []byte(`{}`), submitted).
		AddRow("v-2", "Grid Supply Co", "DC-1", "2025-Q1", nil, nil, submitted)
	mock.ExpectQuery("SELECT vendor_id, vendor_name, facility_id, period, emissions, data, submitted_at").
		WithArgs("DC-1", "2025-Q1").
		WillReturnRows(rows)

	st := store.NewPGStore(db)
	subs, err := st.ListVendorSubmissions(context.Background(), "DC-1", "2025-Q1")
	assert.NoError(t, err)
	assert.Len(t, subs, 2)
	assert.Equal(t, 100.0, *subs[0].Emissions)
	assert.Nil(t, subs[1].Emissions)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGListHistorical(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"value"}).AddRow(70.0).AddRow(75.0).AddRow(78.0)
	mock.ExpectQuery("SELECT value").
		WithArgs("DC-1", "scope1", 6).
		WillReturnRows(rows)

	st := store.NewPGStore(db)
	values, err := st.ListHistorical(context.Background(), "DC-1", "scope1", 0)
	assert.NoError(t, err)
	assert.Equal(t, []float64{70, 75, 78}, values)

	assert.NoError(t, mock.ExpectationsWereMet())
}
