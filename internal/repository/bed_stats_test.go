package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

var bedStatColumns = []string{
	"bed_id", "label", "status", "occupancy_status", "priority",
	"last_checked_at", "last_occupied_at", "last_freed_at", "problem_description",
}

func TestIsSchemaMismatch(t *testing.T) {
	assert.True(t, IsSchemaMismatch(&pq.Error{Code: "42703"}))
	assert.True(t, IsSchemaMismatch(fmt.Errorf("wrapped: %w", &pq.Error{Code: "42P01"})))
	assert.False(t, IsSchemaMismatch(&pq.Error{Code: "23505"}))
	assert.False(t, IsSchemaMismatch(errors.New("column does not exist")))
	assert.False(t, IsSchemaMismatch(nil))
}

func TestBedStatsRepository_FallsBackThroughTiers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	checked := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM bed_status_overview`).WillReturnError(&pq.Error{Code: "42703", Message: `column "priority" does not exist`})
	mock.ExpectQuery(`FROM bed_status_overview`).WillReturnRows(sqlmock.NewRows(bedStatColumns).
		AddRow("b1", "Bed 1", "messy", "occupied", nil, checked, nil, nil, "").
		AddRow("b2", "Bed 2", "", "", nil, nil, nil, nil, ""))

	repo := NewBedStatsRepository(db, nil, zap.NewNop())
	beds, tier, err := repo.FetchBeds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reduced", tier)
	require.Len(t, beds, 2)
	assert.Equal(t, domain.BedStatusMessy, beds[0].CurrentStatus)
	assert.Equal(t, domain.OccupancyOccupied, beds[0].OccupancyStatus)
	require.NotNil(t, beds[0].LastCheckedTime)
	assert.Equal(t, domain.BedStatusClean, beds[1].CurrentStatus)
	assert.Equal(t, domain.OccupancyUnknown, beds[1].OccupancyStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBedStatsRepository_AllTiersIncompatible(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM bed_status_overview`).WillReturnError(&pq.Error{Code: "42P01"})
	mock.ExpectQuery(`FROM bed_status_overview`).WillReturnError(&pq.Error{Code: "42P01"})
	mock.ExpectQuery(`FROM bed_status`).WillReturnError(&pq.Error{Code: "42703"})

	repo := NewBedStatsRepository(db, nil, zap.NewNop())
	_, _, err = repo.FetchBeds(context.Background())
	assert.ErrorIs(t, err, ErrSchemaIncompatible)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBedStatsRepository_OtherErrorStops(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM bed_status_overview`).WillReturnError(errors.New("network down"))

	repo := NewBedStatsRepository(db, nil, zap.NewNop())
	_, tier, err := repo.FetchBeds(context.Background())
	require.Error(t, err)
	assert.Equal(t, "full", tier)
	assert.NotErrorIs(t, err, ErrSchemaIncompatible)
	assert.NoError(t, mock.ExpectationsWereMet())
}
