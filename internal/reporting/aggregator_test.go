package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

type stubRemote struct {
	beds  []domain.BedEntity
	tier  string
	err   error
	block bool
}

func (s stubRemote) FetchBeds(ctx context.Context) ([]domain.BedEntity, string, error) {
	if s.block {
		<-ctx.Done()
		return nil, "", ctx.Err()
	}
	return s.beds, s.tier, s.err
}

type stubLocal []domain.BedEntity

func (s stubLocal) Beds() []domain.BedEntity { return s }

func tp(t time.Time) *time.Time { return &t }

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func thresholds() alerting.Thresholds {
	return alerting.Thresholds{CheckIntervalOccupiedHours: 2, RecentlyFreedThresholdHours: 1}
}

func localBeds() stubLocal {
	return stubLocal{
		{BedID: "1", CurrentStatus: domain.BedStatusMessy, OccupancyStatus: domain.OccupancyOccupied, LastCheckedTime: tp(testNow.Add(-3 * time.Hour))},
		{BedID: "2", CurrentStatus: "", OccupancyStatus: domain.OccupancyFree, LastFreedTime: tp(testNow.Add(-30 * time.Minute))},
		{BedID: "3", CurrentStatus: "weird", OccupancyStatus: domain.OccupancyReserved},
		{BedID: "4", CurrentStatus: domain.BedStatusMissingEquipment, OccupancyStatus: domain.OccupancyUnknown},
	}
}

func newTestAggregator(remote RemoteBeds, kv store.KV) *Aggregator {
	a := NewAggregator(remote, localBeds(), thresholds, 50*time.Millisecond, kv, zap.NewNop())
	a.now = func() time.Time { return testNow }
	return a
}

func TestFetchKpiSnapshot_LocalFallbackOnRemoteError(t *testing.T) {
	a := newTestAggregator(stubRemote{err: errors.New("connection refused")}, nil)
	snap := a.FetchKpiSnapshot(context.Background())

	assert.Equal(t, SourceLocal, snap.Source)
	assert.Contains(t, snap.Error, "connection refused")
	assert.Equal(t, Totals{
		Total:            4,
		Clean:            1,
		Messy:            1,
		MissingEquipment: 1,
		OtherProblem:     1,
		Occupied:         1,
		Free:             3,
		NeedingCheck:     1,
		RecentlyFreed:    1,
	}, snap.Totals)
	// messy(1) + regular_check(5) + missing(2) + recently_freed(4)
	assert.Equal(t, NotificationCounts{Total: 4, High: 2, Medium: 0, Low: 2}, snap.Notifications)
}

func TestFetchKpiSnapshot_TimeoutCountsAsUnavailable(t *testing.T) {
	a := newTestAggregator(stubRemote{block: true}, nil)
	snap := a.FetchKpiSnapshot(context.Background())
	assert.Equal(t, SourceLocal, snap.Source)
	assert.Equal(t, 4, snap.Totals.Total)
	assert.NotEmpty(t, snap.Error)
}

func TestFetchKpiSnapshot_Remote(t *testing.T) {
	remote := stubRemote{tier: "legacy", beds: []domain.BedEntity{
		{BedID: "r1", CurrentStatus: domain.BedStatusOther, ProblemDescription: "light", OccupancyStatus: domain.OccupancyOccupied},
	}}
	kv := store.NewMemoryKV()
	a := newTestAggregator(remote, kv)
	snap := a.FetchKpiSnapshot(context.Background())

	assert.Equal(t, SourceRemote, snap.Source)
	assert.Equal(t, "legacy", snap.Tier)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 1, snap.Totals.OtherProblem)
	assert.Equal(t, NotificationCounts{Total: 1, Medium: 1}, snap.Notifications)

	cached, err := a.CachedSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.Totals, cached.Totals)
	assert.True(t, cached.GeneratedAt.Equal(testNow))
}

func TestFetchKpiSnapshot_NoRemoteConfigured(t *testing.T) {
	a := newTestAggregator(nil, nil)
	snap := a.FetchKpiSnapshot(context.Background())
	assert.Equal(t, SourceLocal, snap.Source)
	assert.Empty(t, snap.Error)

	_, err := a.CachedSnapshot(context.Background())
	assert.ErrorIs(t, err, store.ErrMiss)
}
