package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	"github.com/ruokas/lovos-dashboard-sub000/internal/repository"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

const DefaultCacheKey = "bedstatus:kpi:snapshot"

// RemoteBeds aggregated bed rows from the remote store; repository.BedStatsRepository implements it.
type RemoteBeds interface {
	FetchBeds(ctx context.Context) ([]domain.BedEntity, string, error)
}

// LocalBeds in-memory bed state; bedstate.Builder implements it.
type LocalBeds interface {
	Beds() []domain.BedEntity
}

// Aggregator 报表聚合：先远程，失败回退本地
type Aggregator struct {
	remote     RemoteBeds // nil = local only
	local      LocalBeds
	thresholds func() alerting.Thresholds
	timeout    time.Duration

	kv       store.KV
	cacheKey string
	cacheTTL time.Duration

	logger *zap.Logger
	now    func() time.Time
}

// NewAggregator kv may be nil (no snapshot cache).
func NewAggregator(remote RemoteBeds, local LocalBeds, thresholds func() alerting.Thresholds, timeout time.Duration, kv store.KV, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		remote:     remote,
		local:      local,
		thresholds: thresholds,
		timeout:    timeout,
		kv:         kv,
		cacheKey:   DefaultCacheKey,
		cacheTTL:   10 * time.Minute,
		logger:     logger,
		now:        time.Now,
	}
}

// FetchKpiSnapshot never fails: remote errors (including timeouts and schema incompatibility)
// produce a local snapshot carrying the error text.
func (a *Aggregator) FetchKpiSnapshot(ctx context.Context) Snapshot {
	now := a.now()
	th := a.thresholds()

	var (
		beds   []domain.BedEntity
		snap   = Snapshot{Source: SourceLocal, GeneratedAt: now}
		remote bool
	)
	if a.remote != nil {
		rctx, cancel := ctx, context.CancelFunc(func() {})
		if a.timeout > 0 {
			rctx, cancel = context.WithTimeout(ctx, a.timeout)
		}
		rb, tier, err := a.remote.FetchBeds(rctx)
		cancel()
		if err == nil {
			beds, remote = rb, true
			snap.Source = SourceRemote
			snap.Tier = tier
		} else {
			snap.Error = err.Error()
			a.logger.Warn("Remote KPI query failed, using local bed state",
				zap.Bool("schema_incompatible", errors.Is(err, repository.ErrSchemaIncompatible)),
				zap.Error(err),
			)
		}
	}
	if !remote && a.local != nil {
		beds = a.local.Beds()
	}

	snap.Totals = ComputeTotals(beds, th, now)
	snap.Notifications = CountNotifications(beds, th, now)
	a.cache(ctx, snap)
	return snap
}

func (a *Aggregator) cache(ctx context.Context, snap Snapshot) {
	if a.kv == nil {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := a.kv.Set(ctx, a.cacheKey, string(b), a.cacheTTL); err != nil {
		a.logger.Warn("Failed to cache KPI snapshot", zap.Error(err))
	}
}

// CachedSnapshot last snapshot written by FetchKpiSnapshot.
func (a *Aggregator) CachedSnapshot(ctx context.Context) (Snapshot, error) {
	if a.kv == nil {
		return Snapshot{}, store.ErrMiss
	}
	raw, err := a.kv.Get(ctx, a.cacheKey)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return snap, nil
}
