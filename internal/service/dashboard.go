package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/bedstate"
	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	"github.com/ruokas/lovos-dashboard-sub000/internal/ingest"
	"github.com/ruokas/lovos-dashboard-sub000/internal/notify"
	"github.com/ruokas/lovos-dashboard-sub000/internal/reporting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/repository"
	"github.com/ruokas/lovos-dashboard-sub000/internal/scheduler"
	"github.com/ruokas/lovos-dashboard-sub000/internal/settings"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

var ErrRefreshInFlight = errors.New("refresh already in progress")

const DefaultViewCacheKey = "bedstatus:dashboard:view"

// BedView 床位及其当前通知
type BedView struct {
	domain.BedEntity
	Notifications []domain.NotificationRecord `json:"notifications"`
}

// DisplayTask merged task with its SLA bucket
type DisplayTask struct {
	domain.Task
	SLA alerting.SLAResult `json:"sla"`
}

// DashboardView 一轮刷新的完整结果
type DashboardView struct {
	GeneratedAt    time.Time          `json:"generated_at"`
	Beds           []BedView          `json:"beds"`
	Tasks          []DisplayTask      `json:"tasks"`
	KPI            reporting.Snapshot `json:"kpi"`
	CriticalKeys   []string           `json:"critical_keys"`
	NewCritical    []string           `json:"new_critical,omitempty"`
	TaskSource     string             `json:"task_source"`
	RowSourceError string             `json:"row_source_error,omitempty"`
	TaskLoadError  string             `json:"task_load_error,omitempty"`
}

// Options scheduler overrides and view cache settings
type Options struct {
	LookaheadDays    int
	RetentionMinutes int
	ViewCacheKey     string
	ViewCacheTTL     time.Duration
}

// DashboardService 刷新周期：行数据 → 床位状态 → 告警 → 任务物化/合并 → KPI
type DashboardService struct {
	rows       ingest.RowSource // nil = no spreadsheet source
	beds       *bedstate.Builder
	tracker    *alerting.Tracker
	tasks      *store.TaskStore
	gateway    *repository.TaskGateway
	templates  []domain.RecurringTemplate
	settings   *settings.Provider
	publisher  notify.Publisher
	aggregator *reporting.Aggregator
	kv         store.KV
	opts       Options
	logger     *zap.Logger
	now        func() time.Time

	inFlight atomic.Bool
	lastView atomic.Pointer[DashboardView]
}

// Deps collaborators of DashboardService; RowSource, Publisher and KV may be nil.
type Deps struct {
	RowSource  ingest.RowSource
	Beds       *bedstate.Builder
	Tracker    *alerting.Tracker
	Tasks      *store.TaskStore
	Gateway    *repository.TaskGateway
	Templates  []domain.RecurringTemplate
	Settings   *settings.Provider
	Publisher  notify.Publisher
	Aggregator *reporting.Aggregator
	KV         store.KV
}

func NewDashboardService(deps Deps, opts Options, logger *zap.Logger) *DashboardService {
	if opts.ViewCacheKey == "" {
		opts.ViewCacheKey = DefaultViewCacheKey
	}
	if opts.ViewCacheTTL <= 0 {
		opts.ViewCacheTTL = 10 * time.Minute
	}
	return &DashboardService{
		rows:       deps.RowSource,
		beds:       deps.Beds,
		tracker:    deps.Tracker,
		tasks:      deps.Tasks,
		gateway:    deps.Gateway,
		templates:  deps.Templates,
		settings:   deps.Settings,
		publisher:  deps.Publisher,
		aggregator: deps.Aggregator,
		kv:         deps.KV,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// RefreshOnce runs one full cycle. Concurrent calls return ErrRefreshInFlight.
func (s *DashboardService) RefreshOnce(ctx context.Context) (*DashboardView, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRefreshInFlight
	}
	defer s.inFlight.Store(false)

	now := s.now()
	cfg := s.settings.Get()
	view := &DashboardView{GeneratedAt: now}

	// 1. rows → bed state → critical diff
	if s.rows != nil {
		rows, err := s.rows.FetchRows(ctx)
		if err != nil {
			// 保留上一轮的床位状态和 critical 集合
			view.RowSourceError = err.Error()
			s.logger.Warn("Row source unavailable, keeping previous bed state", zap.Error(err))
		} else {
			s.beds.ApplyRows(rows, now)
			view.NewCritical = s.tracker.Observe(rows)
			s.publishAlert(ctx, view.NewCritical, cfg, now)
		}
	}
	view.CriticalKeys = sortedKeys(s.tracker.Snapshot())

	// 2. persisted tasks → store
	if s.gateway != nil {
		loaded, err := s.gateway.LoadTasks(ctx)
		if err != nil {
			view.TaskLoadError = err.Error()
			s.logger.Warn("Failed to load tasks", zap.Error(err))
		} else if rerr := s.gateway.LastLoadError(); rerr != nil {
			// 远程不可用：保留已有任务，只补充 store 中缺少的本地/最近一次远程任务
			view.TaskLoadError = rerr.Error()
			s.logger.Warn("Remote tasks unavailable, keeping last known tasks", zap.Error(rerr))
			for _, t := range loaded {
				if err := s.tasks.Add(t); err != nil && !errors.Is(err, store.ErrTaskExists) {
					s.logger.Warn("Failed to keep task", zap.String("task_id", t.ID), zap.Error(err))
				}
			}
		} else {
			s.tasks.ReplaceWhere(func(t *domain.Task) bool {
				return t.Source != domain.TaskSourceScheduler
			}, loaded)
		}
		view.TaskSource = s.gateway.LastLoadSource()
	}

	// 3. materialize + prune, then merge
	res, err := scheduler.Materialize(scheduler.MaterializeRequest{
		Store:            s.tasks,
		Templates:        s.templates,
		ReferenceDate:    now,
		LookaheadDays:    s.opts.LookaheadDays,
		RetentionMinutes: s.opts.RetentionMinutes,
	})
	if err != nil {
		return nil, fmt.Errorf("materialize recurring tasks: %w", err)
	}
	if len(res.Created) > 0 || len(res.Pruned) > 0 {
		s.logger.Debug("Recurring tasks materialized",
			zap.Int("created", len(res.Created)),
			zap.Int("updated", res.Updated),
			zap.Int("pruned", len(res.Pruned)),
		)
	}
	view.Tasks = s.displayTasks(store.TaskFilter{}, cfg, now)

	// 4. bed notifications + KPI
	th := cfg.Thresholds()
	for _, bed := range s.beds.Beds() {
		view.Beds = append(view.Beds, BedView{
			BedEntity:     bed,
			Notifications: alerting.CalculateNotifications(bed, th, now),
		})
	}
	view.KPI = s.aggregator.FetchKpiSnapshot(ctx)

	s.lastView.Store(view)
	s.cacheView(ctx, view)
	return view, nil
}

func (s *DashboardService) publishAlert(ctx context.Context, keys []string, cfg settings.Settings, now time.Time) {
	if len(keys) == 0 || s.publisher == nil || !cfg.NotificationsEnabled {
		return
	}
	if err := s.publisher.Publish(ctx, notify.NewAlert(keys, cfg.SoundEnabled, now)); err != nil {
		s.logger.Error("Failed to publish alert", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *DashboardService) displayTasks(f store.TaskFilter, cfg settings.Settings, now time.Time) []DisplayTask {
	merged := scheduler.MergeRecurringTasksForDisplay(s.tasks.Filter(f))
	out := make([]DisplayTask, 0, len(merged))
	for _, t := range merged {
		out = append(out, DisplayTask{
			Task: t,
			SLA:  alerting.ClassifyTaskSlaWithin(t.Status, t.DueAt, now, cfg.SLAThresholdDuration()),
		})
	}
	return out
}

func (s *DashboardService) cacheView(ctx context.Context, view *DashboardView) {
	if s.kv == nil {
		return
	}
	b, err := json.Marshal(view)
	if err != nil {
		s.logger.Warn("Failed to encode dashboard view", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.opts.ViewCacheKey, string(b), s.opts.ViewCacheTTL); err != nil {
		s.logger.Warn("Failed to cache dashboard view", zap.Error(err))
	}
}

// LastView in-memory view, then the cached copy; store.ErrMiss when neither exists.
func (s *DashboardService) LastView(ctx context.Context) (*DashboardView, error) {
	if v := s.lastView.Load(); v != nil {
		return v, nil
	}
	if s.kv == nil {
		return nil, store.ErrMiss
	}
	raw, err := s.kv.Get(ctx, s.opts.ViewCacheKey)
	if err != nil {
		return nil, err
	}
	var view DashboardView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, fmt.Errorf("decode cached dashboard view: %w", err)
	}
	return &view, nil
}

func sortedKeys(set alerting.CriticalSet) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
