package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/settings"
)

// Start 轮询刷新，间隔取自 settings.autoRefreshInterval，设置变更时重置 ticker
func (s *DashboardService) Start(ctx context.Context) error {
	intervalCh := make(chan time.Duration, 1)
	unsubscribe := s.settings.Subscribe(intervalListener(intervalCh))
	defer unsubscribe()

	interval := s.settings.Get().RefreshInterval()
	if interval <= 0 {
		interval = settings.Defaults().RefreshInterval()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting dashboard polling", zap.Duration("interval", interval))

	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case next := <-intervalCh:
			if next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
				s.logger.Info("Polling interval changed", zap.Duration("interval", interval))
			}
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// intervalListener 只保留最新的间隔，从不阻塞 Update 调用方
func intervalListener(ch chan time.Duration) func(settings.Settings) {
	return func(next settings.Settings) {
		select {
		case ch <- next.RefreshInterval():
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next.RefreshInterval():
		default:
		}
	}
}

func (s *DashboardService) refresh(ctx context.Context) {
	view, err := s.RefreshOnce(ctx)
	if err != nil {
		if errors.Is(err, ErrRefreshInFlight) {
			s.logger.Debug("Skipping tick, refresh still running")
			return
		}
		s.logger.Error("Dashboard refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug("Dashboard refreshed",
		zap.Int("beds", len(view.Beds)),
		zap.Int("tasks", len(view.Tasks)),
		zap.Int("new_critical", len(view.NewCritical)),
		zap.String("kpi_source", view.KPI.Source),
	)
}
