package service

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/ruokas/lovos-dashboard-sub000/internal/alerting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	"github.com/ruokas/lovos-dashboard-sub000/internal/repository"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

var ErrTitleRequired = errors.New("task title is required")

// DisplayTasks merged tasks with SLA buckets, computed now from the task store.
func (s *DashboardService) DisplayTasks(f store.TaskFilter) []DisplayTask {
	return s.displayTasks(f, s.settings.Get(), s.now())
}

// CreateTask persists through the gateway and then inserts into the store.
// A failed remote write leaves the store untouched.
func (s *DashboardService) CreateTask(ctx context.Context, fields domain.TaskFields, actx domain.ActionContext) (domain.Task, error) {
	if fields.Title == "" {
		return domain.Task{}, ErrTitleRequired
	}
	id, err := s.gateway.SaveTask(ctx, fields, actx)
	if err != nil {
		return domain.Task{}, err
	}
	now := s.now()
	task := domain.NewTask(id, fields, now)
	task.History = []domain.HistoryEntry{{
		ID:          uuid.NewString(),
		Type:        domain.HistoryCreated,
		Status:      task.Status,
		Description: actx.Note,
		Timestamp:   now,
		Actor:       actx.Actor,
	}}
	if _, err := s.tasks.Upsert(task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// UpdateTask applies patch remotely (unless the task is a scheduler occurrence) and then to the store.
func (s *DashboardService) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch, actor string) (domain.Task, bool, error) {
	task, ok := s.tasks.Get(id)
	if !ok {
		return domain.Task{}, false, repository.ErrTaskNotFound
	}
	if task.Source != domain.TaskSourceScheduler {
		if err := s.gateway.UpdateTask(ctx, id, patch); err != nil {
			return domain.Task{}, false, err
		}
	}
	return s.tasks.Update(id, patch.Apply, store.HistoryEvent{Type: domain.HistoryUpdated, Actor: actor})
}

// CompleteTask marks a task completed. A series id resolves to its earliest open occurrence.
// Scheduler occurrences live only in the store and are completed there.
func (s *DashboardService) CompleteTask(ctx context.Context, id string, actx domain.ActionContext) (domain.Task, bool, error) {
	task, ok := s.resolveTask(id)
	if !ok {
		return domain.Task{}, false, repository.ErrTaskNotFound
	}
	if task.Status == domain.TaskStatusCompleted {
		return task, false, nil
	}
	if task.Source != domain.TaskSourceScheduler {
		done, err := s.gateway.CompleteTask(ctx, task.ID, actx)
		if err != nil {
			return domain.Task{}, false, err
		}
		if !done {
			return task, false, nil
		}
	}
	updated, changed, err := s.tasks.Update(task.ID, func(t *domain.Task) bool {
		if t.Status == domain.TaskStatusCompleted {
			return false
		}
		t.Status = domain.TaskStatusCompleted
		return true
	}, store.HistoryEvent{Type: domain.HistoryCompleted, Description: actx.Note, Actor: actx.Actor})
	if err != nil {
		return domain.Task{}, false, err
	}
	return updated, changed, nil
}

func (s *DashboardService) resolveTask(id string) (domain.Task, bool) {
	if t, ok := s.tasks.Get(id); ok {
		return t, true
	}
	open := []domain.Task{}
	for _, t := range s.tasks.Filter(store.TaskFilter{SeriesID: id}) {
		if t.Status != domain.TaskStatusCompleted {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return domain.Task{}, false
	}
	sort.SliceStable(open, func(i, j int) bool {
		a, b := open[i].DueAt, open[j].DueAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return open[i].ID < open[j].ID
	})
	return open[0], true
}

// BedNotifications current notifications per bed.
func (s *DashboardService) BedNotifications() []BedView {
	now := s.now()
	th := s.settings.Get().Thresholds()
	beds := s.beds.Beds()
	out := make([]BedView, 0, len(beds))
	for _, bed := range beds {
		out = append(out, BedView{BedEntity: bed, Notifications: alerting.CalculateNotifications(bed, th, now)})
	}
	return out
}
