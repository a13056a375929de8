package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// MemoryTaskRepo 数据库未启用或不可用时的本地任务存储
type MemoryTaskRepo struct {
	mu    sync.RWMutex
	order []string
	tasks map[string]domain.Task
	now   func() time.Time
}

func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{
		tasks: map[string]domain.Task{},
		now:   time.Now,
	}
}

var _ TaskRepository = (*MemoryTaskRepo)(nil)

func (r *MemoryTaskRepo) LoadTasks(_ context.Context) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tasks[id].Clone())
	}
	return out, nil
}

func (r *MemoryTaskRepo) SaveTask(_ context.Context, fields domain.TaskFields, actx domain.ActionContext) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := newTaskFromFields(fields, actx, r.now())
	if existing, ok := r.tasks[task.ID]; ok {
		task.CreatedAt = existing.CreatedAt
		task.History = append(existing.Clone().History, task.History...)
	} else {
		r.order = append(r.order, task.ID)
	}
	r.tasks[task.ID] = task
	return task.ID, nil
}

func (r *MemoryTaskRepo) UpdateTask(_ context.Context, id string, patch domain.TaskPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task = task.Clone()
	if !patch.Apply(&task) {
		return nil
	}
	now := r.now()
	task.UpdatedAt = now
	task.History = append(task.History, historyEntry(domain.HistoryUpdated, task.Status, domain.ActionContext{}, now))
	r.tasks[id] = task
	return nil
}

func (r *MemoryTaskRepo) CompleteTask(_ context.Context, id string, actx domain.ActionContext) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.Status == domain.TaskStatusCompleted {
		return false, nil
	}
	task = task.Clone()
	now := r.now()
	task.Status = domain.TaskStatusCompleted
	task.UpdatedAt = now
	task.History = append(task.History, historyEntry(domain.HistoryCompleted, task.Status, actx, now))
	r.tasks[id] = task
	return true, nil
}
