package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

var (
	ErrTaskExists   = errors.New("task already exists")
	ErrTaskNotFound = errors.New("task not found")
)

// TaskFilter zero-value fields match everything.
type TaskFilter struct {
	Source      domain.TaskSource
	Status      domain.TaskStatus
	Zone        string
	SeriesID    string
	Responsible string
	DueBefore   *time.Time
}

func (f TaskFilter) match(t *domain.Task) bool {
	if f.Source != "" && t.Source != f.Source {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Zone != "" && t.Zone != f.Zone {
		return false
	}
	if f.SeriesID != "" && t.SeriesID != f.SeriesID {
		return false
	}
	if f.Responsible != "" && t.Responsible != f.Responsible {
		return false
	}
	if f.DueBefore != nil && (t.DueAt == nil || !t.DueAt.Before(*f.DueBefore)) {
		return false
	}
	return true
}

// HistoryEvent describes the history entry appended by Update.
type HistoryEvent struct {
	Type        string
	Description string
	Actor       string
}

// TaskStore 内存任务集合，保持插入顺序；读写都通过 RWMutex
type TaskStore struct {
	mu    sync.RWMutex
	order []string
	tasks map[string]*domain.Task
	now   func() time.Time
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*domain.Task),
		now:   time.Now,
	}
}

// SetClock overrides the time source used for updatedAt and history timestamps.
func (s *TaskStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// All returns copies in insertion order.
func (s *TaskStore) All() []domain.Task {
	return s.Filter(TaskFilter{})
}

func (s *TaskStore) Get(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return t.Clone(), true
}

func (s *TaskStore) Filter(f TaskFilter) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		t := s.tasks[id]
		if f.match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (s *TaskStore) Add(t domain.Task) error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return ErrTaskExists
	}
	s.insertLocked(t)
	return nil
}

// Upsert replaces an existing task with the same id or appends a new one.
func (s *TaskStore) Upsert(t domain.Task) (created bool, err error) {
	if t.ID == "" {
		return false, errors.New("task id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		cp := t.Clone()
		s.tasks[t.ID] = &cp
		return false, nil
	}
	s.insertLocked(t)
	return true, nil
}

func (s *TaskStore) insertLocked(t domain.Task) {
	cp := t.Clone()
	s.tasks[t.ID] = &cp
	s.order = append(s.order, t.ID)
}

// Update runs mutate under the write lock. When mutate reports a change the task's
// updatedAt is bumped and one history entry is appended.
func (s *TaskStore) Update(id string, mutate func(t *domain.Task) bool, ev HistoryEvent) (domain.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false, ErrTaskNotFound
	}
	work := t.Clone()
	if !mutate(&work) {
		return t.Clone(), false, nil
	}
	now := s.now()
	work.UpdatedAt = now
	typ := ev.Type
	if typ == "" {
		typ = domain.HistoryUpdated
	}
	work.History = append(work.History, domain.HistoryEntry{
		ID:          uuid.NewString(),
		Type:        typ,
		Status:      work.Status,
		Description: ev.Description,
		Timestamp:   now,
		Actor:       ev.Actor,
	})
	s.tasks[id] = &work
	return work.Clone(), true, nil
}

func (s *TaskStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveWhere deletes every task matching pred and returns the removed ids.
func (s *TaskStore) RemoveWhere(pred func(t *domain.Task) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	kept := s.order[:0]
	for _, id := range s.order {
		if pred(s.tasks[id]) {
			removed = append(removed, id)
			delete(s.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

// ReplaceWhere drops every task matching pred and upserts tasks in their place.
// Tasks not matching pred keep their position.
func (s *TaskStore) ReplaceWhere(pred func(t *domain.Task) bool, tasks []domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, id := range s.order {
		if pred(s.tasks[id]) {
			delete(s.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		if _, ok := s.tasks[t.ID]; ok {
			cp := t.Clone()
			s.tasks[t.ID] = &cp
			continue
		}
		s.insertLocked(t)
	}
}
