package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository 任务持久化接口（远程 PostgreSQL 或本地内存）
type TaskRepository interface {
	LoadTasks(ctx context.Context) ([]domain.Task, error)
	SaveTask(ctx context.Context, fields domain.TaskFields, actx domain.ActionContext) (string, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error
	// CompleteTask reports false when the task does not exist or is already completed.
	CompleteTask(ctx context.Context, id string, actx domain.ActionContext) (bool, error)
}

// WriteError a failed remote write. The message is meant for end users.
type WriteError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *WriteError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("could not %s task %s: %v", e.Op, e.TaskID, e.Err)
	}
	return fmt.Sprintf("could not %s task: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// newTaskFromFields resolves the id and builds the initial history entry.
func newTaskFromFields(fields domain.TaskFields, actx domain.ActionContext, now time.Time) domain.Task {
	id := fields.ID
	if id == "" {
		id = uuid.NewString()
	}
	task := domain.NewTask(id, fields, now)
	task.History = []domain.HistoryEntry{historyEntry(domain.HistoryCreated, task.Status, actx, now)}
	return task
}

func historyEntry(typ string, status domain.TaskStatus, actx domain.ActionContext, now time.Time) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:          uuid.NewString(),
		Type:        typ,
		Status:      status,
		Description: actx.Note,
		Timestamp:   now,
		Actor:       actx.Actor,
	}
}
