package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
)

// Gateway modes
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// TaskGateway 远程可用时读写远程；读失败回退本地，写失败返回 *WriteError
type TaskGateway struct {
	remote  TaskRepository // nil = local-only
	local   TaskRepository
	timeout time.Duration
	logger  *zap.Logger

	lastLoad atomic.Value // string

	mu          sync.Mutex
	lastRemote  []domain.Task // last successful remote load
	lastLoadErr error
}

func NewTaskGateway(remote, local TaskRepository, timeout time.Duration, logger *zap.Logger) *TaskGateway {
	if local == nil {
		local = NewMemoryTaskRepo()
	}
	g := &TaskGateway{remote: remote, local: local, timeout: timeout, logger: logger}
	g.lastLoad.Store(g.Mode())
	return g
}

var _ TaskRepository = (*TaskGateway)(nil)

// Mode configured backend for writes.
func (g *TaskGateway) Mode() string {
	if g.remote != nil {
		return ModeRemote
	}
	return ModeLocal
}

// LastLoadSource backend that served the most recent LoadTasks.
func (g *TaskGateway) LastLoadSource() string {
	return g.lastLoad.Load().(string)
}

func (g *TaskGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *TaskGateway) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	if g.remote != nil {
		rctx, cancel := g.withTimeout(ctx)
		tasks, err := g.remote.LoadTasks(rctx)
		cancel()
		if err == nil {
			g.lastLoad.Store(ModeRemote)
			g.setLoadResult(tasks, nil)
			return tasks, nil
		}
		g.logger.Warn("Remote task load failed, using last known remote tasks and local tasks", zap.Error(err))
		g.setLoadResult(nil, err)
		g.lastLoad.Store(ModeLocal)
		local, lerr := g.local.LoadTasks(ctx)
		if lerr != nil {
			return nil, lerr
		}
		return g.withLastRemote(local), nil
	}
	g.lastLoad.Store(ModeLocal)
	return g.local.LoadTasks(ctx)
}

func (g *TaskGateway) setLoadResult(remote []domain.Task, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastLoadErr = err
	if err == nil {
		g.lastRemote = make([]domain.Task, 0, len(remote))
		for _, t := range remote {
			g.lastRemote = append(g.lastRemote, t.Clone())
		}
	}
}

// withLastRemote last known remote tasks followed by local tasks; local wins on id clash.
func (g *TaskGateway) withLastRemote(local []domain.Task) []domain.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make(map[string]struct{}, len(local))
	for _, t := range local {
		seen[t.ID] = struct{}{}
	}
	out := make([]domain.Task, 0, len(g.lastRemote)+len(local))
	for _, t := range g.lastRemote {
		if _, ok := seen[t.ID]; !ok {
			out = append(out, t.Clone())
		}
	}
	return append(out, local...)
}

// LastLoadError remote error of the most recent LoadTasks, nil when the remote answered
// or no remote is configured.
func (g *TaskGateway) LastLoadError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastLoadErr
}

func (g *TaskGateway) SaveTask(ctx context.Context, fields domain.TaskFields, actx domain.ActionContext) (string, error) {
	if g.remote == nil {
		return g.local.SaveTask(ctx, fields, actx)
	}
	rctx, cancel := g.withTimeout(ctx)
	defer cancel()
	id, err := g.remote.SaveTask(rctx, fields, actx)
	if err != nil {
		g.logger.Error("Remote task save failed", zap.String("task_id", fields.ID), zap.Error(err))
		return "", &WriteError{Op: "save", TaskID: fields.ID, Err: err}
	}
	return id, nil
}

func (g *TaskGateway) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	if g.remote == nil {
		return g.local.UpdateTask(ctx, id, patch)
	}
	rctx, cancel := g.withTimeout(ctx)
	defer cancel()
	if err := g.remote.UpdateTask(rctx, id, patch); err != nil {
		g.logger.Error("Remote task update failed", zap.String("task_id", id), zap.Error(err))
		return &WriteError{Op: "update", TaskID: id, Err: err}
	}
	return nil
}

func (g *TaskGateway) CompleteTask(ctx context.Context, id string, actx domain.ActionContext) (bool, error) {
	if g.remote == nil {
		return g.local.CompleteTask(ctx, id, actx)
	}
	rctx, cancel := g.withTimeout(ctx)
	defer cancel()
	ok, err := g.remote.CompleteTask(rctx, id, actx)
	if err != nil {
		g.logger.Error("Remote task completion failed", zap.String("task_id", id), zap.Error(err))
		return false, &WriteError{Op: "complete", TaskID: id, Err: err}
	}
	return ok, nil
}
