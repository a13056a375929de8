package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/domain"
	"github.com/ruokas/lovos-dashboard-sub000/internal/reporting"
	"github.com/ruokas/lovos-dashboard-sub000/internal/repository"
	"github.com/ruokas/lovos-dashboard-sub000/internal/service"
	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

// Dashboard operations used by the handlers; *service.DashboardService implements it.
type Dashboard interface {
	LastView(ctx context.Context) (*service.DashboardView, error)
	RefreshOnce(ctx context.Context) (*service.DashboardView, error)
	DisplayTasks(f store.TaskFilter) []service.DisplayTask
	BedNotifications() []service.BedView
	CreateTask(ctx context.Context, fields domain.TaskFields, actx domain.ActionContext) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch, actor string) (domain.Task, bool, error)
	CompleteTask(ctx context.Context, id string, actx domain.ActionContext) (domain.Task, bool, error)
}

// KPISource *reporting.Aggregator implements it.
type KPISource interface {
	FetchKpiSnapshot(ctx context.Context) reporting.Snapshot
}

type DashboardHandler struct {
	dash   Dashboard
	kpi    KPISource
	logger *zap.Logger
}

func NewDashboardHandler(dash Dashboard, kpi KPISource, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dash: dash, kpi: kpi, logger: logger}
}

type createTaskRequest struct {
	domain.TaskFields
	Actor string `json:"actor,omitempty"`
	Note  string `json:"note,omitempty"`
}

type updateTaskRequest struct {
	domain.TaskPatch
	Actor string `json:"actor,omitempty"`
}

type taskChangeResponse struct {
	Task    domain.Task `json:"task"`
	Changed bool        `json:"changed"`
}

// GET /api/v1/dashboard
// 没有任何视图时先刷新一次
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.dash.LastView(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, Ok(view))
		return
	}
	if !errors.Is(err, store.ErrMiss) {
		h.logger.Warn("Failed to read cached dashboard view", zap.Error(err))
	}
	h.Refresh(w, r)
}

// POST /api/v1/refresh
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.dash.RefreshOnce(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// GET /api/v1/kpi
func (h *DashboardHandler) GetKPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.kpi.FetchKpiSnapshot(r.Context())))
}

// GET /api/v1/beds/notifications
func (h *DashboardHandler) GetBedNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.dash.BedNotifications()))
}

// GET /api/v1/tasks
// params:
// - zone? string
// - status? string (planned | inProgress | completed | cancelled | blocked)
// - responsible? string
// - source? string (local | scheduler | remote)
func (h *DashboardHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TaskFilter{
		Zone:        q.Get("zone"),
		Responsible: q.Get("responsible"),
		Source:      domain.TaskSource(q.Get("source")),
	}
	if s := q.Get("status"); s != "" {
		f.Status = domain.ParseStatus(s)
	}
	writeJSON(w, http.StatusOK, Ok(h.dash.DisplayTasks(f)))
}

// POST /api/v1/tasks
func (h *DashboardHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	task, err := h.dash.CreateTask(r.Context(), req.TaskFields, domain.ActionContext{Actor: req.Actor, Note: req.Note})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(task))
}

// PATCH /api/v1/tasks/{id}
func (h *DashboardHandler) UpdateTask(w http.ResponseWriter, r *http.Request, id string) {
	var req updateTaskRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	task, changed, err := h.dash.UpdateTask(r.Context(), id, req.TaskPatch, req.Actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(taskChangeResponse{Task: task, Changed: changed}))
}

// POST /api/v1/tasks/{id}/complete
// id 可以是任务 id，也可以是重复任务的 series id
func (h *DashboardHandler) CompleteTask(w http.ResponseWriter, r *http.Request, id string) {
	var actx domain.ActionContext
	if err := readBodyJSON(r, maxBodyBytes, &actx); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	task, changed, err := h.dash.CompleteTask(r.Context(), id, actx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(taskChangeResponse{Task: task, Changed: changed}))
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, err error) {
	var werr *repository.WriteError
	switch {
	case errors.As(err, &werr):
		writeJSON(w, http.StatusBadGateway, Fail(werr.Error()))
	case errors.Is(err, repository.ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case errors.Is(err, service.ErrTitleRequired):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, service.ErrRefreshInFlight):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	default:
		h.logger.Error("Dashboard request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}
