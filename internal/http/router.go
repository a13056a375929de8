package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

const apiPrefix = "/api/v1"

// RegisterDashboardRoutes 看板、任务、KPI、床位通知
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})

	r.Handle(apiPrefix+"/dashboard", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.GetDashboard(w, req)
	})

	r.Handle(apiPrefix+"/refresh", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Refresh(w, req)
	})

	r.Handle(apiPrefix+"/kpi", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.GetKPI(w, req)
	})

	r.Handle(apiPrefix+"/beds/notifications", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.GetBedNotifications(w, req)
	})

	r.Handle(apiPrefix+"/tasks", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListTasks(w, req)
		case http.MethodPost:
			h.CreateTask(w, req)
		default:
			methodNotAllowed(w)
		}
	})

	// tasks/{id} 与 tasks/{id}/complete
	r.Handle(apiPrefix+"/tasks/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, apiPrefix+"/tasks/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			writeJSON(w, http.StatusNotFound, Fail("task id is required"))
			return
		}
		switch {
		case action == "complete" && req.Method == http.MethodPost:
			h.CompleteTask(w, req, id)
		case action == "" && (req.Method == http.MethodPatch || req.Method == http.MethodPut):
			h.UpdateTask(w, req, id)
		case action == "" || action == "complete":
			methodNotAllowed(w)
		default:
			writeJSON(w, http.StatusNotFound, Fail("not found"))
		}
	})
}

// RegisterSettingsRoutes GET/PUT /api/v1/settings
func (r *Router) RegisterSettingsRoutes(h *SettingsHandler) {
	r.Handle(apiPrefix+"/settings", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.Get(w, req)
		case http.MethodPut, http.MethodPatch:
			h.Update(w, req)
		default:
			methodNotAllowed(w)
		}
	})
}
