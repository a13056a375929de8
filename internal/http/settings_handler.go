package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/settings"
)

type SettingsHandler struct {
	provider *settings.Provider
	logger   *zap.Logger
}

func NewSettingsHandler(provider *settings.Provider, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{provider: provider, logger: logger}
}

// GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.provider.Get()))
}

// PUT /api/v1/settings
// body: 部分字段即可，未提供的字段保持不变
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := readBodyJSON(r, maxBodyBytes, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	next, err := h.provider.Update(r.Context(), patch)
	if err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("Failed to update settings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(next))
}
