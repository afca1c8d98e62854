package handler

import (
	"net/http"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/internal/attendance/service"
	"github.com/medflow/medflow-attendance/pkg/actor"
	"github.com/medflow/medflow-attendance/pkg/httputil"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

// SettingsHandler handles attendance settings endpoints
type SettingsHandler struct {
	service *service.SettingsService
	logger  *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(svc *service.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: svc,
		logger:  log,
	}
}

// Get returns the current settings
// GET /settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Get(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, settings)
}

// Update merges a partial update into the settings. An empty patch returns
// the current settings.
// PATCH /settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(patch); err != nil {
		httputil.Error(w, err)
		return
	}

	settings, err := h.service.Update(r.Context(), patch)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.WithUserID(reviewerID(r)).Debug().
		Str("actor", actor.FromContext(r.Context()).String()).
		Msg("settings patch applied")

	httputil.JSON(w, http.StatusOK, settings)
}
