package handler

import (
	"net/http"

	"github.com/medflow/medflow-attendance/internal/attendance/events"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/httputil"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

// FailedNotifications lists notifications waiting for redelivery
type FailedNotifications interface {
	List(limit int) ([]events.OutboxEntry, error)
	Len() (int, error)
}

// NotificationHandler exposes the notification outbox
type NotificationHandler struct {
	outbox FailedNotifications
	logger *logger.Logger
}

// NewNotificationHandler creates a new notification handler. outbox may be
// nil when the service runs without one.
func NewNotificationHandler(outbox FailedNotifications, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		outbox: outbox,
		logger: log,
	}
}

// ListFailed returns the oldest undelivered notifications
// GET /notifications/failed?limit=
func (h *NotificationHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	if h.outbox == nil {
		httputil.JSONWithMeta(w, http.StatusOK, []events.OutboxEntry{}, &httputil.Meta{})
		return
	}

	limit := httputil.QueryInt(r, "limit", 100, 500)

	entries, err := h.outbox.List(limit)
	if err != nil {
		httputil.Error(w, errors.Dependency("notification outbox", err))
		return
	}
	total, err := h.outbox.Len()
	if err != nil {
		httputil.Error(w, errors.Dependency("notification outbox", err))
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{
		PerPage: limit,
		Total:   int64(total),
	})
}
