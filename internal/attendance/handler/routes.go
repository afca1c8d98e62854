package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/medflow/medflow-attendance/pkg/httputil"
	"github.com/medflow/medflow-attendance/pkg/permissions"
)

// Handlers groups the HTTP handlers of the attendance service
type Handlers struct {
	Attendance    *AttendanceHandler
	Settings      *SettingsHandler
	Adjustments   *AdjustmentHandler
	Notifications *NotificationHandler
}

// Mount registers the attendance API on r. Callers must be authenticated
// by an earlier middleware.
func (h *Handlers) Mount(r chi.Router) {
	read := httputil.RequirePermission(permissions.AttendanceRead)
	review := httputil.RequirePermission(permissions.AttendanceAdjustmentsReview)

	r.Route("/api/v1/attendance", func(r chi.Router) {
		// Status routes
		r.Route("/status", func(r chi.Router) {
			r.Use(read)
			r.Get("/daily", h.Attendance.GetDaily)
			r.Get("/stats", h.Attendance.GetStats)
			r.Get("/weekly", h.Attendance.GetWeekly)
			r.Post("/classify", h.Attendance.Classify)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.With(read).Get("/", h.Settings.Get)
			r.With(httputil.RequirePermission(permissions.AttendanceSettingsWrite)).Patch("/", h.Settings.Update)
		})

		// Adjustment routes; employees submit and read their own requests
		r.Route("/adjustments", func(r chi.Router) {
			r.Post("/", h.Adjustments.Submit)
			r.Get("/", h.Adjustments.List)
			r.Get("/{id}", h.Adjustments.Get)
			r.With(review).Post("/{id}/approve", h.Adjustments.Approve)
			r.With(review).Post("/{id}/reject", h.Adjustments.Reject)
		})

		r.With(review).Get("/notifications/failed", h.Notifications.ListFailed)
	})
}
