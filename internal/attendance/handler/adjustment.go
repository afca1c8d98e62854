package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/internal/attendance/service"
	"github.com/medflow/medflow-attendance/pkg/actor"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/httputil"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/permissions"
)

// AdjustmentHandler handles time adjustment request endpoints
type AdjustmentHandler struct {
	service *service.AdjustmentService
	logger  *logger.Logger
}

// NewAdjustmentHandler creates a new adjustment handler
func NewAdjustmentHandler(svc *service.AdjustmentService, log *logger.Logger) *AdjustmentHandler {
	return &AdjustmentHandler{
		service: svc,
		logger:  log,
	}
}

// SubmitAdjustmentRequest is the body of a new adjustment request.
// EmployeeID defaults to the caller; submitting for someone else requires
// the review permission.
type SubmitAdjustmentRequest struct {
	EmployeeID        string     `json:"employee_id,omitempty"`
	TimeEntryID       string     `json:"time_entry_id" validate:"required"`
	RequestedClockIn  time.Time  `json:"requested_clock_in" validate:"required"`
	RequestedClockOut *time.Time `json:"requested_clock_out,omitempty"`
	Reason            string     `json:"reason" validate:"required,oneof=forgot_clock_in forgot_clock_out system_error wrong_time other"`
	ReasonText        string     `json:"reason_text" validate:"required_if=Reason other,max=500"`
	Notes             *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ApproveAdjustmentRequest is the optional body of an approval
type ApproveAdjustmentRequest struct {
	ReviewNotes *string `json:"review_notes,omitempty" validate:"omitempty,max=1000"`
}

// RejectAdjustmentRequest is the body of a rejection
type RejectAdjustmentRequest struct {
	ReviewNotes string `json:"review_notes" validate:"required,max=1000"`
}

// Submit creates a pending adjustment request
// POST /adjustments
func (h *AdjustmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller := actor.FromContext(r.Context())
	if caller == nil || caller.ID == "" {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}

	var req SubmitAdjustmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	employeeID := req.EmployeeID
	if employeeID == "" {
		employeeID = caller.ID
	}
	if !caller.Owns(employeeID) && !caller.Can(permissions.AttendanceAdjustmentsReview) {
		httputil.Error(w, errors.Forbidden("cannot submit adjustments for another employee"))
		return
	}

	created, err := h.service.Submit(r.Context(), domain.SubmitInput{
		EmployeeID:        employeeID,
		TimeEntryID:       req.TimeEntryID,
		RequestedClockIn:  req.RequestedClockIn,
		RequestedClockOut: req.RequestedClockOut,
		Reason:            req.Reason,
		ReasonText:        req.ReasonText,
		Notes:             req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, created)
}

// List lists adjustment requests, newest first
// GET /adjustments?status=&employee_id=&page=&per_page=
func (h *AdjustmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := httputil.QueryInt(r, "page", 1, 0)
	perPage := httputil.QueryInt(r, "per_page", 20, 100)

	filter := domain.AdjustmentFilter{
		Status:     q.Get("status"),
		EmployeeID: q.Get("employee_id"),
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	}

	// Employees only see their own requests
	caller := actor.FromContext(r.Context())
	if caller == nil {
		httputil.Error(w, errors.Unauthorized("user not authenticated"))
		return
	}
	if !caller.Can(permissions.AttendanceAdjustmentsReview) {
		filter.EmployeeID = caller.ID
	}

	requests, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, requests, httputil.PageMeta(page, perPage, total))
}

// Get returns a single adjustment request
// GET /adjustments/{id}
func (h *AdjustmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	caller := actor.FromContext(r.Context())
	if !caller.Owns(req.EmployeeID) && !caller.Can(permissions.AttendanceAdjustmentsReview) {
		// Hide the existence of other employees' requests
		httputil.Error(w, errors.NotFound("adjustment request"))
		return
	}

	httputil.JSON(w, http.StatusOK, req)
}

// Approve applies a pending request to its time entry
// POST /adjustments/{id}/approve
func (h *AdjustmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ApproveAdjustmentRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if err := httputil.Validate(req); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	approved, err := h.service.Approve(r.Context(), id, reviewerID(r), req.ReviewNotes)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, approved)
}

// Reject closes a pending request without touching the time entry
// POST /adjustments/{id}/reject
func (h *AdjustmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RejectAdjustmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	rejected, err := h.service.Reject(r.Context(), id, reviewerID(r), req.ReviewNotes)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rejected)
}

func reviewerID(r *http.Request) string {
	if a := actor.FromContext(r.Context()); a != nil {
		return a.ID
	}
	return ""
}
