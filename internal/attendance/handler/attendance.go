package handler

import (
	"net/http"
	"time"

	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/internal/attendance/service"
	"github.com/medflow/medflow-attendance/pkg/httputil"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

// AttendanceHandler handles attendance status endpoints
type AttendanceHandler struct {
	service *service.AttendanceService
	logger  *logger.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *service.AttendanceService, log *logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: svc,
		logger:  log,
	}
}

// GetDaily returns every employee's status and the day's stats
// GET /status/daily?date=YYYY-MM-DD
func (h *AttendanceHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r, "date")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.DailyStatuses(r.Context(), date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// GetStats returns only the aggregated stats of a day
// GET /status/stats?date=YYYY-MM-DD
func (h *AttendanceHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r, "date")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.DailyStatuses(r.Context(), date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, domain.DayReport{Date: report.Date, Stats: report.Stats})
}

// GetWeekly returns seven consecutive days of stats
// GET /status/weekly?start=YYYY-MM-DD
func (h *AttendanceHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	start, err := h.dateParam(r, "start")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	days, err := h.service.WeeklyReport(r.Context(), start)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, days)
}

// ClassifyRequest carries a single clock-in time to classify
type ClassifyRequest struct {
	ClockIn string `json:"clock_in" validate:"required,clock"`
}

// Classify reports the punctuality of a clock-in time
// POST /status/classify
func (h *AttendanceHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Classify(r.Context(), req.ClockIn)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// dateParam reads a YYYY-MM-DD query parameter, defaulting to today in the
// organisational timezone
func (h *AttendanceHandler) dateParam(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return h.service.Today(), nil
	}
	return domain.ParseDate(name, value, h.service.Location())
}
