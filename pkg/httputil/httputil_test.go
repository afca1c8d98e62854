package httputil

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("renders AppError", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, errors.InvalidStateTransition("adjustment request", "approved", "rejected"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "INVALID_STATE_TRANSITION", resp.Error.Code)
		assert.Equal(t, "approved", resp.Error.Details["current_status"])
	})

	t.Run("hides unknown errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, stderrors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})

	t.Run("dependency cause is not rendered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, errors.Dependency("clock event store", stderrors.New("dial tcp 10.0.0.5:5432")))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	})
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Notes string `json:"notes"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"notes":"ok"}`))
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "ok", body.Notes)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"notes":"ok","extra":1}`))
	assert.Error(t, DecodeJSON(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := DecodeJSON(req, &body)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"notes":"a"}{"notes":"b"}`))
	assert.Error(t, DecodeJSON(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err = DecodeJSON(req, &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request body is required")

	oversized := `{"notes":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(oversized))
	err = DecodeJSON(req, &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestPageMeta(t *testing.T) {
	assert.Equal(t, &Meta{Page: 1, PerPage: 20, Total: 0, TotalPages: 0}, PageMeta(1, 20, 0))
	assert.Equal(t, &Meta{Page: 2, PerPage: 20, Total: 40, TotalPages: 2}, PageMeta(2, 20, 40))
	assert.Equal(t, &Meta{Page: 3, PerPage: 20, Total: 41, TotalPages: 3}, PageMeta(3, 20, 41))
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"per_page=50", 50},
		{"per_page=0", 20},
		{"per_page=-3", 20},
		{"per_page=abc", 20},
		{"per_page=101", 20},
		{"per_page=100", 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/adjustments?"+tt.query, nil)
			assert.Equal(t, tt.want, QueryInt(req, "per_page", 20, 100))
		})
	}
}

func TestValidate(t *testing.T) {
	type request struct {
		Date  string `json:"date" validate:"required,date"`
		Clock string `json:"clock" validate:"required,clock"`
		Days  []int  `json:"work_days" validate:"dive,gte=0,lte=6"`
	}

	assert.NoError(t, Validate(request{Date: "2026-03-02", Clock: "09:15", Days: []int{1, 5}}))

	err := Validate(request{Date: "02.03.2026", Clock: "9:15", Days: []int{7}})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "date")
	assert.Contains(t, appErr.Details, "clock")
	assert.Contains(t, appErr.Details, "work_days[0]")
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
