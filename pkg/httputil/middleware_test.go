package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AccessLine(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("attendance-service", &buf)

	h := RequestID(Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such request", http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/adjustments/missing", nil)
	req.Header.Set("X-Request-ID", "req-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, "/api/v1/attendance/adjustments/missing", entry["path"])
	assert.Greater(t, entry["bytes"], float64(0))
}

func TestLogger_SkipsHealth(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(logger.NewWithWriter("attendance-service", &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, buf.String())
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	h := Recoverer(logger.NewWithWriter("attendance-service", &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil settings")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/settings", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rec.Body.String(), "nil settings")
	assert.True(t, strings.Contains(buf.String(), "panic recovered"))
}
