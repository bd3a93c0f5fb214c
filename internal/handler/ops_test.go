package handler

import (
	"io"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler() *OpsHandler {
	return NewOpsHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func getStatus(t *testing.T, h *OpsHandler) runStatus {
	t.Helper()

	r := chi.NewRouter()
	h.Init(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status runStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return status
}

func TestHealthBeforeFirstRun(t *testing.T) {
	status := getStatus(t, testHandler())

	assert.False(t, status.StartedAt.IsZero())
	assert.Nil(t, status.LastRunAt)
	assert.Zero(t, status.RunsTotal)
	assert.Empty(t, status.LastError)
}

func TestHealthReportsRuns(t *testing.T) {
	h := testHandler()

	h.RecordRun(nil)
	h.RecordRun(errors.New("fetch orders: 502"))

	status := getStatus(t, h)
	assert.Equal(t, 2, status.RunsTotal)
	require.NotNil(t, status.LastRunAt)
	assert.Equal(t, "fetch orders: 502", status.LastError)
}

func TestHealthClearsErrorOnSuccess(t *testing.T) {
	h := testHandler()

	h.RecordRun(errors.New("boom"))
	h.RecordRun(nil)

	status := getStatus(t, h)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 2, status.RunsTotal)
}

func TestMetricsEndpointMounted(t *testing.T) {
	r := chi.NewRouter()
	testHandler().Init(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
