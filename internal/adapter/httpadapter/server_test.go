package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/httpadapter"
	"github.com/couchcryptid/rainfall-verification/internal/pipeline"
)

type mockStage struct {
	err      error
	progress pipeline.Progress
}

func (m *mockStage) CheckReadiness(_ context.Context) error { return m.err }
func (m *mockStage) Progress() pipeline.Progress            { return m.progress }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockStage{
		err: readyErr,
		progress: pipeline.Progress{
			Stage:     "verify",
			Total:     6,
			Done:      2,
			Written:   6,
			StartedAt: time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}, slog.Default())
}

func serve(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("not ready yet")), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusJSON(t *testing.T) {
	rec := serve(newTestServer(nil), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var p pipeline.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "verify", p.Stage)
	assert.Equal(t, int64(2), p.Done)
	assert.Equal(t, int64(6), p.Total)
}

func TestStatusMsgpack(t *testing.T) {
	rec := serve(newTestServer(nil), "/status?format=msgpack")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var p map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "verify", p["stage"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
