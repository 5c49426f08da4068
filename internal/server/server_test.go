package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TimingTerminal/internal/artifact"
	"TimingTerminal/internal/metrics"
	"TimingTerminal/internal/model"
	"TimingTerminal/internal/pipeline"
)

type staticStatus struct{ res *pipeline.Result }

func (s staticStatus) Last() *pipeline.Result { return s.res }

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestChartData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart-data.json")
	h := New(":0", path, metrics.New(), nil, zerolog.Nop()).Handler()

	rec := get(t, h, http.MethodGet, "/chart-data.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	cd := artifact.Build([]model.ScorePoint{{Timestamp: time.Unix(1704067200, 0), ReferencePrice: 40000, Score: 50}},
		model.QualityPartial, time.Now(), "momentum")
	require.NoError(t, artifact.Write(path, cd))

	rec = get(t, h, http.MethodGet, "/chart-data.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "partial", payload["dataQuality"])

	rec = get(t, h, http.MethodHead, "/chart-data.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = get(t, h, http.MethodPost, "/chart-data.json")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	h := New(":0", "unused", nil, nil, zerolog.Nop()).Handler()
	rec := get(t, h, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	res := &pipeline.Result{Strategy: "lsd", Quality: model.QualityComplete, GeneratedAt: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)}
	h = New(":0", "unused", nil, staticStatus{res}, zerolog.Nop()).Handler()
	rec = get(t, h, http.MethodGet, "/healthz")
	assert.JSONEq(t, `{"status":"ok","lastRun":"2024-01-04T00:00:00Z","strategy":"lsd","dataQuality":"complete"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.RunFailed("momentum")
	h := New(":0", "unused", m, nil, zerolog.Nop()).Handler()

	rec := get(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `timingterminal_runs_total{result="error",strategy="momentum"} 1`)

	h = New(":0", "unused", nil, nil, zerolog.Nop()).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, h, http.MethodGet, "/metrics").Code)
}
