package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namerank/internal/config"
	apierrors "namerank/internal/errors"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"yob2009.txt": "Anna,F,30\nEmma,F,20\nNoah,M,40\nLiam,M,10\n",
		"yob2010.txt": "Emma,F,50\nAnna,F,10\nNoah,M,25\nJayden,M,25\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.RateLimit.Enabled = false
	cfg.Dataset.Dir = writeDataset(t)
	cfg.Dataset.FirstYear = 2009
	cfg.Dataset.LastYear = 2010
	cfg.Analysis.TopK = 3
	cfg.Analysis.PivotYears = []int{2009, 2010}
	cfg.Analysis.TrendLetters = []string{"a", "h"}
	cfg.Telemetry.TracingEnabled = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := NewApplication(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestNewApplication_ServesAPI(t *testing.T) {
	a := newTestApp(t)

	rec, body := get(t, a.Router, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	dataset := body["dataset"].(map[string]interface{})
	assert.EqualValues(t, 8, dataset["records"])
	assert.EqualValues(t, 4, dataset["groups"])

	rec, body = get(t, a.Router, "/api/totals")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{2009.0, 2010.0}, body["rows"])
	assert.Equal(t, []interface{}{50.0, 50.0}, body["values"].([]interface{})[0])

	rec, body = get(t, a.Router, "/api/groups/2010/M/top?k=1")
	require.Equal(t, http.StatusOK, rec.Code)
	records := body["records"].([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "Noah", records[0].(map[string]interface{})["name"])

	rec, body = get(t, a.Router, "/api/groups/1999/M/top")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.TypeUnknownKey, body["type"])

	rec, _ = get(t, a.Router, "/api/letters/trend")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApplication_ExposesMetrics(t *testing.T) {
	a := newTestApp(t)

	get(t, a.Router, "/api/totals")

	rec, _ := get(t, a.Router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/totals"`)
}

func TestNewApplication_MissingDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.Dir = t.TempDir()

	_, err := NewApplication(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	a := newTestApp(t)
	a.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
