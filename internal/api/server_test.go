package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/pipeline"
)

func newTestServer(t *testing.T, runs ...pipeline.Run) *httptest.Server {
	t.Helper()
	store := NewMemoryRunStore(10)
	for _, run := range runs {
		store.Add(run)
	}
	srv := httptest.NewServer(NewServer(store, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func sampleRun(id string) pipeline.Run {
	return pipeline.Run{
		ID:        id,
		SessionID: "2025",
		Outcome:   pipeline.OutcomeSuccess,
		StartedAt: time.Unix(1700000000, 0).UTC(),
		Stages:    []pipeline.StageResult{{Name: "fetch", Duration: time.Second}},
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		var body map[string]string
		status := getJSON(t, srv.URL+path, &body)
		assert.Equal(t, http.StatusOK, status, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, sampleRun("run-1"), sampleRun("run-2"))

	var body struct {
		Runs []pipeline.Run `json:"runs"`
	}
	status := getJSON(t, srv.URL+"/v1/runs", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "run-2", body.Runs[0].ID)
	assert.Equal(t, "run-1", body.Runs[1].ID)
}

func TestListRunsInvalidLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var body map[string]string
	status := getJSON(t, srv.URL+"/v1/runs?limit=nope", &body)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, sampleRun("run-1"))

	var body struct {
		Run pipeline.Run `json:"run"`
	}
	status := getJSON(t, srv.URL+"/v1/runs/run-1", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "run-1", body.Run.ID)
	require.Len(t, body.Run.Stages, 1)
	assert.Equal(t, "fetch", body.Run.Stages[0].Name)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var body map[string]string
	status := getJSON(t, srv.URL+"/v1/runs/absent", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "run not found", body["error"])
}

func TestMemoryRunStoreEviction(t *testing.T) {
	t.Parallel()

	store := NewMemoryRunStore(2)
	store.Add(sampleRun("a"))
	store.Add(sampleRun("b"))
	store.Add(sampleRun("c"))

	runs := store.List(10, 0)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)

	_, err := store.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}
