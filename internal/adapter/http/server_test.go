package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/pavnask/rag-local-fork/internal/adapter/http"
	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/observability"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockResults []domain.Classification

func (m mockResults) Results() []domain.Classification { return m }

func (m mockResults) Counts() map[string]int {
	counts := make(map[string]int)
	for _, c := range m {
		counts[c.Action]++
	}
	return counts
}

var testResults = mockResults{
	{ObservationID: "OBS1", Action: domain.ActionMigrate, Method: domain.MethodSemantic},
	{ObservationID: "OBS2", Action: domain.ActionMigrate, Method: domain.MethodKeyword},
	{ObservationID: "OBS3", Action: domain.ActionTolerate, Method: domain.MethodKeyword},
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, testResults,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("no batch classified yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no batch classified yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/summary", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total  int            `json:"total"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Counts["Migrate"])
}

func TestClassificationsEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"OBS1", "OBS2", "OBS3"}},
		{"by action", "?action=migrate", []string{"OBS1", "OBS2"}},
		{"by action and method", "?action=Migrate&method=keyword", []string{"OBS2"}},
		{"no hits", "?action=Invest", []string{}},
	}
	srv := newTestServer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/classifications"+tt.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var body []domain.Classification
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			ids := make([]string, 0, len(body))
			for _, c := range body {
				ids = append(ids, c.ObservationID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSummaryEndpointDisabled(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/classifications", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadyzFollowsPipeline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	obs := []*domain.Observation{
		domain.NewObservation("OBS1", "Security audit failed", nil),
		domain.NewObservation("OBS2", "System has been stable for months", nil),
	}
	collector := &pipeline.Collector{}
	p := pipeline.New(pipeline.NewSliceExtractor(obs),
		pipeline.NewTimeClassifier(nil, nil, nil, pipeline.TimeThresholds{}, logger),
		collector, logger, observability.NewMetricsForTesting(), 10)
	srv := httpadapter.NewServer(":0", p, collector, logger)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, p.Run(context.Background()))

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
	assert.Len(t, collector.Results(), 2)
}
