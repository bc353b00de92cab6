package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/housing-research/internal/config"
	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/monitoring"
	"github.com/sells-group/housing-research/internal/resolve"
	"github.com/sells-group/housing-research/internal/store"
	"github.com/sells-group/housing-research/internal/store/storetest"
)

func testConfig() *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{QueryTimeoutSecs: 5},
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		Sources: config.SourcesConfig{
			CensusVintage:    "Census ACS 5-Year 2023",
			CrosswalkVintage: "Q4 2025",
			AggregateSource:  "Census ACS 5-Year 2023 (aggregated from residential ZIPs in county)",
			Checked:          []string{"census", "crosswalk"},
		},
		Export:  config.ExportConfig{MaxZips: 100},
		Compare: config.CompareConfig{MinZips: 2, MaxZips: 10},
		Search:  config.SearchConfig{DefaultLimit: 20, MaxLimit: 50, ZipListLimit: 200},
	}
}

type testEnv struct {
	handler http.Handler
	metrics *monitoring.Metrics
}

func newTestEnv(t *testing.T, st Store, cfg *config.Config) *testEnv {
	t.Helper()
	m := monitoring.NewMetricsForTesting()
	national := resolve.NewNationalComparator(st, 0)
	resolver := resolve.NewResolver(st, crosswalkOf(st), national, resolve.Options{
		CensusVintage:    cfg.Sources.CensusVintage,
		CrosswalkVintage: cfg.Sources.CrosswalkVintage,
		SourcesChecked:   cfg.Sources.Checked,
		Recorder:         m,
	})
	return &testEnv{
		handler: NewServer(st, resolver, national, m, cfg).Routes(),
		metrics: m,
	}
}

func crosswalkOf(st Store) store.Crosswalk {
	if c, ok := st.(store.Crosswalk); ok {
		return c
	}
	return nil
}

func seededStore(t *testing.T) Store {
	t.Helper()
	return storetest.NewSeeded(t)
}

func newSeededEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, seededStore(t), testConfig())
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodGet, target, nil)
}

type okResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Meta    map[string]any `json:"meta"`
}

func decodeOK[T any](t *testing.T, rr *httptest.ResponseRecorder) okResponse[T] {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out okResponse[T]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Contains(t, out.Meta, "timestamp")
	assert.Contains(t, out.Meta, "query_time_ms")
	return out
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder, code int) errorBody {
	t.Helper()
	require.Equal(t, code, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var out errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.False(t, out.Success)
	assert.Equal(t, code, out.Code)
	return out
}

// brokenStore fails every query.
type brokenStore struct{}

var errBroken = errors.New("connection refused")

func (brokenStore) LookupByZip(context.Context, string) (*model.HousingRecord, error) {
	return nil, errBroken
}

func (brokenStore) LookupManyByZip(context.Context, []string) ([]model.HousingRecord, error) {
	return nil, errBroken
}

func (brokenStore) GlobalAverages(context.Context, model.AverageFilter) (*model.Averages, error) {
	return nil, errBroken
}

func (brokenStore) EntriesForZip(context.Context, string) ([]model.CrosswalkEntry, error) {
	return nil, errBroken
}

func (brokenStore) ZipsInCounty(context.Context, string) ([]string, error) { return nil, errBroken }

func (brokenStore) Search(context.Context, store.SearchQuery) ([]model.ZipSummary, error) {
	return nil, errBroken
}

func (brokenStore) ListByState(context.Context, string, int) ([]model.HousingRecord, error) {
	return nil, errBroken
}

func (brokenStore) ListStates(context.Context) ([]model.StateSummary, error) { return nil, errBroken }

func (brokenStore) ListCounties(context.Context, string) ([]model.CountySummary, error) {
	return nil, errBroken
}

func (brokenStore) CountyStats(context.Context, string, string) (*model.CountyStats, error) {
	return nil, errBroken
}

func (brokenStore) ListZips(context.Context, string, string, int) ([]model.ZipSummary, error) {
	return nil, errBroken
}

func (brokenStore) QualityReport(context.Context) (*model.QualityReport, error) {
	return nil, errBroken
}

func (brokenStore) Ping(context.Context) error { return errBroken }

func TestHealth(t *testing.T) {
	env := newSeededEnv(t)

	rr := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","db":"connected"}`, rr.Body.String())
}

func TestHealth_StoreDown(t *testing.T) {
	env := newTestEnv(t, brokenStore{}, testConfig())

	rr := env.get(t, "/health")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"status":"error","db":"disconnected"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newSeededEnv(t)

	rr := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestRequestID_AssignedAndEchoed(t *testing.T) {
	env := newSeededEnv(t)

	rr := env.get(t, "/health")
	assert.Len(t, rr.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestAccessLog_RecordsRoutePattern(t *testing.T) {
	env := newSeededEnv(t)

	env.get(t, "/api/v1/research/stats/zip/78701")
	env.get(t, "/api/v1/research/stats/zip/00000")
	env.get(t, "/nope")

	assert.InDelta(t, 1, testutil.ToFloat64(
		env.metrics.HTTPRequests.WithLabelValues("/api/v1/research/stats/zip/{zip}", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		env.metrics.HTTPRequests.WithLabelValues("/api/v1/research/stats/zip/{zip}", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		env.metrics.HTTPRequests.WithLabelValues("unmatched", "404")), 0)
}

func TestCORS_Preflight(t *testing.T) {
	env := newSeededEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/research/compare", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dashboard</html>"), 0o644))
	cfg := testConfig()
	cfg.Server.StaticDir = dir
	env := newTestEnv(t, storetest.NewSeeded(t), cfg)

	rr := env.get(t, "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "dashboard")
}

func TestBrokenStore_ResearchEndpoints(t *testing.T) {
	env := newTestEnv(t, brokenStore{}, testConfig())

	for _, target := range []string{
		"/api/v1/research/stats/state/TX",
		"/api/v1/research/stats/county/Travis?state=TX",
		"/api/v1/research/search?q=austin",
		"/api/v1/research/quality/report",
		"/api/v1/research/summary",
		"/api/v1/research/list/states",
		"/api/v1/research/list/counties?state=TX",
		"/api/v1/research/list/zips?state=TX",
		"/api/v1/research/export/csv?state=TX",
	} {
		t.Run(target, func(t *testing.T) {
			body := decodeError(t, env.get(t, target), http.StatusInternalServerError)
			assert.Equal(t, "Database error", body.Error)
		})
	}

	rr := env.do(t, http.MethodPost, "/api/v1/research/compare",
		bytes.NewBufferString(`{"zip_codes":["78701","78702"]}`))
	decodeError(t, rr, http.StatusInternalServerError)
}
