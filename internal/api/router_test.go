package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/api/handlers"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/internal/metrics"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/logger"
)

type fakeReports struct {
	report *contracts.MetricsReport
}

func (f *fakeReports) Latest(ctx context.Context) (*contracts.MetricsReport, error) {
	if f.report == nil {
		return nil, contracts.ErrNoData
	}
	return f.report, nil
}

type fakeStore struct {
	snap *contracts.Snapshot
}

func (f *fakeStore) LoadSnapshot(ctx context.Context) (*contracts.Snapshot, error) {
	return f.snap, nil
}

func (f *fakeStore) ReplaceAll(ctx context.Context, snap *contracts.Snapshot) error {
	return errors.New("read only")
}

type fakeRunner struct{}

func (fakeRunner) Run(ctx context.Context) (*metrics.Result, error) {
	return &metrics.Result{ReportDate: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)}, nil
}

func d(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func newTestRouter(report *contracts.MetricsReport, health HealthChecker) http.Handler {
	store := &fakeStore{snap: &contracts.Snapshot{Disclosures: []contracts.DisclosureRecord{
		{FundID: "Fund A", ISIN: "GB01", Issuer: "Barclays", Date: d(1), ShortPct: 0.6},
		{FundID: "Fund A", ISIN: "GB01", Issuer: "Barclays", Date: d(3), ShortPct: 0.4},
		{FundID: "Fund A", ISIN: "GB01", Issuer: "Barclays", Date: d(5), ShortPct: 0.7},
		{FundID: "Fund B", ISIN: "GB02", Issuer: "Vodafone", Date: d(8), ShortPct: 0.9},
	}}}
	h := handlers.NewShortsHandler(&fakeReports{report: report}, store, fakeRunner{}, config.DefaultTrackerConfig(), logger.Nop())
	return NewRouter(h, health, logger.Nop())
}

func sampleReport() *contracts.MetricsReport {
	return &contracts.MetricsReport{
		ReportDate:  d(12),
		WindowStart: d(5),
		Securities: []contracts.MetricsRow{
			{Ticker: "BARC", ISIN: "GB01", ShortPct: null.FloatFrom(0.011)},
			{Ticker: "VOD", ISIN: "GB02"},
		},
		Funds: []contracts.MetricsRow{
			{Ticker: "BARC", ISIN: "GB01", Fund: "Fund A"},
			{Ticker: "BARC", ISIN: "GB01", Fund: "Fund B"},
		},
	}
}

func get(t *testing.T, h http.Handler, method, url string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, url, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newTestRouter(nil, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	down := func(r *http.Request) error { return errors.New("db unreachable") }
	rec, body = get(t, newTestRouter(nil, down), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestSecuritiesAndFunds(t *testing.T) {
	router := newTestRouter(sampleReport(), nil)

	rec, body := get(t, router, http.MethodGet, "/api/shorts/securities")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-12", body["report_date"])
	assert.Equal(t, float64(2), body["count"])

	_, body = get(t, router, http.MethodGet, "/api/shorts/securities?ticker=barc")
	assert.Equal(t, float64(1), body["count"])

	_, body = get(t, router, http.MethodGet, "/api/shorts/funds?fund=Fund+B")
	assert.Equal(t, float64(1), body["count"])
}

func TestReportNotAvailable(t *testing.T) {
	rec, body := get(t, newTestRouter(nil, nil), http.MethodGet, "/api/shorts/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "No report")
}

func TestFlows(t *testing.T) {
	router := newTestRouter(nil, nil)

	rec, body := get(t, router, http.MethodGet, "/api/shorts/flows?fund=Fund+A&isin=GB01")
	require.Equal(t, http.StatusOK, rec.Code)

	series := body["series"].([]interface{})
	flows := body["flow_bounds"].([]interface{})
	// Jan 1 .. Jan 8 business days
	assert.Len(t, series, 6)
	assert.Len(t, flows, 6)
	assert.InDelta(t, 0.1, flows[0].(map[string]interface{})["bound"], 1e-9)
	// Fund A is not on the Jan 8 sheet
	assert.Nil(t, series[5].(map[string]interface{})["value"])
	assert.InDelta(t, -0.2, flows[5].(map[string]interface{})["bound"], 1e-9)

	rec, _ = get(t, router, http.MethodGet, "/api/shorts/flows?fund=Fund+A")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, router, http.MethodGet, "/api/shorts/flows?fund=Nobody&isin=GB01")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunMetrics(t *testing.T) {
	rec, body := get(t, newTestRouter(nil, nil), http.MethodPost, "/api/shorts/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-12", body["report_date"])
}
