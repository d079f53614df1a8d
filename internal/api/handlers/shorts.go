package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/internal/disclosure"
	"github.com/wonny/shorttracker/internal/metrics"
	"github.com/wonny/shorttracker/internal/selection"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/logger"
)

// ReportReader returns the last published report
type ReportReader interface {
	Latest(ctx context.Context) (*contracts.MetricsReport, error)
}

// MetricsRunner recomputes and publishes the report
type MetricsRunner interface {
	Run(ctx context.Context) (*metrics.Result, error)
}

// ShortsHandler serves the short metrics report and disclosure flows
// ⭐ SSOT: 공매도 API 핸들러는 이 구조체에서만
type ShortsHandler struct {
	reports ReportReader
	store   contracts.PersistenceStore
	runner  MetricsRunner
	cfg     config.TrackerConfig
	logger  *logger.Logger
}

// NewShortsHandler creates a new shorts handler. runner may be nil.
func NewShortsHandler(
	reports ReportReader,
	store contracts.PersistenceStore,
	runner MetricsRunner,
	cfg config.TrackerConfig,
	log *logger.Logger,
) *ShortsHandler {
	return &ShortsHandler{
		reports: reports,
		store:   store,
		runner:  runner,
		cfg:     cfg,
		logger:  log.Module("api.shorts"),
	}
}

// GetReport returns the whole latest report
// GET /api/shorts/report
func (h *ShortsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetSecurities returns the security-level rows of the latest report
// GET /api/shorts/securities?ticker=BARC
func (h *ShortsHandler) GetSecurities(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	rows := filterRows(report.Securities, r.URL.Query().Get("ticker"), "")
	respondJSON(w, http.StatusOK, rowsResponse(report, rows))
}

// GetFunds returns the fund-level rows of the latest report
// GET /api/shorts/funds?ticker=BARC&fund=Fund+A
func (h *ShortsHandler) GetFunds(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	rows := filterRows(report.Funds, q.Get("ticker"), q.Get("fund"))
	respondJSON(w, http.StatusOK, rowsResponse(report, rows))
}

// FlowsResponse is the reindexed series of one fund position with its flow bounds
type FlowsResponse struct {
	Fund      string                  `json:"fund"`
	ISIN      string                  `json:"isin"`
	Threshold float64                 `json:"threshold"`
	Series    []contracts.SeriesPoint `json:"series"`
	Flows     []contracts.FlowPoint   `json:"flow_bounds"` // conservative bounds, not true flows
	Total     float64                 `json:"total_flow_bound"`
}

// GetFlows reindexes the stored disclosures of one fund position
// GET /api/shorts/flows?fund=Fund+A&isin=GB0031348658
func (h *ShortsHandler) GetFlows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fund, isin := q.Get("fund"), q.Get("isin")
	if fund == "" || isin == "" {
		respondError(w, http.StatusBadRequest, "fund and isin are required")
		return
	}

	snap, err := h.store.LoadSnapshot(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to load disclosures")
		return
	}

	resp := BuildFlows(snap.Disclosures, fund, isin, h.cfg.DisclosureThreshold)
	if len(resp.Series) == 0 {
		respondError(w, http.StatusNotFound, "No disclosures for this position")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// RunMetrics recomputes the report from the stored data
// POST /api/shorts/metrics
func (h *ShortsHandler) RunMetrics(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "Metrics runner not configured")
		return
	}

	res, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Metrics run failed")
		respondError(w, http.StatusInternalServerError, "Metrics run failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report_date": calendar.Format(res.ReportDate),
		"securities":  len(res.Securities),
		"funds":       len(res.Funds),
		"warnings":    len(res.Warnings),
	})
}

// BuildFlows reindexes one fund position up to the latest stored date
func BuildFlows(records []contracts.DisclosureRecord, fund, isin string, threshold float64) FlowsResponse {
	resp := FlowsResponse{Fund: fund, ISIN: isin, Threshold: threshold}

	var obs []disclosure.Observation
	end := calendar.Truncate(selection.LatestDate(records))
	for _, rec := range records {
		if rec.FundID == fund && rec.ISIN == isin {
			obs = append(obs, disclosure.Observation{Date: rec.Date, Value: rec.ShortPct})
		}
	}
	if len(obs) == 0 {
		return resp
	}

	resp.Series = disclosure.ReindexSnapshots(obs, threshold, end)
	resp.Flows = disclosure.FlowBounds(resp.Series, threshold)
	resp.Total = disclosure.SumBounds(resp.Flows)
	return resp
}

func (h *ShortsHandler) latest(w http.ResponseWriter, r *http.Request) (*contracts.MetricsReport, bool) {
	report, err := h.reports.Latest(r.Context())
	if err != nil {
		if errors.Is(err, contracts.ErrNoData) {
			respondError(w, http.StatusNotFound, "No report available yet")
			return nil, false
		}
		h.logger.WithError(err).Error("Failed to read report")
		respondError(w, http.StatusInternalServerError, "Failed to read report")
		return nil, false
	}
	return report, true
}

func rowsResponse(report *contracts.MetricsReport, rows []contracts.MetricsRow) map[string]interface{} {
	return map[string]interface{}{
		"report_date":  calendar.Format(report.ReportDate),
		"window_start": calendar.Format(report.WindowStart),
		"count":        len(rows),
		"rows":         rows,
	}
}

func filterRows(rows []contracts.MetricsRow, ticker, fund string) []contracts.MetricsRow {
	if ticker == "" && fund == "" {
		return rows
	}
	out := make([]contracts.MetricsRow, 0, len(rows))
	for _, row := range rows {
		if ticker != "" && !strings.EqualFold(row.Ticker, ticker) {
			continue
		}
		if fund != "" && !strings.EqualFold(row.Fund, fund) {
			continue
		}
		out = append(out, row)
	}
	return out
}
