package metrics

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/internal/disclosure"
	"github.com/wonny/shorttracker/internal/selection"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/logger"
)

// Input is the stored snapshot a run computes from
type Input struct {
	Disclosures []contracts.DisclosureRecord
	Market      []contracts.MarketObservation
	Tickers     contracts.TickerMap
}

// DailyRow is one joined disclosure x market row before aggregation
type DailyRow struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Issuer string    `json:"issuer"`
	ISIN   string    `json:"isin"`
	Fund   string    `json:"fund,omitempty"`

	ShortPct    null.Float `json:"short_pct"`
	SharesOut   null.Float `json:"shares_out"`
	AdjClose    null.Float `json:"adj_close"`
	Return      null.Float `json:"return"`
	BenchReturn null.Float `json:"bench_return"`
	RelReturn   null.Float `json:"rel_return"`
	AmountHeld  null.Float `json:"amount_held"`
	Exposure    null.Float `json:"exposure_gbp"`
	PnL         null.Float `json:"pnl_gbp"`
	RelPnL      null.Float `json:"rel_pnl_gbp"`
	ADV         null.Float `json:"adv"`
	DaysToCover null.Float `json:"days_to_cover"`
	FlowBound   float64    `json:"short_flow_bound"` // conservative bound, fraction of shares outstanding
}

// Result is the output of one run
type Result struct {
	ReportDate    time.Time
	WindowStart   time.Time
	Securities    []contracts.MetricsRow
	Funds         []contracts.MetricsRow
	SecurityDaily []DailyRow
	FundDaily     []DailyRow
	Warnings      []contracts.Warning
	ConfigHash    string
}

// Report converts the result for the report sink
func (r *Result) Report() *contracts.MetricsReport {
	return &contracts.MetricsReport{
		ReportDate:  r.ReportDate,
		WindowStart: r.WindowStart,
		Securities:  r.Securities,
		Funds:       r.Funds,
		Warnings:    r.Warnings,
		ConfigHash:  r.ConfigHash,
		GeneratedAt: time.Now().UTC(),
	}
}

// Engine joins disclosure and market series and derives the report metrics.
// A run is a pure function of its input and configuration.
// ⭐ SSOT: 공매도 지표 계산은 여기서만
type Engine struct {
	cfg    config.TrackerConfig
	logger *logger.Logger
}

// NewEngine creates a metrics engine
func NewEngine(cfg config.TrackerConfig, log *logger.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: log.Module("metrics"),
	}
}

// run carries the per-run state
type run struct {
	cfg      config.TrackerConfig
	in       Input
	warnings *contracts.Warnings
	market   *marketFrame
	window   []time.Time
	checked  map[string]bool
}

// Run computes security and fund metrics for the latest reporting date.
// Missing upstream data degrades to nulls and warnings; an empty input
// yields an empty result.
func (e *Engine) Run(in Input) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("metrics engine: %w", err)
	}

	warnings := contracts.NewWarnings(e.logger)
	reportDate := selection.LatestDate(in.Disclosures)
	if reportDate.IsZero() {
		e.logger.Warn("No disclosures, nothing to compute")
		return &Result{ConfigHash: e.cfg.Hash()}, nil
	}
	reportDate = calendar.Truncate(reportDate)

	windowStart := calendar.AddBusinessDays(reportDate, -e.cfg.LookbackDays)
	calStart := calendar.AddBusinessDays(reportDate, -(e.cfg.LookbackDays + e.cfg.CalendarBuffer))
	days := calendar.Range(calStart, reportDate)

	r := &run{
		cfg:      e.cfg,
		in:       in,
		warnings: warnings,
		market:   buildMarketFrame(in.Market, days, calendar.Index(days), e.cfg, warnings),
		window:   calendar.Range(windowStart, reportDate),
		checked:  make(map[string]bool),
	}

	ranker := selection.NewRanker(e.cfg.TopN, e.logger)
	sel := ranker.Select(selection.OnDate(in.Disclosures, reportDate))
	hist := selection.FilterHistory(in.Disclosures, sel)

	res := &Result{ReportDate: reportDate, WindowStart: windowStart, ConfigHash: e.cfg.Hash()}

	// Security level: every fund's position in a selected security, summed.
	// A fund that left the current sheet stops counting after its last report.
	secKeys, secGroups := disclosure.GroupByFund(hist.Securities)
	bySecurity := make(map[contracts.SecurityKey][]contracts.FundKey)
	for _, k := range secKeys {
		sk := contracts.SecurityKey{Issuer: k.Issuer, ISIN: k.ISIN}
		bySecurity[sk] = append(bySecurity[sk], k)
	}
	for _, sec := range sel.Securities {
		var series [][]contracts.SeriesPoint
		for _, fk := range bySecurity[sec.Key()] {
			series = append(series, disclosure.ReindexSnapshots(secGroups[fk], e.cfg.DisclosureThreshold, reportDate))
		}
		pct, flow := r.sumSeries(series)
		daily := r.dailyRows(sec.Issuer, sec.ISIN, "", pct, flow)
		res.SecurityDaily = append(res.SecurityDaily, daily...)
		res.Securities = append(res.Securities, aggregate(daily))
	}

	// Fund level: the selected positions only
	_, fundGroups := disclosure.GroupByFund(hist.Funds)
	for _, f := range sel.Funds {
		series := disclosure.ReindexSnapshots(fundGroups[f.Fund()], e.cfg.DisclosureThreshold, reportDate)
		pct, flow := r.sumSeries([][]contracts.SeriesPoint{series})
		daily := r.dailyRows(f.Issuer, f.ISIN, f.FundID, pct, flow)
		res.FundDaily = append(res.FundDaily, daily...)
		res.Funds = append(res.Funds, aggregate(daily))
	}

	res.Warnings = warnings.List()

	e.logger.WithFields(map[string]interface{}{
		"report_date":  calendar.Format(reportDate),
		"window_start": calendar.Format(windowStart),
		"securities":   len(res.Securities),
		"funds":        len(res.Funds),
		"warnings":     len(res.Warnings),
	}).Info("Metrics run completed")

	return res, nil
}

// sumSeries adds fund series by date over the window. A date is defined
// when at least one fund is defined on it. Flow bounds are summed as is.
func (r *run) sumSeries(series [][]contracts.SeriesPoint) (map[time.Time]null.Float, map[time.Time]float64) {
	pct := make(map[time.Time]null.Float, len(r.window))
	flow := make(map[time.Time]float64, len(r.window))

	for _, s := range series {
		for _, fp := range disclosure.FlowBounds(s, r.cfg.DisclosureThreshold) {
			flow[fp.Date] += fp.Bound
		}
		for _, p := range s {
			if !p.Value.Valid {
				continue
			}
			cur := pct[p.Date]
			if cur.Valid {
				pct[p.Date] = null.FloatFrom(cur.Float64 + p.Value.Float64)
			} else {
				pct[p.Date] = p.Value
			}
		}
	}
	return pct, flow
}

// dailyRows joins one key's window to the market frame (left join on date, ticker)
func (r *run) dailyRows(issuer, isin, fund string, pct map[time.Time]null.Float, flow map[time.Time]float64) []DailyRow {
	ticker, ok := r.in.Tickers[isin]
	if !ok && !r.checked["isin:"+isin] {
		r.checked["isin:"+isin] = true
		r.warnings.Add(contracts.WarnResolution, isin, "no ticker for %s, market metrics are null", issuer)
	}
	if ok && !r.checked[ticker] {
		r.checked[ticker] = true
		r.market.checkTicker(ticker, r.warnings)
	}

	m := r.market
	rows := make([]DailyRow, 0, len(r.window))
	for _, d := range r.window {
		row := DailyRow{
			Date:      d,
			Ticker:    ticker,
			Issuer:    issuer,
			ISIN:      isin,
			Fund:      fund,
			ShortPct:  scale(pct[d], 0.01),
			FlowBound: flow[d] * 0.01,
		}
		if ok {
			row.SharesOut = m.shares.At(ticker, d)
			row.AdjClose = m.adj.At(ticker, d)
			row.Return = m.at(m.ret[ticker], d)
			row.ADV = m.at(m.adv[ticker], d)
		}
		row.BenchReturn = m.at(m.bench, d)
		derive(&row)
		rows = append(rows, row)
	}
	return rows
}

// derive fills the per-row metrics from the joined inputs
func derive(row *DailyRow) {
	row.RelReturn = sub(row.Return, row.BenchReturn)
	row.AmountHeld = mul(row.ShortPct, row.SharesOut)
	row.Exposure = neg(mul(row.AmountHeld, row.AdjClose))
	row.PnL = mul(row.Exposure, row.Return)
	row.RelPnL = mul(row.Exposure, row.RelReturn)
	row.DaysToCover = div(row.AmountHeld, row.ADV)
}

// aggregate summarises one key's window rows, oldest first
func aggregate(rows []DailyRow) contracts.MetricsRow {
	if len(rows) == 0 {
		return contracts.MetricsRow{}
	}

	n := len(rows)
	pct := make([]null.Float, n)
	amount := make([]null.Float, n)
	expo := make([]null.Float, n)
	pnl := make([]null.Float, n)
	relPnl := make([]null.Float, n)
	ret := make([]null.Float, n)
	relRet := make([]null.Float, n)
	dtc := make([]null.Float, n)
	flow := 0.0
	for i, r := range rows {
		pct[i], amount[i], expo[i] = r.ShortPct, r.AmountHeld, r.Exposure
		pnl[i], relPnl[i] = r.PnL, r.RelPnL
		ret[i], relRet[i] = r.Return, r.RelReturn
		dtc[i] = r.DaysToCover
		flow += r.FlowBound
	}

	head := rows[n-1]
	return contracts.MetricsRow{
		Ticker:         head.Ticker,
		Issuer:         head.Issuer,
		ISIN:           head.ISIN,
		Fund:           head.Fund,
		ShortPct:       last(pct),
		AmountHeld:     last(amount),
		ExposureGBP:    last(expo),
		PnLGBP:         sum(pnl),
		RelPnLGBP:      sum(relPnl),
		ReturnPct:      compound(ret),
		RelReturnPct:   compound(relRet),
		DaysToCover:    last(dtc),
		ExposureChange: change(expo),
		ShortFlowBound: null.FloatFrom(flow),
		WindowStart:    rows[0].Date,
	}
}
