package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/internal/disclosure"
	"github.com/wonny/shorttracker/internal/marketdata"
	"github.com/wonny/shorttracker/internal/s0_data"
	"github.com/wonny/shorttracker/internal/s0_data/quality"
	"github.com/wonny/shorttracker/internal/selection"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/logger"
)

// Collector runs the daily acquisition: disclosures, identifiers, market data
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source   contracts.DisclosureSource
	resolver contracts.IdentifierResolver
	market   contracts.MarketDataSource
	store    contracts.PersistenceStore
	quality  *quality.QualityGate
	cfg      config.TrackerConfig
	workers  int
	logger   *logger.Logger
	now      func() time.Time
}

// Config holds collector configuration
type Config struct {
	Tracker config.TrackerConfig
	Workers int // concurrent market data requests
}

// NewCollector creates a new Collector instance
func NewCollector(
	source contracts.DisclosureSource,
	resolver contracts.IdentifierResolver,
	market contracts.MarketDataSource,
	store contracts.PersistenceStore,
	cfg Config,
	log *logger.Logger,
) *Collector {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Collector{
		source:   source,
		resolver: resolver,
		market:   market,
		store:    store,
		quality:  quality.NewQualityGate(cfg.Tracker.Quality, log),
		cfg:      cfg.Tracker,
		workers:  workers,
		logger:   log.Module("collector"),
		now:      time.Now,
	}
}

// Result summarizes one collection run
type Result struct {
	ReportDate   time.Time                      `json:"report_date"`
	Records      int                            `json:"records"`
	ISINs        int                            `json:"isins"`
	Tickers      int                            `json:"tickers"`
	Observations int                            `json:"observations"`
	Overlap      bool                           `json:"overlap"` // current disclosures were already stored
	Stored       int                            `json:"stored_disclosures"`
	Duration     time.Duration                  `json:"duration"`
	Quality      *contracts.DataQualitySnapshot `json:"quality"`
	Warnings     []contracts.Warning            `json:"warnings"`
}

// Collect fetches today's publication, acquires identifiers and market data
// for the selected securities and replaces the stored tables
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	start := time.Now()
	warnings := contracts.NewWarnings(c.logger)

	policy, err := disclosure.ParseConflictPolicy(c.cfg.ConflictPolicy)
	if err != nil {
		return nil, err
	}

	// 1. Disclosures, tracked as of the report date
	file, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch disclosures: %w", err)
	}
	reportDate := calendar.Truncate(file.ReportDate)

	normalizer := disclosure.NewNormalizer(policy, warnings, c.logger)
	current, err := normalizer.NormalizeAsOf(file.Current, reportDate)
	if err != nil {
		return nil, fmt.Errorf("normalize current disclosures: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"report_date": calendar.Format(reportDate),
		"records":     len(current),
	}).Info("Retrieved current disclosures")

	// 2. Scope: union of both top-N rankings
	sel := selection.NewRanker(c.cfg.TopN, c.logger).Select(current)
	isins := sel.ISINs()

	stored, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored data: %w", err)
	}

	overlap := s0_data.CheckOverlap(current, stored.Disclosures)
	if overlap {
		c.logger.WithField("report_date", calendar.Format(reportDate)).Warn("Current disclosures already stored, overwriting")
	}

	// 3. Identifiers
	tickers, err := c.resolveTickers(ctx, isins, warnings)
	if err != nil {
		return nil, err
	}

	// 4. Market data for the tickers and the benchmark
	queryStart := calendar.AddBusinessDays(calendar.Truncate(c.now()), -(c.cfg.MaxDataAge + c.cfg.QueryBuffer))
	symbols := append(tickers.Tickers(), c.cfg.BenchmarkTicker)
	histories, quotes, err := c.fetchMarket(ctx, dedupe(symbols), queryStart, warnings)
	if err != nil {
		return nil, err
	}

	market := marketdata.Melt(histories, warnings)
	market = append(market, sharesOutstanding(quotes, tickers.Tickers(), reportDate, warnings)...)

	// 5. Merge with stored history, keep the recent window, replace
	fresh := &contracts.Snapshot{
		Disclosures: current,
		Market:      market,
		Securities:  selection.Merge(contracts.TickerMapFromRows(stored.Securities), tickers).Rows(),
	}
	cutoff := calendar.AddBusinessDays(reportDate, -c.cfg.MaxDataAge)
	merged := s0_data.Truncate(s0_data.Merge(stored, fresh), cutoff)

	if err := c.store.ReplaceAll(ctx, merged); err != nil {
		return nil, fmt.Errorf("replace stored data: %w", err)
	}

	// 6. Coverage of what the metrics run will see
	dq := c.quality.Check(merged, reportDate, isins)

	result := &Result{
		ReportDate:   reportDate,
		Records:      len(current),
		ISINs:        len(isins),
		Tickers:      len(tickers.Tickers()),
		Observations: len(market),
		Overlap:      overlap,
		Stored:       len(merged.Disclosures),
		Duration:     time.Since(start),
		Quality:      dq,
		Warnings:     warnings.List(),
	}

	c.logger.WithFields(map[string]interface{}{
		"report_date":  calendar.Format(reportDate),
		"isins":        result.ISINs,
		"tickers":      result.Tickers,
		"observations": result.Observations,
		"stored":       result.Stored,
		"warnings":     len(result.Warnings),
		"quality":      dq.QualityScore,
		"duration":     result.Duration.String(),
	}).Info("Collection completed")

	return result, nil
}

func (c *Collector) resolveTickers(ctx context.Context, isins []string, warnings *contracts.Warnings) (contracts.TickerMap, error) {
	if len(isins) == 0 {
		return contracts.TickerMap{}, nil
	}
	candidates, unresolved, err := c.resolver.Resolve(ctx, isins)
	if err != nil {
		return nil, fmt.Errorf("resolve identifiers: %w", err)
	}
	return selection.ResolveTickers(candidates, unresolved, warnings), nil
}

// fetchMarket downloads history and quotes with bounded concurrency.
// A failing ticker degrades to a data gap; only cancellation aborts.
func (c *Collector) fetchMarket(
	ctx context.Context,
	tickers []string,
	start time.Time,
	warnings *contracts.Warnings,
) (map[string]*contracts.PriceHistory, map[string]*contracts.Quote, error) {
	var mu sync.Mutex
	histories := make(map[string]*contracts.PriceHistory, len(tickers))
	quotes := make(map[string]*contracts.Quote, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			history, err := c.market.History(gctx, ticker, start)
			if err != nil {
				if isCancelled(err) {
					return err
				}
				warnings.Add(contracts.WarnDataGap, ticker, "price history failed: %v", err)
				history = nil
			}

			quote, err := c.market.Quote(gctx, ticker)
			if err != nil {
				if isCancelled(err) {
					return err
				}
				warnings.Add(contracts.WarnDataGap, ticker, "quote failed: %v", err)
				quote = nil
			}

			mu.Lock()
			histories[ticker] = history
			quotes[ticker] = quote
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetch market data: %w", err)
	}
	return histories, quotes, nil
}

// sharesOutstanding stamps each quote's shares outstanding at the report date
func sharesOutstanding(quotes map[string]*contracts.Quote, tickers []string, reportDate time.Time, warnings *contracts.Warnings) []contracts.MarketObservation {
	var out []contracts.MarketObservation
	for _, ticker := range tickers {
		q := quotes[ticker]
		if q == nil || !q.SharesOutstanding.Valid {
			warnings.Add(contracts.WarnDataGap, ticker, "no shares outstanding")
			continue
		}
		out = append(out, contracts.MarketObservation{
			Ticker: ticker,
			Date:   reportDate,
			Item:   contracts.ItemSharesOutstanding,
			Value:  q.SharesOutstanding,
		})
	}
	return out
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
