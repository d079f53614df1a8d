// Package quality checks market data coverage of the tracked securities
// before the metrics run.
package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/logger"
)

// maxStaleDays is how many business days before the report date a price or
// volume observation may be and still count as current
const maxStaleDays = 3

// 가중치 (합계 = 1.0)
var weights = map[string]float64{
	contracts.CoveragePrice:  0.35, // 가격 데이터 필수
	contracts.CoverageVolume: 0.25, // ADV / days to cover
	contracts.CoverageShares: 0.25, // 보유 주식수 환산
	contracts.CoverageTicker: 0.15, // ISIN 매핑
}

// QualityGate validates stored data coverage and generates snapshots
type QualityGate struct {
	config config.QualityConfig
	logger *logger.Logger
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(cfg config.QualityConfig, log *logger.Logger) *QualityGate {
	return &QualityGate{
		config: cfg,
		logger: log.Module("quality"),
	}
}

// Check measures coverage of isins at date over the snapshot.
// Price, volume and shares coverage are measured against mapped tickers,
// ticker coverage against isins.
// ⭐ SSOT: 수집 → 지표 품질 검증
func (g *QualityGate) Check(snap *contracts.Snapshot, date time.Time, isins []string) *contracts.DataQualitySnapshot {
	date = calendar.Truncate(date)
	snapshot := &contracts.DataQualitySnapshot{
		Date:       date,
		TotalISINs: len(isins),
		Coverage:   make(map[string]float64, len(weights)),
	}

	tickers := contracts.TickerMapFromRows(snap.Securities)
	var mapped []string
	for _, isin := range isins {
		if t, ok := tickers[isin]; ok {
			mapped = append(mapped, t)
		}
	}
	sort.Strings(mapped)

	since := calendar.AddBusinessDays(date, -maxStaleDays)
	latest := latestObservations(snap.Market, date)

	var price, volume, shares, valid int
	for _, t := range mapped {
		p := !latest[key{t, contracts.ItemAdjClose}].Before(since)
		v := !latest[key{t, contracts.ItemVolume}].Before(since)
		s := !latest[key{t, contracts.ItemSharesOutstanding}].IsZero()
		if p {
			price++
		}
		if v {
			volume++
		}
		if s {
			shares++
		}
		if p && v && s {
			valid++
		}
	}

	snapshot.ValidTickers = valid
	snapshot.Coverage[contracts.CoverageTicker] = ratio(len(mapped), len(isins))
	snapshot.Coverage[contracts.CoveragePrice] = ratio(price, len(mapped))
	snapshot.Coverage[contracts.CoverageVolume] = ratio(volume, len(mapped))
	snapshot.Coverage[contracts.CoverageShares] = ratio(shares, len(mapped))
	snapshot.QualityScore = calculateScore(snapshot.Coverage)

	snapshot.Failures = g.failures(snapshot)
	snapshot.Passed = len(snapshot.Failures) == 0

	log := g.logger.WithFields(map[string]interface{}{
		"date":          calendar.Format(date),
		"isins":         snapshot.TotalISINs,
		"valid_tickers": valid,
		"score":         snapshot.QualityScore,
		"passed":        snapshot.Passed,
	})
	if snapshot.Passed {
		log.Info("Data quality checked")
	} else {
		log.Warn("Data quality below thresholds")
	}

	return snapshot
}

func (g *QualityGate) failures(s *contracts.DataQualitySnapshot) []string {
	var out []string
	check := func(name string, min float64) {
		if cov := s.Coverage[name]; cov < min {
			out = append(out, fmt.Sprintf("%s coverage %.2f below %.2f", name, cov, min))
		}
	}
	check(contracts.CoverageTicker, g.config.MinTickerCoverage)
	check(contracts.CoveragePrice, g.config.MinPriceCoverage)
	check(contracts.CoverageVolume, g.config.MinVolumeCoverage)
	check(contracts.CoverageShares, g.config.MinSharesCoverage)
	if s.QualityScore < g.config.MinScore {
		out = append(out, fmt.Sprintf("quality score %.2f below %.2f", s.QualityScore, g.config.MinScore))
	}
	return out
}

type key struct {
	ticker string
	item   contracts.Item
}

// latestObservations returns the last date on or before date with a defined
// value, per ticker and item. Zero volume does not count.
func latestObservations(obs []contracts.MarketObservation, date time.Time) map[key]time.Time {
	out := make(map[key]time.Time)
	for _, o := range obs {
		if !o.Value.Valid || o.Date.After(date) {
			continue
		}
		if o.Item == contracts.ItemVolume && o.Value.Float64 <= 0 {
			continue
		}
		k := key{o.Ticker, o.Item}
		if d := calendar.Truncate(o.Date); d.After(out[k]) {
			out[k] = d
		}
	}
	return out
}

// calculateScore calculates overall quality score using weighted average
func calculateScore(coverage map[string]float64) float64 {
	score := 0.0
	for name, weight := range weights {
		score += coverage[name] * weight
	}
	return score
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
