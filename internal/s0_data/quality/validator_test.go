package quality

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/logger"
)

var date = time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC) // Friday

func obs(ticker string, item contracts.Item, d time.Time, v float64) contracts.MarketObservation {
	return contracts.MarketObservation{Ticker: ticker, Item: item, Date: d, Value: null.FloatFrom(v)}
}

func fullTicker(ticker string, d time.Time) []contracts.MarketObservation {
	return []contracts.MarketObservation{
		obs(ticker, contracts.ItemAdjClose, d, 2.0),
		obs(ticker, contracts.ItemVolume, d, 1e6),
		obs(ticker, contracts.ItemSharesOutstanding, d, 1e9),
	}
}

func TestQualityGateCheckFullCoverage(t *testing.T) {
	snap := &contracts.Snapshot{
		Market:     append(fullTicker("BARC", date), fullTicker("VOD", date.AddDate(0, 0, -1))...),
		Securities: []contracts.SecurityMeta{{Ticker: "BARC", ISIN: "GB01"}, {Ticker: "VOD", ISIN: "GB02"}},
	}

	gate := NewQualityGate(config.DefaultTrackerConfig().Quality, logger.Nop())
	got := gate.Check(snap, date, []string{"GB01", "GB02"})

	assert.Equal(t, date, got.Date)
	assert.Equal(t, 2, got.TotalISINs)
	assert.Equal(t, 2, got.ValidTickers)
	assert.InDelta(t, 1.0, got.QualityScore, 1e-12)
	assert.True(t, got.Passed)
	assert.Empty(t, got.Failures)
}

func TestQualityGateCheckGaps(t *testing.T) {
	stale := date.AddDate(0, 0, -14)
	market := fullTicker("BARC", date)
	market = append(market,
		obs("VOD", contracts.ItemAdjClose, stale, 1.0), // too old to count
		obs("VOD", contracts.ItemVolume, date, 0),      // zero volume
		obs("VOD", contracts.ItemSharesOutstanding, stale, 1e9),
		obs("VOD", contracts.ItemAdjClose, date.AddDate(0, 0, 3), 1.0), // after the report date
	)
	snap := &contracts.Snapshot{
		Market:     market,
		Securities: []contracts.SecurityMeta{{Ticker: "BARC", ISIN: "GB01"}, {Ticker: "VOD", ISIN: "GB02"}},
	}

	gate := NewQualityGate(config.DefaultTrackerConfig().Quality, logger.Nop())
	got := gate.Check(snap, date, []string{"GB01", "GB02", "GB03", "GB04"})

	assert.Equal(t, 1, got.ValidTickers)
	assert.InDelta(t, 0.5, got.Coverage[contracts.CoverageTicker], 1e-12)
	assert.InDelta(t, 0.5, got.Coverage[contracts.CoveragePrice], 1e-12)
	assert.InDelta(t, 0.5, got.Coverage[contracts.CoverageVolume], 1e-12)
	assert.InDelta(t, 1.0, got.Coverage[contracts.CoverageShares], 1e-12)
	assert.InDelta(t, 0.5*0.15+0.5*0.35+0.5*0.25+1.0*0.25, got.QualityScore, 1e-12)
	assert.False(t, got.Passed)
	require.NotEmpty(t, got.Failures)
	assert.Contains(t, got.Failures[0], contracts.CoverageTicker)
}

func TestQualityGateCheckEmpty(t *testing.T) {
	gate := NewQualityGate(config.QualityConfig{}, logger.Nop())
	got := gate.Check(&contracts.Snapshot{}, date, nil)

	assert.Zero(t, got.QualityScore)
	assert.True(t, got.Passed) // zero thresholds
}
