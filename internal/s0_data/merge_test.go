package s0_data

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/contracts"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func discl(fund, isin string, date time.Time, pct float64) contracts.DisclosureRecord {
	return contracts.DisclosureRecord{FundID: fund, ISIN: isin, Issuer: "Issuer " + isin, Date: date, ShortPct: pct}
}

func obs(ticker string, item contracts.Item, date time.Time, v float64) contracts.MarketObservation {
	return contracts.MarketObservation{Ticker: ticker, Item: item, Date: date, Value: null.FloatFrom(v)}
}

func TestMergeDisclosuresFreshWins(t *testing.T) {
	stored := &contracts.Snapshot{Disclosures: []contracts.DisclosureRecord{
		discl("Fund A", "GB01", day(2), 0.6),
		discl("Fund A", "GB01", day(3), 0.7),
	}}
	fresh := &contracts.Snapshot{Disclosures: []contracts.DisclosureRecord{
		discl("Fund A", "GB01", day(3), 0.8),
		discl("Fund B", "GB01", day(4), 0.5),
	}}

	merged := Merge(stored, fresh)
	require.Len(t, merged.Disclosures, 3)
	assert.Equal(t, day(2), merged.Disclosures[0].Date)
	assert.Equal(t, 0.8, merged.Disclosures[1].ShortPct)
	assert.Equal(t, "Fund B", merged.Disclosures[2].FundID)
}

func TestMergeMarketReplacesPrices(t *testing.T) {
	stored := &contracts.Snapshot{Market: []contracts.MarketObservation{
		obs("BARC", contracts.ItemClose, day(2), 100),
		obs("BARC", contracts.ItemClose, day(3), 101),
		obs("BARC", contracts.ItemSharesOutstanding, day(2), 1e9),
		obs("BARC", contracts.ItemSharesOutstanding, day(3), 1e9),
	}}
	fresh := &contracts.Snapshot{Market: []contracts.MarketObservation{
		obs("BARC", contracts.ItemClose, day(3), 105),
		obs("BARC", contracts.ItemSharesOutstanding, day(3), 2e9),
	}}

	merged := Merge(stored, fresh)

	var closes, shares []contracts.MarketObservation
	for _, o := range merged.Market {
		switch o.Item {
		case contracts.ItemClose:
			closes = append(closes, o)
		case contracts.ItemSharesOutstanding:
			shares = append(shares, o)
		}
	}

	require.Len(t, closes, 1, "stored prices are dropped when fresh prices exist")
	assert.Equal(t, 105.0, closes[0].Value.Float64)

	require.Len(t, shares, 2)
	assert.Equal(t, 1e9, shares[0].Value.Float64)
	assert.Equal(t, 2e9, shares[1].Value.Float64)
}

func TestMergeKeepsStoredPricesWithoutFreshDownload(t *testing.T) {
	stored := &contracts.Snapshot{
		Market:     []contracts.MarketObservation{obs("BARC", contracts.ItemClose, day(2), 100)},
		Securities: []contracts.SecurityMeta{{Ticker: "BARC", ISIN: "GB01"}},
	}

	merged := Merge(stored, nil)
	assert.Len(t, merged.Market, 1)
	assert.Equal(t, stored.Securities, merged.Securities)
}

func TestTruncate(t *testing.T) {
	snap := &contracts.Snapshot{
		Disclosures: []contracts.DisclosureRecord{discl("A", "GB01", day(2), 0.6), discl("A", "GB01", day(4), 0.6)},
		Market:      []contracts.MarketObservation{obs("BARC", contracts.ItemClose, day(3), 1), obs("BARC", contracts.ItemClose, day(4), 1)},
		Securities:  []contracts.SecurityMeta{{Ticker: "BARC", ISIN: "GB01"}},
	}

	out := Truncate(snap, day(4))
	assert.Len(t, out.Disclosures, 1)
	assert.Len(t, out.Market, 1)
	assert.Len(t, out.Securities, 1)
}

func TestCheckOverlap(t *testing.T) {
	history := []contracts.DisclosureRecord{discl("A", "GB01", day(2), 0.6)}

	assert.True(t, CheckOverlap([]contracts.DisclosureRecord{discl("A", "GB01", day(2), 0.9)}, history))
	assert.False(t, CheckOverlap([]contracts.DisclosureRecord{discl("A", "GB01", day(3), 0.6)}, history))
	assert.False(t, CheckOverlap(nil, history))
}
