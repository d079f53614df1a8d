package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/logger"
)

var today = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func rec(fund, issuer, isin string, pct float64) contracts.DisclosureRecord {
	return contracts.DisclosureRecord{FundID: fund, Issuer: issuer, ISIN: isin, Date: today, ShortPct: pct}
}

func TestTopSecurities(t *testing.T) {
	records := []contracts.DisclosureRecord{
		rec("F1", "Alpha", "GB1", 3),
		rec("F1", "Beta", "GB2", 1),
		rec("F2", "Gamma", "GB3", 5),
		rec("F2", "Alpha", "GB1", 2),
		rec("F3", "Beta", "GB2", 2),
		rec("F3", "Gamma", "GB3", 3),
	}

	got := TopSecurities(records, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Gamma", got[0].Issuer)
	assert.InDelta(t, 8, got[0].TotalPct, 1e-9)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "Alpha", got[1].Issuer)
	assert.InDelta(t, 5, got[1].TotalPct, 1e-9)
	assert.Equal(t, 2, got[1].Funds)
}

func TestTopSecuritiesStableTies(t *testing.T) {
	records := []contracts.DisclosureRecord{
		rec("F1", "B", "GB2", 1),
		rec("F1", "A", "GB1", 1),
		rec("F1", "C", "GB3", 1),
	}
	got := TopSecurities(records, 5)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"GB2", "GB1", "GB3"}, []string{got[0].ISIN, got[1].ISIN, got[2].ISIN})
}

func TestTopFunds(t *testing.T) {
	records := []contracts.DisclosureRecord{
		rec("F1", "A", "GB1", 0.6),
		rec("F2", "A", "GB1", 1.2),
		rec("F3", "B", "GB2", 0.6),
		rec("F4", "C", "GB3", 0.9),
	}

	got := TopFunds(records, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"F2", "F4", "F1"}, []string{got[0].FundID, got[1].FundID, got[2].FundID})

	assert.Len(t, TopFunds(records, 10), 4)
	assert.Empty(t, TopFunds(nil, 3))
	assert.Equal(t, "F1", records[0].FundID, "input must not be reordered")
}

func TestRankerSelect(t *testing.T) {
	r := NewRanker(1, logger.Nop())
	sel := r.Select([]contracts.DisclosureRecord{
		rec("F1", "A", "GB1", 0.6),
		rec("F2", "B", "GB2", 0.9),
	})

	require.Len(t, sel.Securities, 1)
	require.Len(t, sel.Funds, 1)
	assert.Equal(t, []string{"GB2"}, sel.ISINs())
}

func TestFilterHistory(t *testing.T) {
	prev := today.AddDate(0, 0, -1)
	old := func(fund, issuer, isin string, pct float64) contracts.DisclosureRecord {
		r := rec(fund, issuer, isin, pct)
		r.Date = prev
		return r
	}

	sel := &Selection{
		Securities: []RankedSecurity{{Issuer: "A", ISIN: "GB1"}},
		Funds:      []contracts.DisclosureRecord{rec("F9", "B", "GB2", 0.9)},
	}
	history := []contracts.DisclosureRecord{
		old("F1", "A", "GB1", 0.6),
		old("F2", "A", "GB1", 0.7),
		old("F9", "B", "GB2", 0.8),
		old("F8", "B", "GB2", 3.0),
		old("F1", "C", "GB3", 5.0),
	}

	got := FilterHistory(history, sel)
	assert.Len(t, got.Securities, 2)
	require.Len(t, got.Funds, 1)
	assert.Equal(t, "F9", got.Funds[0].FundID)
}

func TestLatestDateAndOnDate(t *testing.T) {
	records := []contracts.DisclosureRecord{rec("F1", "A", "GB1", 1)}
	records = append(records, contracts.DisclosureRecord{FundID: "F2", Date: today.AddDate(0, 0, -3)})

	assert.Equal(t, today, LatestDate(records))
	assert.Len(t, OnDate(records, today), 1)
	assert.True(t, LatestDate(nil).IsZero())
}
