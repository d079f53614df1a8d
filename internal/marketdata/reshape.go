// Package marketdata reshapes per-ticker price tables into long-form
// observations and reindexes them onto a business-day calendar.
package marketdata

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
)

// FillPolicy selects the gap filling applied after reindexing
type FillPolicy struct {
	Forward  bool
	Backward bool
}

// DefaultFillPolicies: prices and shares outstanding are carried both ways,
// volume is never filled.
var DefaultFillPolicies = map[contracts.Item]FillPolicy{
	contracts.ItemClose:             {Forward: true, Backward: true},
	contracts.ItemAdjClose:          {Forward: true, Backward: true},
	contracts.ItemSharesOutstanding: {Forward: true, Backward: true},
	contracts.ItemVolume:            {},
}

// Melt converts wide histories into long observations over the known item set.
// Nil or empty histories are skipped with a data gap warning.
func Melt(histories map[string]*contracts.PriceHistory, warnings *contracts.Warnings) []contracts.MarketObservation {
	tickers := make([]string, 0, len(histories))
	for t := range histories {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var out []contracts.MarketObservation
	for _, ticker := range tickers {
		h := histories[ticker]
		if h == nil || len(h.Bars) == 0 {
			warnings.Add(contracts.WarnDataGap, ticker, "no price history")
			continue
		}
		out = append(out, MeltOne(ticker, h.Bars)...)
	}
	return out
}

// MeltOne converts one ticker's bars; null cells are not emitted
func MeltOne(ticker string, bars []contracts.PriceBar) []contracts.MarketObservation {
	out := make([]contracts.MarketObservation, 0, len(bars)*3)
	for _, b := range bars {
		date := calendar.Truncate(b.Date)
		for _, cell := range []struct {
			item  contracts.Item
			value null.Float
		}{
			{contracts.ItemClose, b.Close},
			{contracts.ItemAdjClose, b.AdjClose},
			{contracts.ItemVolume, b.Volume},
		} {
			if !cell.value.Valid {
				continue
			}
			out = append(out, contracts.MarketObservation{Ticker: ticker, Date: date, Item: cell.item, Value: cell.value})
		}
	}
	return out
}

// Panel is one item pivoted to a date x ticker grid
type Panel struct {
	Item    contracts.Item
	Dates   []time.Time
	Tickers []string
	Values  map[string][]null.Float // ticker -> values aligned with Dates

	index map[time.Time]int
}

// Pivot builds the grid for item from long observations.
// Dates are the sorted union of observed dates; later duplicates win.
func Pivot(obs []contracts.MarketObservation, item contracts.Item) *Panel {
	dateSet := make(map[time.Time]struct{})
	tickerSet := make(map[string]struct{})
	for _, o := range obs {
		if o.Item != item {
			continue
		}
		dateSet[calendar.Truncate(o.Date)] = struct{}{}
		tickerSet[o.Ticker] = struct{}{}
	}

	p := newPanel(item, sortedDates(dateSet), sortedStrings(tickerSet))
	for _, o := range obs {
		if o.Item != item || !o.Value.Valid {
			continue
		}
		p.Values[o.Ticker][p.index[calendar.Truncate(o.Date)]] = o.Value
	}
	return p
}

func newPanel(item contracts.Item, dates []time.Time, tickers []string) *Panel {
	p := &Panel{
		Item:    item,
		Dates:   dates,
		Tickers: tickers,
		Values:  make(map[string][]null.Float, len(tickers)),
		index:   calendar.Index(dates),
	}
	for _, t := range tickers {
		p.Values[t] = make([]null.Float, len(dates))
	}
	return p
}

// At returns the value for ticker on date, null when absent
func (p *Panel) At(ticker string, date time.Time) null.Float {
	col, ok := p.Values[ticker]
	if !ok {
		return null.Float{}
	}
	i, ok := p.index[date]
	if !ok {
		return null.Float{}
	}
	return col[i]
}

// Has reports whether the panel carries a column for ticker
func (p *Panel) Has(ticker string) bool {
	_, ok := p.Values[ticker]
	return ok
}

// Reindex projects the panel onto days using an as-of merge: the calendar is
// unioned with the observed dates, gaps are filled on the union per policy,
// and the result is restricted to days. Observations on non-calendar dates
// (weekends, dates past the window) can therefore still fill calendar days.
func (p *Panel) Reindex(days []time.Time, policy FillPolicy) *Panel {
	unionSet := make(map[time.Time]struct{}, len(days)+len(p.Dates))
	for _, d := range days {
		unionSet[d] = struct{}{}
	}
	for _, d := range p.Dates {
		unionSet[d] = struct{}{}
	}
	union := sortedDates(unionSet)

	unionIndex := calendar.Index(union)

	out := newPanel(p.Item, append([]time.Time(nil), days...), append([]string(nil), p.Tickers...))
	for _, ticker := range p.Tickers {
		col := make([]null.Float, len(union))
		for i, d := range union {
			col[i] = p.At(ticker, d)
		}
		if policy.Forward {
			forwardFill(col)
		}
		if policy.Backward {
			backFill(col)
		}

		for i, d := range days {
			out.Values[ticker][i] = col[unionIndex[d]]
		}
	}
	return out
}

// Map applies fn to every defined value
func (p *Panel) Map(fn func(float64) float64) *Panel {
	out := newPanel(p.Item, p.Dates, p.Tickers)
	for _, t := range p.Tickers {
		for i, v := range p.Values[t] {
			if v.Valid {
				out.Values[t][i] = null.FloatFrom(fn(v.Float64))
			}
		}
	}
	return out
}

// Melt flattens the panel back to long form, skipping null cells
func (p *Panel) Melt() []contracts.MarketObservation {
	var out []contracts.MarketObservation
	for _, t := range p.Tickers {
		for i, v := range p.Values[t] {
			if !v.Valid {
				continue
			}
			out = append(out, contracts.MarketObservation{Ticker: t, Date: p.Dates[i], Item: p.Item, Value: v})
		}
	}
	return out
}

// Reshape reindexes every known item of obs onto days with the given
// policies and returns the long-form result ordered by item then ticker.
func Reshape(obs []contracts.MarketObservation, days []time.Time, policies map[contracts.Item]FillPolicy) []contracts.MarketObservation {
	if policies == nil {
		policies = DefaultFillPolicies
	}
	var out []contracts.MarketObservation
	for _, item := range contracts.MarketItems {
		out = append(out, Pivot(obs, item).Reindex(days, policies[item]).Melt()...)
	}
	return out
}

func forwardFill(col []null.Float) {
	last := null.Float{}
	for i := range col {
		if col[i].Valid {
			last = col[i]
		} else if last.Valid {
			col[i] = last
		}
	}
}

func backFill(col []null.Float) {
	next := null.Float{}
	for i := len(col) - 1; i >= 0; i-- {
		if col[i].Valid {
			next = col[i]
		} else if next.Valid {
			col[i] = next
		}
	}
}

func sortedDates(set map[time.Time]struct{}) []time.Time {
	out := make([]time.Time, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sortedStrings(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
