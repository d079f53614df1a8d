package contracts

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Item is a market data field stored in long form
type Item string

const (
	ItemClose             Item = "Close"
	ItemAdjClose          Item = "AdjClose"
	ItemVolume            Item = "Volume"
	ItemSharesOutstanding Item = "SharesOutstanding"
)

// MarketItems is the known item set, in storage order
var MarketItems = []Item{ItemClose, ItemAdjClose, ItemVolume, ItemSharesOutstanding}

// Valid reports whether the item belongs to the known set
func (i Item) Valid() bool {
	for _, known := range MarketItems {
		if i == known {
			return true
		}
	}
	return false
}

// MarketObservation is one long-form market data value.
// Natural key: (Ticker, Item, Date).
type MarketObservation struct {
	Ticker string     `json:"ticker"`
	Date   time.Time  `json:"date"`
	Item   Item       `json:"item"`
	Value  null.Float `json:"value"`
}

// MarketKey is the natural key of a market observation
type MarketKey struct {
	Ticker string
	Item   Item
	Date   time.Time
}

// Key returns the natural key
func (o MarketObservation) Key() MarketKey {
	return MarketKey{Ticker: o.Ticker, Item: o.Item, Date: o.Date}
}

// PriceBar is one wide row of daily price history
type PriceBar struct {
	Date     time.Time
	Close    null.Float
	AdjClose null.Float
	Volume   null.Float
}

// PriceHistory is the wide daily history of one ticker
type PriceHistory struct {
	Ticker string
	Bars   []PriceBar
}

// Quote is a point-in-time snapshot of one ticker
type Quote struct {
	Ticker            string
	SharesOutstanding null.Float
	RegularPrice      null.Float
	Currency          string
}

// TickerMap maps isin -> ticker. Several isins may share a ticker.
type TickerMap map[string]string

// SecurityMeta is one row of the ticker map table
type SecurityMeta struct {
	Ticker string `json:"ticker"`
	ISIN   string `json:"isin"`
}

// Rows flattens the map into table rows ordered by isin
func (m TickerMap) Rows() []SecurityMeta {
	rows := make([]SecurityMeta, 0, len(m))
	for isin, ticker := range m {
		rows = append(rows, SecurityMeta{Ticker: ticker, ISIN: isin})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ISIN != rows[j].ISIN {
			return rows[i].ISIN < rows[j].ISIN
		}
		return rows[i].Ticker < rows[j].Ticker
	})
	return rows
}

// TickerMapFromRows builds a map from table rows; later rows win
func TickerMapFromRows(rows []SecurityMeta) TickerMap {
	m := make(TickerMap, len(rows))
	for _, r := range rows {
		m[r.ISIN] = r.Ticker
	}
	return m
}

// Tickers returns the distinct tickers in the map, sorted
func (m TickerMap) Tickers() []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, t := range m {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
