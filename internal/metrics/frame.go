package metrics

import (
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/internal/marketdata"
	"github.com/wonny/shorttracker/pkg/config"
)

// marketFrame holds the market series reindexed onto the run calendar
type marketFrame struct {
	days   []time.Time
	index  map[time.Time]int
	adj    *marketdata.Panel
	shares *marketdata.Panel
	ret    map[string][]null.Float
	adv    map[string][]null.Float
	bench  []null.Float
}

func buildMarketFrame(obs []contracts.MarketObservation, days []time.Time, index map[time.Time]int, cfg config.TrackerConfig, warnings *contracts.Warnings) *marketFrame {
	policies := marketdata.DefaultFillPolicies

	f := &marketFrame{
		days:  days,
		index: index,
		adj: marketdata.Pivot(obs, contracts.ItemAdjClose).
			Reindex(days, policies[contracts.ItemAdjClose]).
			Map(func(v float64) float64 { return v / cfg.PriceScale }),
		shares: marketdata.Pivot(obs, contracts.ItemSharesOutstanding).
			Reindex(days, policies[contracts.ItemSharesOutstanding]),
		ret: make(map[string][]null.Float),
		adv: make(map[string][]null.Float),
	}

	for _, t := range f.adj.Tickers {
		f.ret[t] = pctChange(f.adj.Values[t])
	}

	vol := marketdata.Pivot(obs, contracts.ItemVolume).Reindex(days, policies[contracts.ItemVolume])
	for _, t := range vol.Tickers {
		f.adv[t] = rollingMean(vol.Values[t], cfg.ADVWindow)
	}

	if r, ok := f.ret[cfg.BenchmarkTicker]; ok {
		f.bench = r
	} else {
		f.bench = make([]null.Float, len(days))
		warnings.Add(contracts.WarnDataGap, cfg.BenchmarkTicker, "no benchmark prices, relative metrics are null")
	}
	return f
}

func (f *marketFrame) at(series []null.Float, date time.Time) null.Float {
	i, ok := f.index[date]
	if !ok || i >= len(series) {
		return null.Float{}
	}
	return series[i]
}

// checkTicker records which market series a ticker lacks
func (f *marketFrame) checkTicker(ticker string, warnings *contracts.Warnings) {
	if !f.adj.Has(ticker) {
		warnings.Add(contracts.WarnDataGap, ticker, "no price history")
	}
	if !f.shares.Has(ticker) {
		warnings.Add(contracts.WarnDataGap, ticker, "no shares outstanding")
	}
	if _, ok := f.adv[ticker]; !ok {
		warnings.Add(contracts.WarnDataGap, ticker, "no volume history")
	}
}
