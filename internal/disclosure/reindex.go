package disclosure

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
)

// Observation is one reported short position of a fund in a security
type Observation struct {
	Date  time.Time
	Value float64
}

// Reindex projects sparse observations of one fund+security onto the
// business-day calendar from the first observation to end.
//
// A reported value is kept as is. Between reports the last value is carried
// forward only while it is at or above threshold: below threshold a fund is
// not obliged to report, so a carried value there cannot be asserted and the
// day is left null. A zero end means the last observation date.
// Weekend observations have no calendar slot and are dropped.
func Reindex(obs []Observation, threshold float64, end time.Time) []contracts.SeriesPoint {
	if len(obs) == 0 {
		return nil
	}

	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	byDate := make(map[time.Time]float64, len(sorted))
	for _, o := range sorted {
		byDate[calendar.Truncate(o.Date)] = o.Value
	}

	start := calendar.Truncate(sorted[0].Date)
	if end.IsZero() {
		end = sorted[len(sorted)-1].Date
	}

	days := calendar.Range(start, end)
	out := make([]contracts.SeriesPoint, len(days))

	last := null.Float{}
	for i, d := range days {
		out[i].Date = d
		if v, ok := byDate[d]; ok {
			out[i].Value = null.FloatFrom(v)
			last = out[i].Value
			continue
		}
		if last.Valid && last.Float64 >= threshold {
			out[i].Value = last
		}
	}
	return out
}

// GroupByFund splits records into per fund+security observation lists.
// Keys are returned in first-appearance order.
func GroupByFund(records []contracts.DisclosureRecord) ([]contracts.FundKey, map[contracts.FundKey][]Observation) {
	groups := make(map[contracts.FundKey][]Observation)
	var keys []contracts.FundKey
	for _, r := range records {
		k := r.Fund()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], Observation{Date: r.Date, Value: r.ShortPct})
	}
	return keys, groups
}

// ReindexAll reindexes every fund+security found in records up to end
func ReindexAll(records []contracts.DisclosureRecord, threshold float64, end time.Time) map[contracts.FundKey][]contracts.SeriesPoint {
	keys, groups := GroupByFund(records)
	out := make(map[contracts.FundKey][]contracts.SeriesPoint, len(keys))
	for _, k := range keys {
		out[k] = Reindex(groups[k], threshold, end)
	}
	return out
}

// ReindexSnapshots is Reindex for positions stored as daily current-sheet
// snapshots. A fund missing from the sheet after its last observation is
// below threshold there, so those days are undefined rather than carried.
func ReindexSnapshots(obs []Observation, threshold float64, end time.Time) []contracts.SeriesPoint {
	out := Reindex(obs, threshold, end)

	var last time.Time
	for _, o := range obs {
		if d := calendar.Truncate(o.Date); d.After(last) {
			last = d
		}
	}
	for i := range out {
		if out[i].Date.After(last) {
			out[i].Value = null.Float{}
		}
	}
	return out
}
