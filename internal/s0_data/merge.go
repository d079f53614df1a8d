package s0_data

import (
	"sort"
	"time"

	"github.com/wonny/shorttracker/internal/contracts"
)

// storedDisclosureKey is the merge key of stored disclosures
type storedDisclosureKey struct {
	Date   time.Time
	FundID string
	ISIN   string
}

func disclosureKey(d contracts.DisclosureRecord) storedDisclosureKey {
	return storedDisclosureKey{Date: d.Date, FundID: d.FundID, ISIN: d.ISIN}
}

// Merge combines stored history with freshly collected rows. Fresh rows win:
//   - disclosures are keyed (date, fund, isin)
//   - shares outstanding is keyed (ticker, item, date)
//   - prices are replaced wholesale by the fresh download
//   - the ticker map is the fresh one when present
func Merge(stored, fresh *contracts.Snapshot) *contracts.Snapshot {
	if stored == nil {
		stored = &contracts.Snapshot{}
	}
	if fresh == nil {
		fresh = &contracts.Snapshot{}
	}

	out := &contracts.Snapshot{
		Disclosures: mergeDisclosures(stored.Disclosures, fresh.Disclosures),
		Market:      mergeMarket(stored.Market, fresh.Market),
		Securities:  fresh.Securities,
	}
	if len(out.Securities) == 0 {
		out.Securities = stored.Securities
	}
	return out
}

func mergeDisclosures(stored, fresh []contracts.DisclosureRecord) []contracts.DisclosureRecord {
	byKey := make(map[storedDisclosureKey]contracts.DisclosureRecord, len(stored)+len(fresh))
	for _, d := range stored {
		byKey[disclosureKey(d)] = d
	}
	for _, d := range fresh {
		byKey[disclosureKey(d)] = d
	}

	out := make([]contracts.DisclosureRecord, 0, len(byKey))
	for _, d := range byKey {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.FundID != b.FundID {
			return a.FundID < b.FundID
		}
		return a.ISIN < b.ISIN
	})
	return out
}

func mergeMarket(stored, fresh []contracts.MarketObservation) []contracts.MarketObservation {
	byKey := make(map[contracts.MarketKey]contracts.MarketObservation, len(stored)+len(fresh))
	for _, o := range stored {
		if o.Item == contracts.ItemSharesOutstanding {
			byKey[o.Key()] = o
		}
	}

	// 가격 데이터는 새 다운로드로 통째로 교체
	hasFreshPrices := false
	for _, o := range fresh {
		if o.Item != contracts.ItemSharesOutstanding {
			hasFreshPrices = true
			break
		}
	}
	if !hasFreshPrices {
		for _, o := range stored {
			if o.Item != contracts.ItemSharesOutstanding {
				byKey[o.Key()] = o
			}
		}
	}

	for _, o := range fresh {
		byKey[o.Key()] = o
	}

	out := make([]contracts.MarketObservation, 0, len(byKey))
	for _, o := range byKey {
		out = append(out, o)
	}
	SortMarket(out)
	return out
}

// SortMarket orders observations by (ticker, item, date)
func SortMarket(obs []contracts.MarketObservation) {
	sort.Slice(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		if a.Item != b.Item {
			return a.Item < b.Item
		}
		return a.Date.Before(b.Date)
	})
}

// Truncate drops disclosure and market rows dated before cutoff.
// The ticker map is kept as is.
func Truncate(snap *contracts.Snapshot, cutoff time.Time) *contracts.Snapshot {
	out := &contracts.Snapshot{Securities: snap.Securities}
	for _, d := range snap.Disclosures {
		if !d.Date.Before(cutoff) {
			out.Disclosures = append(out.Disclosures, d)
		}
	}
	for _, o := range snap.Market {
		if !o.Date.Before(cutoff) {
			out.Market = append(out.Market, o)
		}
	}
	return out
}

// CheckOverlap reports whether any current disclosure is already stored
// under the same (date, fund, isin)
func CheckOverlap(current, history []contracts.DisclosureRecord) bool {
	stored := make(map[storedDisclosureKey]struct{}, len(history))
	for _, d := range history {
		stored[disclosureKey(d)] = struct{}{}
	}
	for _, d := range current {
		if _, ok := stored[disclosureKey(d)]; ok {
			return true
		}
	}
	return false
}
