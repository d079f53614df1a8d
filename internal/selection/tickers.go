package selection

import (
	"sort"
	"strings"

	"github.com/wonny/shorttracker/internal/contracts"
)

// ResolveTickers collapses resolver candidates to one ticker per isin.
// Several candidates resolve to the lexicographically smallest one; isins
// without candidates are left out. Both cases are recorded as warnings.
func ResolveTickers(candidates map[string][]string, unresolved []string, warnings *contracts.Warnings) contracts.TickerMap {
	isins := make([]string, 0, len(candidates))
	for isin := range candidates {
		isins = append(isins, isin)
	}
	sort.Strings(isins)

	out := make(contracts.TickerMap, len(isins))
	for _, isin := range isins {
		tickers := cleanTickers(candidates[isin])
		switch len(tickers) {
		case 0:
			warnings.Add(contracts.WarnResolution, isin, "no ticker found")
		case 1:
			out[isin] = tickers[0]
		default:
			out[isin] = tickers[0]
			warnings.Add(contracts.WarnResolution, isin, "ambiguous tickers %v, picked %s", tickers, tickers[0])
		}
	}

	missing := append([]string(nil), unresolved...)
	sort.Strings(missing)
	for _, isin := range missing {
		if _, ok := candidates[isin]; ok {
			continue
		}
		warnings.Add(contracts.WarnResolution, isin, "identifier not resolved")
	}
	return out
}

func cleanTickers(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Merge overlays fresh resolutions on an existing map; fresh entries win
func Merge(existing, fresh contracts.TickerMap) contracts.TickerMap {
	out := make(contracts.TickerMap, len(existing)+len(fresh))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out
}
