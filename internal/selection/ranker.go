package selection

import (
	"sort"
	"time"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/logger"
)

// RankedSecurity is a security with its short interest summed across funds
type RankedSecurity struct {
	Rank     int       `json:"rank"`
	Issuer   string    `json:"issuer"`
	ISIN     string    `json:"isin"`
	Date     time.Time `json:"date"`
	TotalPct float64   `json:"total_pct"`
	Funds    int       `json:"funds"`
}

// Key returns the (issuer, isin) key
func (s RankedSecurity) Key() contracts.SecurityKey {
	return contracts.SecurityKey{Issuer: s.Issuer, ISIN: s.ISIN}
}

// Selection is the result of both top-N rankings
type Selection struct {
	Securities []RankedSecurity
	Funds      []contracts.DisclosureRecord
}

// ISINs returns the distinct isins selected by either ranking, in rank order
func (s *Selection) ISINs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(isin string) {
		if _, ok := seen[isin]; ok {
			return
		}
		seen[isin] = struct{}{}
		out = append(out, isin)
	}
	for _, sec := range s.Securities {
		add(sec.ISIN)
	}
	for _, f := range s.Funds {
		add(f.ISIN)
	}
	return out
}

// Ranker selects the most shorted securities and fund positions
// ⭐ SSOT: Top-N 선정 로직은 여기서만
type Ranker struct {
	topN   int
	logger *logger.Logger
}

// NewRanker creates a new ranker returning at most topN rows per ranking
func NewRanker(topN int, log *logger.Logger) *Ranker {
	return &Ranker{
		topN:   topN,
		logger: log.Module("ranker"),
	}
}

// Select runs both rankings on the current day's disclosures
func (r *Ranker) Select(current []contracts.DisclosureRecord) *Selection {
	sel := &Selection{
		Securities: TopSecurities(current, r.topN),
		Funds:      TopFunds(current, r.topN),
	}

	fields := map[string]interface{}{
		"records":    len(current),
		"securities": len(sel.Securities),
		"funds":      len(sel.Funds),
	}
	if len(sel.Securities) > 0 {
		fields["top_isin"] = sel.Securities[0].ISIN
		fields["top_total_pct"] = sel.Securities[0].TotalPct
	}
	r.logger.WithFields(fields).Info("Top-N selection completed")

	return sel
}

// TopSecurities groups records by (issuer, isin), sums the short position
// across funds and returns the n largest sums. Ties keep first-appearance order.
func TopSecurities(records []contracts.DisclosureRecord, n int) []RankedSecurity {
	index := make(map[contracts.SecurityKey]int)
	var ranked []RankedSecurity

	for _, rec := range records {
		k := rec.Security()
		i, ok := index[k]
		if !ok {
			i = len(ranked)
			index[k] = i
			ranked = append(ranked, RankedSecurity{Issuer: rec.Issuer, ISIN: rec.ISIN, Date: rec.Date})
		}
		ranked[i].TotalPct += rec.ShortPct
		ranked[i].Funds++
		if rec.Date.After(ranked[i].Date) {
			ranked[i].Date = rec.Date
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalPct > ranked[j].TotalPct
	})

	ranked = head(ranked, n)
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// TopFunds returns the n largest individual disclosures, not grouped.
// Ties keep input order.
func TopFunds(records []contracts.DisclosureRecord, n int) []contracts.DisclosureRecord {
	sorted := make([]contracts.DisclosureRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ShortPct > sorted[j].ShortPct
	})
	return head(sorted, n)
}

func head[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}

// History holds the disclosure history restricted to a selection
type History struct {
	Securities []contracts.DisclosureRecord // every fund's rows for a selected security
	Funds      []contracts.DisclosureRecord // rows of the selected fund positions only
}

// FilterHistory keeps the historical rows whose keys were selected today.
// Membership is decided by the current selection, not by historical rank.
func FilterHistory(history []contracts.DisclosureRecord, sel *Selection) History {
	secKeys := make(map[contracts.SecurityKey]struct{}, len(sel.Securities))
	for _, s := range sel.Securities {
		secKeys[s.Key()] = struct{}{}
	}
	fundKeys := make(map[contracts.FundKey]struct{}, len(sel.Funds))
	for _, f := range sel.Funds {
		fundKeys[f.Fund()] = struct{}{}
	}

	var out History
	for _, rec := range history {
		if _, ok := secKeys[rec.Security()]; ok {
			out.Securities = append(out.Securities, rec)
		}
		if _, ok := fundKeys[rec.Fund()]; ok {
			out.Funds = append(out.Funds, rec)
		}
	}
	return out
}

// OnDate returns the records dated d
func OnDate(records []contracts.DisclosureRecord, d time.Time) []contracts.DisclosureRecord {
	var out []contracts.DisclosureRecord
	for _, r := range records {
		if r.Date.Equal(d) {
			out = append(out, r)
		}
	}
	return out
}

// LatestDate returns the maximum record date, zero when empty
func LatestDate(records []contracts.DisclosureRecord) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}
