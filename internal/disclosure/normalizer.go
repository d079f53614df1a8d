package disclosure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/logger"
)

// Canonical column names of the disclosure tables
const (
	ColFund     = "Position Holder"
	ColISIN     = "ISIN"
	ColIssuer   = "Name of Share Issuer"
	ColDate     = "Position Date"
	ColShortPct = "Net Short Position (%)"
)

// RequiredColumns lists the fields every disclosure table must carry
var RequiredColumns = []string{ColFund, ColISIN, ColIssuer, ColDate, ColShortPct}

// ConflictPolicy decides which value wins when records share a natural key
type ConflictPolicy string

const (
	PolicyMax   ConflictPolicy = "max"
	PolicyMin   ConflictPolicy = "min"
	PolicyFirst ConflictPolicy = "first"
	PolicyLast  ConflictPolicy = "last"
)

// ParseConflictPolicy validates a policy name
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyMax, PolicyMin, PolicyFirst, PolicyLast:
		return p, nil
	case "":
		return PolicyMax, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}

var validate = validator.New()

// Normalizer validates raw disclosure tables and collapses duplicates
// ⭐ SSOT: 공시 정규화/중복제거는 여기서만
type Normalizer struct {
	policy   ConflictPolicy
	warnings *contracts.Warnings
	logger   *logger.Logger
}

// NewNormalizer creates a normalizer with the given conflict policy
func NewNormalizer(policy ConflictPolicy, warnings *contracts.Warnings, log *logger.Logger) *Normalizer {
	if policy == "" {
		policy = PolicyMax
	}
	return &Normalizer{
		policy:   policy,
		warnings: warnings,
		logger:   log.Module("normalizer"),
	}
}

// Normalize checks the schema, parses every row and deduplicates
func (n *Normalizer) Normalize(table contracts.RawTable) ([]contracts.DisclosureRecord, error) {
	return n.normalize(table, time.Time{})
}

// NormalizeAsOf is Normalize with every position date replaced by asOf.
// Used for the current-positions sheet, which is tracked as of the report date.
func (n *Normalizer) NormalizeAsOf(table contracts.RawTable, asOf time.Time) ([]contracts.DisclosureRecord, error) {
	if asOf.IsZero() {
		return nil, fmt.Errorf("normalize %q: as-of date is required", table.Name)
	}
	return n.normalize(table, calendar.Truncate(asOf))
}

func (n *Normalizer) normalize(table contracts.RawTable, asOf time.Time) ([]contracts.DisclosureRecord, error) {
	required := RequiredColumns
	if !asOf.IsZero() {
		// the position date is replaced, so it may be absent
		required = []string{ColFund, ColISIN, ColIssuer, ColShortPct}
	}
	cols, err := mapColumns(table, required)
	if err != nil {
		return nil, err
	}

	records := make([]contracts.DisclosureRecord, 0, len(table.Rows))
	skipped := 0
	for i, row := range table.Rows {
		rec, ok, err := parseRow(row, cols, asOf)
		if !ok {
			continue
		}
		if err == nil {
			err = validate.Struct(rec)
		}
		if err != nil {
			skipped++
			n.warnings.Add(contracts.WarnInvalidRow, fmt.Sprintf("%s row %d", table.Name, i+2), "%v", err)
			continue
		}
		records = append(records, rec)
	}

	out := n.Dedup(records)

	n.logger.WithFields(map[string]interface{}{
		"table":   table.Name,
		"rows":    len(table.Rows),
		"parsed":  len(records),
		"skipped": skipped,
		"unique":  len(out),
	}).Info("Normalized disclosure table")

	return out, nil
}

// MapColumns locates the required columns by case and whitespace insensitive match
func MapColumns(table contracts.RawTable) (map[string]int, error) {
	return mapColumns(table, RequiredColumns)
}

func mapColumns(table contracts.RawTable, required []string) (map[string]int, error) {
	index := make(map[string]int, len(table.Header))
	for i, h := range table.Header {
		key := columnKey(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	cols := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		i, ok := index[columnKey(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}
	if len(missing) > 0 {
		return nil, &contracts.SchemaError{Table: table.Name, Missing: missing}
	}
	return cols, nil
}

func columnKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// parseRow returns ok=false for blank rows
func parseRow(row []string, cols map[string]int, asOf time.Time) (contracts.DisclosureRecord, bool, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	fund, isin, issuer := cell(ColFund), cell(ColISIN), cell(ColIssuer)
	rawDate, rawPct := cell(ColDate), cell(ColShortPct)
	if fund == "" && isin == "" && issuer == "" && rawDate == "" && rawPct == "" {
		return contracts.DisclosureRecord{}, false, nil
	}

	rec := contracts.DisclosureRecord{
		FundID: fund,
		ISIN:   strings.ToUpper(isin),
		Issuer: issuer,
	}

	if asOf.IsZero() {
		date, err := ParseDate(rawDate)
		if err != nil {
			return rec, true, err
		}
		rec.Date = date
	} else {
		rec.Date = asOf
	}

	pct, err := ParsePercent(rawPct)
	if err != nil {
		return rec, true, err
	}
	rec.ShortPct = pct

	return rec, true, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02-Jan-2006",
	"2-Jan-06",
	"02 January 2006",
	"02.01.2006",
}

// excel day zero (1900 date system with the leap-year bug)
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate accepts ISO dates, UK day-first dates and Excel serial numbers
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 || serial > 2958465 {
			return time.Time{}, fmt.Errorf("excel serial %q out of range", s)
		}
		return excelEpoch.AddDate(0, 0, int(math.Floor(serial))), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return calendar.Truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParsePercent reads a percentage value such as "0.52" or "0.52%"
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, fmt.Errorf("empty short position")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid short position %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid short position %q", s)
	}
	return v, nil
}

// Dedup collapses exact duplicates silently and resolves natural-key
// conflicts with the configured policy, logging the offending rows.
// Output order follows the first appearance of each key.
func (n *Normalizer) Dedup(records []contracts.DisclosureRecord) []contracts.DisclosureRecord {
	groups := make(map[contracts.DisclosureKey][]contracts.DisclosureRecord, len(records))
	order := make([]contracts.DisclosureKey, 0, len(records))

	for _, r := range records {
		k := r.Key()
		g, seen := groups[k]
		if !seen {
			order = append(order, k)
		}
		if containsValue(g, r.ShortPct) {
			continue
		}
		groups[k] = append(g, r)
	}

	out := make([]contracts.DisclosureRecord, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if len(g) == 1 {
			out = append(out, g[0])
			continue
		}
		chosen := n.resolve(g)
		n.warnings.Add(contracts.WarnConflict, fmt.Sprintf("%s/%s/%s", k.FundID, k.ISIN, calendar.Format(k.Date)),
			"conflicting short positions %v, kept %v by %s policy", values(g), chosen.ShortPct, n.policy)
		out = append(out, chosen)
	}
	return out
}

func (n *Normalizer) resolve(g []contracts.DisclosureRecord) contracts.DisclosureRecord {
	chosen := g[0]
	switch n.policy {
	case PolicyFirst:
	case PolicyLast:
		chosen = g[len(g)-1]
	case PolicyMin:
		for _, r := range g[1:] {
			if r.ShortPct < chosen.ShortPct {
				chosen = r
			}
		}
	default:
		for _, r := range g[1:] {
			if r.ShortPct > chosen.ShortPct {
				chosen = r
			}
		}
	}
	return chosen
}

func containsValue(g []contracts.DisclosureRecord, v float64) bool {
	for _, r := range g {
		if r.ShortPct == v {
			return true
		}
	}
	return false
}

func values(g []contracts.DisclosureRecord) []float64 {
	out := make([]float64, len(g))
	for i, r := range g {
		out[i] = r.ShortPct
	}
	return out
}
