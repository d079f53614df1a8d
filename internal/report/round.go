package report

import (
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/wonny/shorttracker/internal/contracts"
)

// Decimal places per value group
const (
	PlacesGBP    = 2
	PlacesShares = 0
	PlacesRatio  = 6
	PlacesDays   = 2
)

// Round returns a copy of the report with every value rounded for output
func Round(r *contracts.MetricsReport) *contracts.MetricsReport {
	out := *r
	out.Securities = roundRows(r.Securities)
	out.Funds = roundRows(r.Funds)
	return &out
}

func roundRows(rows []contracts.MetricsRow) []contracts.MetricsRow {
	if rows == nil {
		return nil
	}
	out := make([]contracts.MetricsRow, len(rows))
	for i, row := range rows {
		out[i] = RoundRow(row)
	}
	return out
}

// RoundRow rounds GBP amounts to pennies, shares to units and ratios to 6 dp
func RoundRow(row contracts.MetricsRow) contracts.MetricsRow {
	row.ShortPct = roundTo(row.ShortPct, PlacesRatio)
	row.AmountHeld = roundTo(row.AmountHeld, PlacesShares)
	row.ExposureGBP = roundTo(row.ExposureGBP, PlacesGBP)
	row.PnLGBP = roundTo(row.PnLGBP, PlacesGBP)
	row.RelPnLGBP = roundTo(row.RelPnLGBP, PlacesGBP)
	row.ReturnPct = roundTo(row.ReturnPct, PlacesRatio)
	row.RelReturnPct = roundTo(row.RelReturnPct, PlacesRatio)
	row.DaysToCover = roundTo(row.DaysToCover, PlacesDays)
	row.ExposureChange = roundTo(row.ExposureChange, PlacesGBP)
	row.ShortFlowBound = roundTo(row.ShortFlowBound, PlacesRatio)
	return row
}

func roundTo(v null.Float, places int32) null.Float {
	if !v.Valid {
		return v
	}
	f, _ := decimal.NewFromFloat(v.Float64).Round(places).Float64()
	return null.FloatFrom(f)
}

// GBP formats an amount as pounds with thousands separators, "-" when null
func GBP(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return "£" + group(decimal.NewFromFloat(v.Float64).StringFixed(0))
}

// Percent formats a fraction as a percentage, "-" when null
func Percent(v null.Float, places int32) string {
	if !v.Valid {
		return "-"
	}
	return decimal.NewFromFloat(v.Float64).Shift(2).StringFixed(places) + "%"
}

// Number formats a plain value, "-" when null
func Number(v null.Float, places int32) string {
	if !v.Valid {
		return "-"
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(places)
}

func group(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	out := make([]byte, 0, n+n/3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return sign + string(out)
}
