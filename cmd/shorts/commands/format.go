package commands

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/internal/report"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, fields ...[2]string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(fields) > 0 {
		PrintSeparator()
		for _, f := range fields {
			PrintKeyValue(f[0], f[1], 12)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		if len(val) > widths[i] {
			val = val[:widths[i]]
		}
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintMetricsTable prints security or fund rows
func PrintMetricsTable(rows []contracts.MetricsRow, withFund bool) {
	columns := []string{"Ticker", "Issuer", "Short %", "Exposure", "PnL", "Return", "Rel Ret", "DTC", "Flow bnd"}
	widths := []int{8, 22, 8, 16, 13, 8, 8, 6, 9}
	if withFund {
		columns = append([]string{"Fund"}, columns...)
		widths = append([]int{24}, widths...)
	}

	PrintTableHeader(columns, widths)
	for _, r := range rows {
		values := []string{
			r.Ticker,
			r.Issuer,
			report.Percent(r.ShortPct, 2),
			report.GBP(r.ExposureGBP),
			report.GBP(r.PnLGBP),
			report.Percent(r.ReturnPct, 1),
			report.Percent(r.RelReturnPct, 1),
			report.Number(r.DaysToCover, 1),
			report.Percent(r.ShortFlowBound, 2),
		}
		if withFund {
			values = append([]string{r.Fund}, values...)
		}
		PrintTableRow(values, widths)
	}
}

// PrintWarnings prints warnings grouped by kind
func PrintWarnings(warnings []contracts.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Println()
	PrintWarning(fmt.Sprintf("%d warnings", len(warnings)))
	for _, w := range warnings {
		fmt.Printf("   • %s\n", w)
	}
}

// PrintQuality prints a data quality snapshot
func PrintQuality(q *contracts.DataQualitySnapshot) {
	if q == nil {
		return
	}
	fmt.Println()
	PrintInfo(fmt.Sprintf("Data quality %s (ISINs %d, valid tickers %d)", calendar.Format(q.Date), q.TotalISINs, q.ValidTickers))
	for _, name := range []string{contracts.CoverageTicker, contracts.CoveragePrice, contracts.CoverageVolume, contracts.CoverageShares} {
		PrintKeyValue(name, report.Percent(null.FloatFrom(q.Coverage[name]), 1), 20)
	}
	PrintKeyValue("score", fmt.Sprintf("%.3f", q.QualityScore), 20)
	if q.Passed {
		PrintSuccess("Quality gate passed")
		return
	}
	for _, f := range q.Failures {
		PrintWarning(f)
	}
}
