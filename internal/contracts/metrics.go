package contracts

import (
	"time"

	"github.com/guregu/null/v6"
)

// MetricsRow is one aggregated line of the security or fund report.
// Fund is empty for security-level rows.
type MetricsRow struct {
	Ticker string `json:"ticker"`
	Issuer string `json:"issuer"`
	ISIN   string `json:"isin"`
	Fund   string `json:"fund,omitempty"`

	ShortPct       null.Float `json:"short_pct"`   // fraction of shares outstanding
	AmountHeld     null.Float `json:"amount_held"` // shares
	ExposureGBP    null.Float `json:"exposure_gbp"`
	PnLGBP         null.Float `json:"pnl_gbp"`
	RelPnLGBP      null.Float `json:"rel_pnl_gbp"`
	ReturnPct      null.Float `json:"return"`
	RelReturnPct   null.Float `json:"rel_return"`
	DaysToCover    null.Float `json:"days_to_cover"`
	ExposureChange null.Float `json:"exposure_change"`

	// ShortFlowBound is a conservative bound on the position change over
	// the window, not the true flow.
	ShortFlowBound null.Float `json:"short_flow_bound"`

	WindowStart time.Time `json:"window_start"`
}

// MetricsReport is the output of one metrics run
type MetricsReport struct {
	ReportDate  time.Time    `json:"report_date"`
	WindowStart time.Time    `json:"window_start"`
	Securities  []MetricsRow `json:"sec"`
	Funds       []MetricsRow `json:"fund"`
	Warnings    []Warning    `json:"warnings"`
	ConfigHash  string       `json:"config_hash,omitempty"` // settings that produced the report
	GeneratedAt time.Time    `json:"generated_at"`
}

// IsEmpty reports whether no security could be reported
func (r *MetricsReport) IsEmpty() bool {
	return r == nil || (len(r.Securities) == 0 && len(r.Funds) == 0)
}
