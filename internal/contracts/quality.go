package contracts

import "time"

// Coverage keys of a DataQualitySnapshot
const (
	CoveragePrice  = "price"
	CoverageVolume = "volume"
	CoverageShares = "shares_outstanding"
	CoverageTicker = "ticker"
)

// DataQualitySnapshot summarizes how much of the tracked set has usable
// market data at the report date
// ⭐ SSOT: 수집 → 지표 계산 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	Date         time.Time          `json:"date"`
	TotalISINs   int                `json:"total_isins"`
	ValidTickers int                `json:"valid_tickers"` // ticker with price, volume and shares outstanding
	Coverage     map[string]float64 `json:"coverage"`      // 데이터별 커버리지
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`
	Failures     []string           `json:"failures,omitempty"`
}

// CoverageRate returns the average coverage rate across all data types
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
