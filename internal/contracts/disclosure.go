package contracts

import (
	"time"

	"github.com/guregu/null/v6"
)

// DisclosureRecord is one published net short position
// ⭐ SSOT: 공매도 공시 레코드는 여기서만 정의
type DisclosureRecord struct {
	FundID   string    `json:"fund" validate:"required"`
	ISIN     string    `json:"isin" validate:"required"`
	Issuer   string    `json:"issuer" validate:"required"`
	Date     time.Time `json:"date" validate:"required"`
	ShortPct float64   `json:"short_pct" validate:"gte=0,lte=100"` // % of shares outstanding
}

// DisclosureKey is the natural key of a disclosure record
type DisclosureKey struct {
	FundID string
	Issuer string
	ISIN   string
	Date   time.Time
}

// SecurityKey identifies a shorted security
type SecurityKey struct {
	Issuer string `json:"issuer"`
	ISIN   string `json:"isin"`
}

// FundKey identifies one fund's position in one security
type FundKey struct {
	Issuer string `json:"issuer"`
	ISIN   string `json:"isin"`
	FundID string `json:"fund"`
}

// Key returns the natural key
func (r DisclosureRecord) Key() DisclosureKey {
	return DisclosureKey{FundID: r.FundID, Issuer: r.Issuer, ISIN: r.ISIN, Date: r.Date}
}

// Security returns the (issuer, isin) grouping key
func (r DisclosureRecord) Security() SecurityKey {
	return SecurityKey{Issuer: r.Issuer, ISIN: r.ISIN}
}

// Fund returns the (issuer, isin, fund) grouping key
func (r DisclosureRecord) Fund() FundKey {
	return FundKey{Issuer: r.Issuer, ISIN: r.ISIN, FundID: r.FundID}
}

// RawTable is an untyped table as delivered by the disclosure source
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// DisclosureFile is one daily publication of the disclosure source
type DisclosureFile struct {
	ReportDate   time.Time
	LastModified time.Time
	Current      RawTable
	Historic     RawTable
}

// SeriesPoint is one business day of a reindexed disclosure series.
// Value is null where the position cannot be asserted.
type SeriesPoint struct {
	Date  time.Time  `json:"date"`
	Value null.Float `json:"value"`
}

// FlowPoint is the conservative bound on the day-over-day position change.
// It equals the true change only when both neighbouring values are defined.
type FlowPoint struct {
	Date  time.Time `json:"date"`
	Bound float64   `json:"bound"`
}
