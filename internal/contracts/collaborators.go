package contracts

import (
	"context"
	"time"
)

// DisclosureSource supplies the daily disclosure publication
type DisclosureSource interface {
	Fetch(ctx context.Context) (*DisclosureFile, error)
}

// IdentifierResolver maps isins to candidate tickers.
// Isins with no candidates are returned separately.
type IdentifierResolver interface {
	Resolve(ctx context.Context, isins []string) (map[string][]string, []string, error)
}

// MarketDataSource supplies price history and quote snapshots.
// Both return (nil, nil) when the ticker has no data.
type MarketDataSource interface {
	History(ctx context.Context, ticker string, start time.Time) (*PriceHistory, error)
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

// Snapshot is the full content of the three stored tables
type Snapshot struct {
	Disclosures []DisclosureRecord
	Market      []MarketObservation
	Securities  []SecurityMeta
}

// PersistenceStore reads and replaces whole tables
// ⭐ SSOT: 저장소 인터페이스
type PersistenceStore interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	ReplaceAll(ctx context.Context, snap *Snapshot) error
}

// ReportSink accepts the derived security and fund tables
type ReportSink interface {
	Write(ctx context.Context, report *MetricsReport) error
}
