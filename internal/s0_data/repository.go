package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/database"
)

// Table names
const (
	TableDisclosures = "uk_short_discl"
	TableMarketData  = "market_data"
	TableSecurities  = "sec_metadata"
)

// Repository reads and replaces the three tracker tables
// ⭐ SSOT: 공매도/시장 데이터 저장소는 여기서만
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LoadSnapshot reads every row of the three tables
func (r *Repository) LoadSnapshot(ctx context.Context) (*contracts.Snapshot, error) {
	disclosures, err := r.loadDisclosures(ctx)
	if err != nil {
		return nil, err
	}
	market, err := r.loadMarket(ctx)
	if err != nil {
		return nil, err
	}
	securities, err := r.loadSecurities(ctx)
	if err != nil {
		return nil, err
	}

	return &contracts.Snapshot{
		Disclosures: disclosures,
		Market:      market,
		Securities:  securities,
	}, nil
}

func (r *Repository) loadDisclosures(ctx context.Context) ([]contracts.DisclosureRecord, error) {
	query := `
		SELECT fund, isin, issuer, date, short_pct
		FROM ` + TableDisclosures + `
		ORDER BY date, fund, isin
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query disclosures: %w", err)
	}
	defer rows.Close()

	var records []contracts.DisclosureRecord
	for rows.Next() {
		var d contracts.DisclosureRecord
		if err := rows.Scan(&d.FundID, &d.ISIN, &d.Issuer, &d.Date, &d.ShortPct); err != nil {
			return nil, fmt.Errorf("scan disclosure: %w", err)
		}
		records = append(records, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

func (r *Repository) loadMarket(ctx context.Context) ([]contracts.MarketObservation, error) {
	query := `
		SELECT ticker, item, date, value
		FROM ` + TableMarketData + `
		ORDER BY ticker, item, date
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query market data: %w", err)
	}
	defer rows.Close()

	var obs []contracts.MarketObservation
	for rows.Next() {
		var (
			o     contracts.MarketObservation
			item  string
			value *float64
		)
		if err := rows.Scan(&o.Ticker, &item, &o.Date, &value); err != nil {
			return nil, fmt.Errorf("scan market data: %w", err)
		}
		o.Item = contracts.Item(item)
		if !o.Item.Valid() {
			continue
		}
		if value != nil {
			o.Value.SetValid(*value)
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return obs, nil
}

func (r *Repository) loadSecurities(ctx context.Context) ([]contracts.SecurityMeta, error) {
	query := `
		SELECT ticker, isin
		FROM ` + TableSecurities + `
		ORDER BY isin
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query securities: %w", err)
	}
	defer rows.Close()

	var metas []contracts.SecurityMeta
	for rows.Next() {
		var m contracts.SecurityMeta
		if err := rows.Scan(&m.Ticker, &m.ISIN); err != nil {
			return nil, fmt.Errorf("scan security: %w", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return metas, nil
}

// ReplaceAll deletes and bulk-copies all three tables in one transaction
func (r *Repository) ReplaceAll(ctx context.Context, snap *contracts.Snapshot) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		discl := make([][]interface{}, 0, len(snap.Disclosures))
		for _, d := range snap.Disclosures {
			discl = append(discl, []interface{}{d.FundID, d.ISIN, d.Issuer, d.Date, d.ShortPct})
		}
		if err := replaceTable(ctx, tx, TableDisclosures,
			[]string{"fund", "isin", "issuer", "date", "short_pct"}, discl); err != nil {
			return err
		}

		market := make([][]interface{}, 0, len(snap.Market))
		for _, o := range snap.Market {
			market = append(market, []interface{}{o.Ticker, string(o.Item), o.Date, o.Value.Ptr()})
		}
		if err := replaceTable(ctx, tx, TableMarketData,
			[]string{"ticker", "item", "date", "value"}, market); err != nil {
			return err
		}

		secs := make([][]interface{}, 0, len(snap.Securities))
		for _, m := range snap.Securities {
			secs = append(secs, []interface{}{m.Ticker, m.ISIN})
		}
		return replaceTable(ctx, tx, TableSecurities, []string{"ticker", "isin"}, secs)
	})
}

func replaceTable(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]interface{}) error {
	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", table, n, len(rows))
	}
	return nil
}
