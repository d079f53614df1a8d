package s0_data

import (
	"context"
	"os"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/database"
)

// Requires the three tracker tables to exist in DATABASE_URL
func TestRepositoryRoundTrip(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := database.New(cfg)
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db.Pool)
	ctx := context.Background()

	before, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.ReplaceAll(ctx, before) })

	snap := &contracts.Snapshot{
		Disclosures: []contracts.DisclosureRecord{discl("Fund A", "GB01", day(2), 0.6)},
		Market: []contracts.MarketObservation{
			obs("BARC", contracts.ItemClose, day(2), 200),
			{Ticker: "BARC", Item: contracts.ItemVolume, Date: day(2), Value: null.Float{}},
		},
		Securities: []contracts.SecurityMeta{{Ticker: "BARC", ISIN: "GB01"}},
	}
	require.NoError(t, repo.ReplaceAll(ctx, snap))

	got, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Disclosures, 1)
	assert.Len(t, got.Market, 2)
	assert.Equal(t, snap.Securities, got.Securities)
}
