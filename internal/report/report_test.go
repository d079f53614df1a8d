package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/logger"
)

func sampleReport() *contracts.MetricsReport {
	return &contracts.MetricsReport{
		ReportDate:  time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		WindowStart: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Securities: []contracts.MetricsRow{{
			Ticker:      "BARC",
			Issuer:      "Barclays",
			ISIN:        "GB0031348658",
			ShortPct:    null.FloatFrom(0.0110000001),
			AmountHeld:  null.FloatFrom(11000000.4),
			ExposureGBP: null.FloatFrom(-24200000.004),
			ReturnPct:   null.FloatFrom(0.09999999),
			DaysToCover: null.FloatFrom(10.999),
		}},
		Funds: []contracts.MetricsRow{},
	}
}

func TestRoundRow(t *testing.T) {
	row := RoundRow(sampleReport().Securities[0])

	assert.Equal(t, 0.011, row.ShortPct.Float64)
	assert.Equal(t, 11000000.0, row.AmountHeld.Float64)
	assert.Equal(t, -24200000.0, row.ExposureGBP.Float64)
	assert.Equal(t, 0.1, row.ReturnPct.Float64)
	assert.Equal(t, 11.0, row.DaysToCover.Float64)
	assert.False(t, row.PnLGBP.Valid)
}

func TestJSONSinkWriteAndLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "metrics.json")
	sink := NewJSONSink(path, logger.Nop())
	ctx := context.Background()

	_, err := sink.Latest(ctx)
	assert.ErrorIs(t, err, contracts.ErrNoData)

	require.NoError(t, sink.Write(ctx, sampleReport()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "sec")
	assert.Contains(t, doc, "fund")
	sec := doc["sec"].([]interface{})[0].(map[string]interface{})
	assert.Nil(t, sec["pnl_gbp"], "nulls serialize as JSON null")
	assert.Equal(t, 0.011, sec["short_pct"])

	got, err := sink.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BARC", got.Securities[0].Ticker)
	assert.True(t, got.ReportDate.Equal(time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "£-24,200,000", GBP(null.FloatFrom(-24200000.4)))
	assert.Equal(t, "£950", GBP(null.FloatFrom(950)))
	assert.Equal(t, "-", GBP(null.Float{}))
	assert.Equal(t, "1.10%", Percent(null.FloatFrom(0.011), 2))
	assert.Equal(t, "11.00", Number(null.FloatFrom(11), 2))
}
