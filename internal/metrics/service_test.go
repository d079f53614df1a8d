package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/logger"
)

type memStore struct {
	snap *contracts.Snapshot
	err  error
}

func (m *memStore) LoadSnapshot(ctx context.Context) (*contracts.Snapshot, error) {
	return m.snap, m.err
}

func (m *memStore) ReplaceAll(ctx context.Context, snap *contracts.Snapshot) error {
	m.snap = snap
	return nil
}

type memSink struct {
	reports []*contracts.MetricsReport
}

func (m *memSink) Write(ctx context.Context, r *contracts.MetricsReport) error {
	m.reports = append(m.reports, r)
	return nil
}

func TestServiceRun(t *testing.T) {
	in := scenarioInput()
	store := &memStore{snap: &contracts.Snapshot{
		Disclosures: in.Disclosures,
		Market:      in.Market,
		Securities:  in.Tickers.Rows(),
	}}
	sink := &memSink{}

	svc := NewService(store, NewEngine(testConfig(), logger.Nop()), sink, logger.Nop())
	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.reports, 1)
	assert.Equal(t, res.ReportDate, sink.reports[0].ReportDate)
	assert.Len(t, sink.reports[0].Securities, len(res.Securities))
}

func TestServiceRunEmptyStore(t *testing.T) {
	sink := &memSink{}
	svc := NewService(&memStore{snap: &contracts.Snapshot{}}, NewEngine(config.DefaultTrackerConfig(), logger.Nop()), sink, logger.Nop())

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Securities)
	require.Len(t, sink.reports, 1)
	assert.True(t, sink.reports[0].IsEmpty())
}

func TestServiceRunStoreError(t *testing.T) {
	svc := NewService(&memStore{err: errors.New("down")}, NewEngine(config.DefaultTrackerConfig(), logger.Nop()), nil, logger.Nop())
	_, err := svc.Run(context.Background())
	assert.Error(t, err)
}
