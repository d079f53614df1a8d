package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/internal/metrics"
	"github.com/wonny/shorttracker/internal/s0_data/collector"
	"github.com/wonny/shorttracker/pkg/logger"
)

type stubCollector struct {
	err error
}

func (s stubCollector) Collect(ctx context.Context) (*collector.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &collector.Result{ReportDate: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)}, nil
}

type stubRunner struct {
	err error
}

func (s stubRunner) Run(ctx context.Context) (*metrics.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &metrics.Result{}, nil
}

func TestSchedulesParse(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	for _, schedule := range []string{
		NewCollectionJob(stubCollector{}, logger.Nop()).Schedule(),
		NewMetricsJob(stubRunner{}, logger.Nop()).Schedule(),
	} {
		s, err := parser.Parse(schedule)
		require.NoError(t, err, schedule)

		// Friday evening -> next run is Monday
		friday := time.Date(2024, 1, 12, 19, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Monday, s.Next(friday).Weekday())
	}
}

func TestCollectionJobRun(t *testing.T) {
	job := NewCollectionJob(stubCollector{}, logger.Nop())
	assert.Equal(t, "collection", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	failing := NewCollectionJob(stubCollector{err: errors.New("fca down")}, logger.Nop())
	assert.ErrorContains(t, failing.Run(context.Background()), "fca down")
}

func TestMetricsJobRun(t *testing.T) {
	job := NewMetricsJob(stubRunner{}, logger.Nop())
	assert.Equal(t, "metrics", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	failing := NewMetricsJob(stubRunner{err: errors.New("db down")}, logger.Nop())
	assert.Error(t, failing.Run(context.Background()))
}
