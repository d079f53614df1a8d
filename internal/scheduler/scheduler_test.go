package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/pkg/logger"
)

type countingJob struct {
	name     string
	failures int32
	calls    int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return "0 0 18 * * 1-5" }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&countingJob{name: "metrics"}))
	assert.Error(t, s.AddJob(&countingJob{name: "metrics"}))
	assert.Equal(t, []string{"metrics"}, s.GetAllJobs())
}

func TestRunJobSyncRetries(t *testing.T) {
	s := New(logger.Nop(), WithRetry(2, time.Millisecond))
	job := &countingJob{name: "collection", failures: 2}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJobSync(context.Background(), "collection")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)

	stats := s.GetJobStats()["collection"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestRunJobSyncGivesUp(t *testing.T) {
	s := New(logger.Nop(), WithRetry(1, time.Millisecond))
	require.NoError(t, s.AddJob(&countingJob{name: "collection", failures: 10}))

	res, err := s.RunJobSync(context.Background(), "collection")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "transient", res.Error)

	history, err := s.GetJobHistory("collection")
	require.NoError(t, err)
	last, ok := history.Last()
	require.True(t, ok)
	assert.False(t, last.Success)
}

func TestRunJobSyncStopsOnCancel(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	require.NoError(t, s.AddJob(&countingJob{name: "collection", failures: 10}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.RunJobSync(ctx, "collection")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&countingJob{name: "metrics"}))
	require.NoError(t, s.RemoveJob("metrics"))
	assert.Error(t, s.RemoveJob("metrics"))
	_, err := s.RunJobSync(context.Background(), "metrics")
	assert.Error(t, err)
}

func TestJobHistoryLimit(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
}
