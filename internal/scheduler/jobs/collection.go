package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/s0_data/collector"
	"github.com/wonny/shorttracker/pkg/logger"
)

// Collector is the acquisition step run by CollectionJob
type Collector interface {
	Collect(ctx context.Context) (*collector.Result, error)
}

// CollectionJob downloads the day's disclosures and market data
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type CollectionJob struct {
	collector Collector
	logger    *logger.Logger
}

// NewCollectionJob creates a new collection job
func NewCollectionJob(col Collector, log *logger.Logger) *CollectionJob {
	return &CollectionJob{
		collector: col,
		logger:    log.Module("job.collection"),
	}
}

// Name returns the job name
func (j *CollectionJob) Name() string {
	return "collection"
}

// Schedule returns the cron schedule (weekdays 17:30 London, after the daily publication)
func (j *CollectionJob) Schedule() string {
	return "0 30 17 * * 1-5"
}

// Run executes the collection
func (j *CollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled collection")

	res, err := j.collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"report_date": calendar.Format(res.ReportDate),
		"tickers":     res.Tickers,
		"warnings":    len(res.Warnings),
	}).Info("Scheduled collection completed")
	return nil
}
