package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/metrics"
	"github.com/wonny/shorttracker/pkg/logger"
)

// MetricsRunner computes and publishes the report
type MetricsRunner interface {
	Run(ctx context.Context) (*metrics.Result, error)
}

// MetricsJob recomputes the short metrics report after collection
type MetricsJob struct {
	runner MetricsRunner
	logger *logger.Logger
}

// NewMetricsJob creates a new metrics job
func NewMetricsJob(runner MetricsRunner, log *logger.Logger) *MetricsJob {
	return &MetricsJob{
		runner: runner,
		logger: log.Module("job.metrics"),
	}
}

// Name returns the job name
func (j *MetricsJob) Name() string {
	return "metrics"
}

// Schedule returns the cron schedule (weekdays 18:00 London)
func (j *MetricsJob) Schedule() string {
	return "0 0 18 * * 1-5"
}

// Run executes the metrics computation
func (j *MetricsJob) Run(ctx context.Context) error {
	res, err := j.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"report_date": calendar.Format(res.ReportDate),
		"securities":  len(res.Securities),
		"funds":       len(res.Funds),
		"warnings":    len(res.Warnings),
	}).Info("Scheduled metrics completed")
	return nil
}
