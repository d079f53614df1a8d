package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/logger"
)

// JSONSink writes the metrics report to a JSON file
// ⭐ SSOT: 리포트 파일 출력은 여기서만
type JSONSink struct {
	path   string
	logger *logger.Logger
}

// NewJSONSink creates a sink writing to path
func NewJSONSink(path string, log *logger.Logger) *JSONSink {
	return &JSONSink{
		path:   path,
		logger: log.Module("report"),
	}
}

// Path returns the output file
func (s *JSONSink) Path() string {
	return s.path
}

// Write rounds the report and replaces the output file atomically
func (s *JSONSink) Write(ctx context.Context, report *contracts.MetricsReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(Round(report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":       s.path,
		"securities": len(report.Securities),
		"funds":      len(report.Funds),
	}).Info("Report written")
	return nil
}

// Latest reads the last written report. It returns contracts.ErrNoData
// when no report exists yet.
func (s *JSONSink) Latest(ctx context.Context) (*contracts.MetricsReport, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, contracts.ErrNoData
		}
		return nil, fmt.Errorf("read report: %w", err)
	}

	var report contracts.MetricsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
