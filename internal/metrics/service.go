package metrics

import (
	"context"
	"fmt"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/logger"
)

// InputFromSnapshot builds the engine input from the stored tables
func InputFromSnapshot(snap *contracts.Snapshot) Input {
	if snap == nil {
		return Input{Tickers: contracts.TickerMap{}}
	}
	return Input{
		Disclosures: snap.Disclosures,
		Market:      snap.Market,
		Tickers:     contracts.TickerMapFromRows(snap.Securities),
	}
}

// Service loads the stored snapshot, runs the engine and hands the
// report to the sink
type Service struct {
	store  contracts.PersistenceStore
	engine *Engine
	sink   contracts.ReportSink
	logger *logger.Logger
}

// NewService creates a metrics service. sink may be nil.
func NewService(store contracts.PersistenceStore, engine *Engine, sink contracts.ReportSink, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		engine: engine,
		sink:   sink,
		logger: log.Module("metrics"),
	}
}

// Run computes the latest report and writes it when a sink is set
func (s *Service) Run(ctx context.Context) (*Result, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	res, err := s.engine.Run(InputFromSnapshot(snap))
	if err != nil {
		return nil, err
	}

	if s.sink == nil {
		return res, nil
	}
	if err := s.sink.Write(ctx, res.Report()); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return res, nil
}
