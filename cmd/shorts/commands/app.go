package commands

import (
	"fmt"

	"github.com/wonny/shorttracker/internal/external/fca"
	"github.com/wonny/shorttracker/internal/external/openfigi"
	"github.com/wonny/shorttracker/internal/external/yahoo"
	"github.com/wonny/shorttracker/internal/metrics"
	"github.com/wonny/shorttracker/internal/report"
	"github.com/wonny/shorttracker/internal/s0_data"
	"github.com/wonny/shorttracker/internal/s0_data/collector"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/database"
	"github.com/wonny/shorttracker/pkg/httputil"
	"github.com/wonny/shorttracker/pkg/logger"
	"github.com/wonny/shorttracker/pkg/redis"
)

// app holds the dependencies shared by the commands
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
	repo  *s0_data.Repository
}

// newApp loads config and connects to the database and redis
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		// redis는 선택 사항: 실패해도 캐시 없이 진행
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}

	return &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		redis: rdb,
		repo:  s0_data.NewRepository(db.Pool),
	}, nil
}

// Close releases connections
func (a *app) Close() {
	a.redis.Close()
	a.db.Close()
}

// collector wires the three external sources to the store
func (a *app) collector() *collector.Collector {
	fcaHTTP := httputil.New(a.log).
		WithRateLimiter(redis.NewRateLimiter(a.redis, "shorttracker"), redis.FCARateLimit)

	return collector.NewCollector(
		fca.NewClient(fcaHTTP, a.cfg.FCA, a.log),
		openfigi.NewClient(a.cfg.OpenFIGI, a.redis, a.log),
		yahoo.NewClient(a.cfg.Yahoo, a.redis, a.log),
		a.repo,
		collector.Config{Tracker: a.cfg.Tracker, Workers: a.cfg.Yahoo.Workers},
		a.log,
	)
}

// sink returns the JSON report sink
func (a *app) sink() *report.JSONSink {
	return report.NewJSONSink(a.cfg.OutputFile, a.log)
}

// metricsService wires store, engine and sink
func (a *app) metricsService() *metrics.Service {
	return metrics.NewService(a.repo, metrics.NewEngine(a.cfg.Tracker, a.log), a.sink(), a.log)
}
