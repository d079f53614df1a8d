package openfigi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/httputil"
	"github.com/wonny/shorttracker/pkg/logger"
	"github.com/wonny/shorttracker/pkg/redis"
)

// mappingJob is one identifier in a mapping request
type mappingJob struct {
	IDType   string `json:"idType"`
	IDValue  string `json:"idValue"`
	ExchCode string `json:"exchCode,omitempty"`
}

// mappingResult is the response entry for the job at the same position
type mappingResult struct {
	Data []struct {
		FIGI     string `json:"figi"`
		Ticker   string `json:"ticker"`
		ExchCode string `json:"exchCode"`
		Name     string `json:"name"`
	} `json:"data"`
	Error   string `json:"error"`
	Warning string `json:"warning"`
}

// Client resolves ISINs to exchange tickers through the OpenFIGI mapping API
// ⭐ SSOT: OpenFIGI 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	cfg        config.OpenFIGIConfig
	logger     *logger.Logger
}

// NewClient creates a client paced at cfg.MaxJobsPerMin requests per minute.
// rdb may be disabled, in which case caching and the shared limiter are no-ops.
func NewClient(cfg config.OpenFIGIConfig, rdb *redis.Client, log *logger.Logger) *Client {
	httpClient := httputil.New(log).
		WithRetry(3, time.Minute/time.Duration(max(cfg.MaxJobsPerMin, 1))).
		WithPacing(cfg.MaxJobsPerMin, time.Minute).
		WithRateLimiter(redis.NewRateLimiter(rdb, "shorttracker"), redis.OpenFIGIRateLimit)

	return &Client{
		httpClient: httpClient,
		cache:      redis.NewCache(rdb, "shorttracker"),
		cfg:        cfg,
		logger:     log.Module("openfigi"),
	}
}

// Resolve maps each isin to its candidate tickers on the configured exchange.
// Isins the API has no mapping for are returned in the second value.
func (c *Client) Resolve(ctx context.Context, isins []string) (map[string][]string, []string, error) {
	isins = unique(isins)
	resolved := make(map[string][]string, len(isins))
	var pending, unresolved []string

	for _, isin := range isins {
		var cached []string
		found, err := c.cache.Get(ctx, redis.FIGIMappingKey(isin, c.cfg.ExchCode), &cached)
		if err == nil && found && len(cached) > 0 {
			resolved[isin] = cached
			continue
		}
		pending = append(pending, isin)
	}

	size := max(c.cfg.MaxJobSize, 1)
	for start := 0; start < len(pending); start += size {
		end := min(start+size, len(pending))
		batch := pending[start:end]

		results, err := c.mapBatch(ctx, batch)
		if err != nil {
			return nil, nil, err
		}

		for i, isin := range batch {
			tickers := tickersOf(results[i])
			if len(tickers) == 0 {
				unresolved = append(unresolved, isin)
				continue
			}
			resolved[isin] = tickers
			if err := c.cache.Set(ctx, redis.FIGIMappingKey(isin, c.cfg.ExchCode), tickers, c.cfg.CacheTTL); err != nil {
				c.logger.WithError(err).Warn("Failed to cache FIGI mapping")
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"requested":  len(isins),
		"cached":     len(isins) - len(pending),
		"resolved":   len(resolved),
		"unresolved": len(unresolved),
	}).Info("Resolved identifiers")

	return resolved, unresolved, nil
}

// mapBatch posts one request; the reply has one entry per job
func (c *Client) mapBatch(ctx context.Context, isins []string) ([]mappingResult, error) {
	jobs := make([]mappingJob, len(isins))
	for i, isin := range isins {
		jobs[i] = mappingJob{IDType: "ID_ISIN", IDValue: isin, ExchCode: c.cfg.ExchCode}
	}

	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["X-OPENFIGI-APIKEY"] = c.cfg.APIKey
	}

	var results []mappingResult
	err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL, headers, jobs, &results)
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("openfigi mapping: %w", contracts.ErrRateLimited)
		}
		return nil, fmt.Errorf("openfigi mapping: %w", err)
	}
	if len(results) != len(jobs) {
		return nil, fmt.Errorf("openfigi mapping: expected %d results, got %d", len(jobs), len(results))
	}
	return results, nil
}

func tickersOf(r mappingResult) []string {
	if r.Error != "" || r.Warning != "" {
		return nil
	}
	var out []string
	for _, d := range r.Data {
		if d.Ticker != "" {
			out = append(out, d.Ticker)
		}
	}
	return out
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
