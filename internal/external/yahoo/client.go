package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/shorttracker/internal/calendar"
	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/httputil"
	"github.com/wonny/shorttracker/pkg/logger"
	"github.com/wonny/shorttracker/pkg/redis"
)

// Client fetches London price history and quotes from Yahoo Finance
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	cfg        config.YahooConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewClient creates a new Yahoo Finance client
func NewClient(cfg config.YahooConfig, rdb *redis.Client, log *logger.Logger) *Client {
	httpClient := httputil.New(log).
		WithRateLimiter(redis.NewRateLimiter(rdb, "shorttracker"), redis.YahooRateLimit)

	return &Client{
		httpClient: httpClient,
		cache:      redis.NewCache(rdb, "shorttracker"),
		cfg:        cfg,
		logger:     log.Module("yahoo"),
		now:        time.Now,
	}
}

// Symbol converts an exchange ticker to its Yahoo symbol, e.g. "BT/" -> "BT.L"
func Symbol(ticker, suffix string) string {
	return strings.TrimRight(ticker, "/") + suffix
}

// History returns daily Close, AdjClose and Volume from start to today.
// It returns (nil, nil) when Yahoo has no data for the ticker.
func (c *Client) History(ctx context.Context, ticker string, start time.Time) (*contracts.PriceHistory, error) {
	symbol := Symbol(ticker, c.cfg.TickerSuffix)

	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", calendar.Truncate(start).Unix()))
	params.Set("period2", fmt.Sprintf("%d", c.now().Unix()))
	params.Set("interval", "1d")
	params.Set("events", "div,split")
	fullURL := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.cfg.ChartURL, "/"), url.PathEscape(symbol), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"code":   resp.Chart.Error.Code,
		}).Warn(resp.Chart.Error.Description)
		return nil, nil
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Timestamp) == 0 {
		return nil, nil
	}

	bars := parseBars(resp.Chart.Result[0])

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched price history")

	return &contracts.PriceHistory{Ticker: ticker, Bars: bars}, nil
}

// Quote returns the current snapshot including shares outstanding.
// It returns (nil, nil) when Yahoo has no quote for the ticker.
func (c *Client) Quote(ctx context.Context, ticker string) (*contracts.Quote, error) {
	symbol := Symbol(ticker, c.cfg.TickerSuffix)
	key := redis.QuoteKey(symbol, calendar.Format(c.now()))

	var cached contracts.Quote
	if found, err := c.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	fullURL := fmt.Sprintf("%s?symbols=%s", c.cfg.QuoteURL, url.QueryEscape(symbol))

	var resp quoteResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return nil, nil
	}

	r := resp.QuoteResponse.Result[0]
	quote := &contracts.Quote{
		Ticker:            ticker,
		SharesOutstanding: null.FloatFromPtr(r.SharesOutstanding),
		RegularPrice:      null.FloatFromPtr(r.RegularMarketPrice),
		Currency:          r.Currency,
	}

	if err := c.cache.Set(ctx, key, quote, redis.TTLShort); err != nil {
		c.logger.WithError(err).Warn("Failed to cache quote")
	}
	return quote, nil
}

// parseBars converts the columnar chart payload into dated bars
func parseBars(result chartResult) []contracts.PriceBar {
	var closes, volumes, adj []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
		volumes = result.Indicators.Quote[0].Volume
	}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		london = time.UTC
	}

	bars := make([]contracts.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bars = append(bars, contracts.PriceBar{
			Date:     calendar.Truncate(time.Unix(ts, 0).In(london)),
			Close:    at(closes, i),
			AdjClose: at(adj, i),
			Volume:   at(volumes, i),
		})
	}
	return bars
}

func at(values []*float64, i int) null.Float {
	if i >= len(values) {
		return null.Float{}
	}
	return null.FloatFromPtr(values[i])
}

func isNotFound(err error) bool {
	var statusErr *httputil.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
