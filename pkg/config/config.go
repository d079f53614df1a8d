package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External sources
	FCA      FCAConfig
	OpenFIGI OpenFIGIConfig
	Yahoo    YahooConfig

	// Pipeline settings
	Tracker     TrackerConfig
	TrackerFile string // optional YAML overlay for Tracker

	// Logging
	LogLevel  string
	LogFormat string

	// Report sink
	OutputFile string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// FCAConfig holds the short position disclosure source settings
type FCAConfig struct {
	PageURL     string // page listing the daily workbook
	WorkbookURL string // fallback when the link cannot be found on the page
}

// OpenFIGIConfig holds identifier mapping API settings
type OpenFIGIConfig struct {
	BaseURL       string
	APIKey        string
	ExchCode      string
	MaxJobSize    int // ids per request
	MaxJobsPerMin int
	CacheTTL      time.Duration
}

// YahooConfig holds market data source settings
type YahooConfig struct {
	ChartURL     string
	QuoteURL     string
	TickerSuffix string
	Workers      int
}

// TrackerConfig holds process-wide pipeline constants.
// Values are fixed for the life of the process and passed into every component.
type TrackerConfig struct {
	DisclosureThreshold float64 `yaml:"disclosure_threshold" json:"disclosure_threshold" validate:"gte=0,lte=100"` // % of shares outstanding
	LookbackDays        int     `yaml:"lookback_days" json:"lookback_days" validate:"gte=1"`                      // metrics window, business days
	CalendarBuffer      int     `yaml:"calendar_buffer" json:"calendar_buffer" validate:"gte=0"`                  // extra business days for returns/ADV history
	ADVWindow           int     `yaml:"adv_window" json:"adv_window" validate:"gte=1"`
	TopN                int     `yaml:"top_n" json:"top_n" validate:"gte=1"`
	BenchmarkTicker     string  `yaml:"benchmark_ticker" json:"benchmark_ticker" validate:"required"`
	MaxDataAge          int     `yaml:"max_data_age" json:"max_data_age" validate:"gte=1"` // business days of history kept in the store
	QueryBuffer         int     `yaml:"query_buffer" json:"query_buffer" validate:"gte=0"`
	PriceScale          float64 `yaml:"price_scale" json:"price_scale" validate:"gt=0"` // pence -> pounds
	ConflictPolicy      string  `yaml:"conflict_policy" json:"conflict_policy" validate:"oneof=max min first last"`

	Quality QualityConfig `yaml:"quality" json:"quality"`
}

// QualityConfig holds the coverage thresholds checked after collection
type QualityConfig struct {
	MinPriceCoverage  float64 `yaml:"min_price_coverage" json:"min_price_coverage" validate:"gte=0,lte=1"`   // 1.0 (100%)
	MinVolumeCoverage float64 `yaml:"min_volume_coverage" json:"min_volume_coverage" validate:"gte=0,lte=1"` // 0.9
	MinSharesCoverage float64 `yaml:"min_shares_coverage" json:"min_shares_coverage" validate:"gte=0,lte=1"` // 0.9
	MinTickerCoverage float64 `yaml:"min_ticker_coverage" json:"min_ticker_coverage" validate:"gte=0,lte=1"` // 0.8
	MinScore          float64 `yaml:"min_score" json:"min_score" validate:"gte=0,lte=1"`
}

// DefaultTrackerConfig returns the production pipeline settings
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		DisclosureThreshold: 0.5,
		LookbackDays:        5,
		CalendarBuffer:      10,
		ADVWindow:           22,
		TopN:                20,
		BenchmarkTicker:     "VUKE",
		MaxDataAge:          30,
		QueryBuffer:         10,
		PriceScale:          100,
		ConflictPolicy:      "max",
		Quality: QualityConfig{
			MinPriceCoverage:  1.0,
			MinVolumeCoverage: 0.9,
			MinSharesCoverage: 0.9,
			MinTickerCoverage: 0.8,
			MinScore:          0.7,
		},
	}
}

// Validate checks the tracker settings against their declared bounds
func (t TrackerConfig) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("invalid tracker config: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	defaults := DefaultTrackerConfig()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		FCA: FCAConfig{
			PageURL:     getEnv("FCA_PAGE_URL", "https://www.fca.org.uk/markets/short-selling/notification-disclosure-net-short-positions"),
			WorkbookURL: getEnv("FCA_WORKBOOK_URL", "https://www.fca.org.uk/publication/data/short-positions-daily-update.xlsx"),
		},

		OpenFIGI: OpenFIGIConfig{
			BaseURL:       getEnv("OPENFIGI_URL", "https://api.openfigi.com/v3/mapping"),
			APIKey:        getEnv("OPENFIGI_API_KEY", ""),
			ExchCode:      getEnv("OPENFIGI_EXCH_CODE", "LN"),
			MaxJobSize:    getEnvAsInt("OPENFIGI_MAX_JOB_SIZE", 10),
			MaxJobsPerMin: getEnvAsInt("OPENFIGI_MAX_JOBS_PER_MIN", 25),
			CacheTTL:      getEnvAsDuration("OPENFIGI_CACHE_TTL", "168h"),
		},

		Yahoo: YahooConfig{
			ChartURL:     getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			QuoteURL:     getEnv("YAHOO_QUOTE_URL", "https://query1.finance.yahoo.com/v7/finance/quote"),
			TickerSuffix: getEnv("YAHOO_TICKER_SUFFIX", ".L"),
			Workers:      getEnvAsInt("YAHOO_WORKERS", 4),
		},

		Tracker: TrackerConfig{
			DisclosureThreshold: getEnvAsFloat("DISCL_THRESHOLD", defaults.DisclosureThreshold),
			LookbackDays:        getEnvAsInt("METRICS_LOOKBACK_DAYS", defaults.LookbackDays),
			CalendarBuffer:      getEnvAsInt("METRICS_CALENDAR_BUFFER", defaults.CalendarBuffer),
			ADVWindow:           getEnvAsInt("METRICS_ADV_WINDOW", defaults.ADVWindow),
			TopN:                getEnvAsInt("TOP_N_SHORTS", defaults.TopN),
			BenchmarkTicker:     getEnv("UK_MKT_TICKER", defaults.BenchmarkTicker),
			MaxDataAge:          getEnvAsInt("MAX_DATA_AGE", defaults.MaxDataAge),
			QueryBuffer:         getEnvAsInt("QUERY_DAYS_BUFFER", defaults.QueryBuffer),
			PriceScale:          getEnvAsFloat("PRICE_SCALE", defaults.PriceScale),
			ConflictPolicy:      strings.ToLower(getEnv("CONFLICT_POLICY", defaults.ConflictPolicy)),
			Quality:             defaults.Quality,
		},
		TrackerFile: getEnv("TRACKER_CONFIG_FILE", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		OutputFile: getEnv("OUTPUT_FILE", "data/short_metrics.json"),
	}

	// Settings file overrides the environment
	if cfg.TrackerFile != "" {
		tracker, err := LoadTrackerFile(cfg.TrackerFile, cfg.Tracker)
		if err != nil {
			return nil, fmt.Errorf("load tracker config: %w", err)
		}
		cfg.Tracker = tracker
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	return c.Tracker.Validate()
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
