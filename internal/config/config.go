package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"cryptoanalyst/internal/fetcher"
)

// AssetConfig holds one asset to analyze when no asset is given on the command line
type AssetConfig struct {
	ID        string `mapstructure:"id"`
	Symbol    string `mapstructure:"symbol"`
	NewsLimit int    `mapstructure:"news_limit"`
}

// Config holds all configuration for the analyst. It is read once at start
// and passed to each constructor; nothing reads the environment afterwards.
type Config struct {
	// API keys, one per provider. Only the rates key is required, and only
	// when a price is actually fetched.
	CoinCapAPIKey string `mapstructure:"coincap_api_key"`
	CMCAPIKey     string `mapstructure:"cmc_api_key"`
	NewsAPIKey    string `mapstructure:"news_api_key"`

	// Base URLs for API endpoints (configurable for testing)
	CoinCapBaseURL string `mapstructure:"coincap_base_url"`
	CMCBaseURL     string `mapstructure:"cmc_base_url"`
	NewsBaseURL    string `mapstructure:"news_base_url"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Language model
	LLMEndpoint string        `mapstructure:"llm_endpoint"`
	LLMAPIKey   string        `mapstructure:"llm_api_key"`
	LLMModel    string        `mapstructure:"llm_model"`
	LLMTimeout  time.Duration `mapstructure:"llm_timeout"`

	// Report and conversation store; disabled when RedisAddr is empty
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	ReportTTL     time.Duration `mapstructure:"report_ttl"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	MaxParallel int           `mapstructure:"max_parallel"`
	NewsLimit   int           `mapstructure:"news_limit"`
	Assets      []AssetConfig `mapstructure:"assets"`
}

// Load reads configuration from a .env file, environment variables and an
// optional config file. Environment variables take precedence over config
// file values.
//
// Expected environment variables:
//   - COINCAP_API_KEY, CMC_API_KEY, NEWS_API_KEY
//   - COINCAP_BASE_URL, CMC_BASE_URL, NEWS_BASE_URL (optional, default to production)
//   - REQUEST_TIMEOUT (optional, default 10s)
//   - LLM_ENDPOINT, LLM_API_KEY, LLM_MODEL, LLM_TIMEOUT (optional)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REPORT_TTL (optional)
//   - LOG_LEVEL, LOG_FORMAT, MAX_PARALLEL, NEWS_LIMIT (optional)
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()

	v.SetEnvPrefix("")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("coincap_base_url", "https://rest.coincap.io/v3")
	v.SetDefault("cmc_base_url", "https://pro-api.coinmarketcap.com/v3")
	v.SetDefault("news_base_url", "https://newsapi.org/v2")
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("llm_timeout", "60s")
	v.SetDefault("report_ttl", "24h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("max_parallel", 4)
	v.SetDefault("news_limit", 5)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.cryptoanalyst")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables
	for _, key := range []string{
		"coincap_api_key", "cmc_api_key", "news_api_key",
		"coincap_base_url", "cmc_base_url", "news_base_url",
		"request_timeout",
		"llm_endpoint", "llm_api_key", "llm_model", "llm_timeout",
		"redis_addr", "redis_password", "redis_db", "report_ttl",
		"log_level", "log_format", "max_parallel", "news_limit",
	} {
		v.BindEnv(key, strings.ToUpper(key))
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges. Missing credentials are not an error here:
// each stage decides what a missing key means.
func (c *Config) Validate() error {
	var problems []string

	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}
	if c.LLMTimeout <= 0 {
		problems = append(problems, "LLM_TIMEOUT must be positive")
	}
	if c.NewsLimit < fetcher.MinNewsLimit || c.NewsLimit > fetcher.MaxNewsLimit {
		problems = append(problems, fmt.Sprintf("NEWS_LIMIT must be between %d and %d", fetcher.MinNewsLimit, fetcher.MaxNewsLimit))
	}
	if c.MaxParallel < 1 {
		problems = append(problems, "MAX_PARALLEL must be at least 1")
	}
	for i, a := range c.Assets {
		if _, err := a.Query(c.NewsLimit); err != nil {
			problems = append(problems, fmt.Sprintf("assets[%d]: %v", i, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

// Query converts the asset entry, applying defaultLimit when none is set
func (a AssetConfig) Query(defaultLimit int) (fetcher.AssetQuery, error) {
	limit := a.NewsLimit
	if limit == 0 {
		limit = defaultLimit
	}
	return fetcher.NewAssetQuery(a.ID, a.Symbol, limit)
}

// Queries converts every configured asset
func (c *Config) Queries() ([]fetcher.AssetQuery, error) {
	out := make([]fetcher.AssetQuery, 0, len(c.Assets))
	for _, a := range c.Assets {
		q, err := a.Query(c.NewsLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// StoreEnabled reports whether a Redis address is configured
func (c *Config) StoreEnabled() bool {
	return c.RedisAddr != ""
}

// LLMEnabled reports whether a language model endpoint is configured
func (c *Config) LLMEnabled() bool {
	return c.LLMEndpoint != ""
}
