package coinmarketcap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/ratelimit"
	"cryptoanalyst/internal/sentiment"
)

const (
	providerName = "coinmarketcap"
	apiKeyHeader = "X-CMC_PRO_API_KEY"
)

// numeric accepts a JSON number or a quoted number and keeps its text.
// CoinMarketCap is not consistent about which one it sends.
type numeric string

// UnmarshalJSON implements json.Unmarshaler
func (n *numeric) UnmarshalJSON(b []byte) error {
	*n = numeric(strings.Trim(strings.TrimSpace(string(b)), `"`))
	return nil
}

// Int parses the value as a base-10 integer
func (n numeric) Int() (int, error) {
	return strconv.Atoi(string(n))
}

// FearGreedResponse represents the CoinMarketCap historical Fear & Greed response
type FearGreedResponse struct {
	Status struct {
		ErrorCode    numeric `json:"error_code"`
		ErrorMessage string  `json:"error_message"`
	} `json:"status"`
	Data []struct {
		Value               numeric `json:"value"`
		ValueClassification string  `json:"value_classification"`
		Timestamp           numeric `json:"timestamp"`
	} `json:"data"`
}

// SentimentFetcher reads the most recent Fear & Greed value
type SentimentFetcher struct {
	apiKey  string
	timeout time.Duration
	client  *resty.Client
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// NewSentimentFetcher creates a new sentiment fetcher. Without an apiKey every
// fetch takes the fallback path.
func NewSentimentFetcher(apiKey, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *SentimentFetcher {
	if timeout <= 0 {
		timeout = fetcher.DefaultTimeout
	}

	client := fetcher.NewHTTPClient(baseURL, timeout)
	if apiKey != "" {
		client.SetHeader(apiKeyHeader, apiKey)
	}

	return &SentimentFetcher{
		apiKey:  apiKey,
		timeout: timeout,
		client:  client,
		limiter: limiter,
		now:     time.Now,
	}
}

// WithClock replaces the time source used by the fallback path
func (f *SentimentFetcher) WithClock(now func() time.Time) *SentimentFetcher {
	f.now = now
	return f
}

// FetchSentiment returns the live reading, or a fallback reading with Error set.
// An error on the upstream price record does not block this stage.
func (f *SentimentFetcher) FetchSentiment(ctx context.Context, symbol string, price fetcher.PriceRecord) fetcher.SentimentRecord {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		symbol = price.Symbol
	}

	if f.apiKey == "" {
		return f.fallback(symbol, fetcher.NewConfigError("CMC_API_KEY is not set"))
	}

	value, err := f.fetchIndex(ctx)
	if err != nil {
		return f.fallback(symbol, err)
	}

	return sentiment.Record(sentiment.Convert(value), sentiment.LiveConfidence, providerName, "")
}

// fetchIndex performs the single bounded call and validates the body shape
func (f *SentimentFetcher) fetchIndex(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx, ratelimit.APICoinMarketCap); err != nil {
		return 0, fetcher.NewTimeoutError(err)
	}

	var result FearGreedResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		SetResult(&result).
		Get("/fear-and-greed/historical")

	if err := fetcher.CheckResponse(providerName, resp, err); err != nil {
		return 0, err
	}

	return validate(&result)
}

func validate(result *FearGreedResponse) (int, error) {
	if code := string(result.Status.ErrorCode); code != "" && code != "0" && code != "null" {
		return 0, fetcher.NewValidationError(fmt.Sprintf("provider error_code %s: %s", code, result.Status.ErrorMessage))
	}

	if len(result.Data) == 0 {
		return 0, fetcher.NewValidationError("fear and greed data is empty")
	}

	value, err := result.Data[0].Value.Int()
	if err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("fear and greed value %q is not an integer", result.Data[0].Value))
	}

	if value < 0 || value > 100 {
		return 0, fetcher.NewValidationError(fmt.Sprintf("fear and greed value %d out of range", value))
	}

	return value, nil
}

func (f *SentimentFetcher) fallback(symbol string, err error) fetcher.SentimentRecord {
	msg := err.Error()
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		msg = fe.UserMessage(providerName)
	}

	slog.Warn("sentiment fetch degraded, using fallback",
		"provider", providerName,
		"symbol", symbol,
		"error", err.Error())

	return sentiment.Fallback(symbol, f.now(), msg)
}
