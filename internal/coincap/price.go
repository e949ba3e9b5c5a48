package coincap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/ratelimit"
)

const providerName = "coincap"

// RateResponse represents the CoinCap API response for a single rate
type RateResponse struct {
	Data struct {
		ID                string `json:"id"`
		Symbol            string `json:"symbol"`
		CurrencySymbol    string `json:"currencySymbol"`
		Type              string `json:"type"`
		RateUSD           string `json:"rateUsd"`
		ChangePercent24Hr string `json:"changePercent24Hr"`
	} `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// PriceFetcher fetches USD rates from CoinCap
type PriceFetcher struct {
	apiKey  string
	timeout time.Duration
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewPriceFetcher creates a new price fetcher. An empty apiKey is accepted here
// and reported as a configuration error on the first fetch.
func NewPriceFetcher(apiKey, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *PriceFetcher {
	if timeout <= 0 {
		timeout = fetcher.DefaultTimeout
	}

	return &PriceFetcher{
		apiKey:  apiKey,
		timeout: timeout,
		client:  fetcher.NewHTTPClient(baseURL, timeout),
		limiter: limiter,
	}
}

// FetchPrice retrieves the current USD rate for q.ID.
// A missing API key is returned as an error; every other failure is folded
// into the record so the pipeline can continue.
func (f *PriceFetcher) FetchPrice(ctx context.Context, q fetcher.AssetQuery) (fetcher.PriceRecord, error) {
	id := fetcher.NormalizeID(q.ID)
	symbol := strings.ToUpper(strings.TrimSpace(q.Symbol))

	if err := fetcher.CheckID(id); err != nil {
		return failed(id, symbol, err), nil
	}

	if f.apiKey == "" {
		return fetcher.PriceRecord{}, fetcher.NewConfigError("COINCAP_API_KEY is not set")
	}

	rate, err := f.fetchRate(ctx, id)
	if err != nil {
		slog.Warn("price fetch degraded",
			"provider", providerName,
			"id", id,
			"error", err.Error())
		return failed(id, symbol, err), nil
	}

	if symbol == "" {
		symbol = strings.ToUpper(rate.Data.Symbol)
	}

	price, err := parseRate(rate.Data.RateUSD)
	if err != nil {
		slog.Warn("price fetch degraded",
			"provider", providerName,
			"id", id,
			"error", err.Error())
		return failed(id, symbol, err), nil
	}

	return fetcher.PriceRecord{
		ID:               id,
		Symbol:           symbol,
		PriceUSD:         price.String(),
		ChangePercent24h: changePercent(rate.Data.ChangePercent24Hr),
	}, nil
}

// fetchRate performs the single bounded call to /rates/{id}
func (f *PriceFetcher) fetchRate(ctx context.Context, id string) (*RateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx, ratelimit.APICoinCap); err != nil {
		return nil, fetcher.NewTimeoutError(err)
	}

	var result RateResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("apiKey", f.apiKey).
		SetResult(&result).
		Get("/rates/{id}")

	if err := fetcher.CheckResponse(providerName, resp, err); err != nil {
		return nil, fmt.Errorf("failed to fetch rate for %s: %w", id, err)
	}

	return &result, nil
}

// parseRate requires a non-empty numeric rate strictly greater than zero
func parseRate(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, fetcher.NewValidationError("rateUsd missing from response")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		fe := fetcher.NewValidationError(fmt.Sprintf("rateUsd %q is not numeric", raw))
		fe.Cause = err
		return decimal.Zero, fe
	}

	if !price.IsPositive() {
		return decimal.Zero, fetcher.NewValidationError(fmt.Sprintf("rateUsd %q is not positive", raw))
	}

	return price, nil
}

// changePercent formats the optional 24h change to two decimals
func changePercent(raw string) string {
	if raw == "" {
		return fetcher.NotAvailable
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fetcher.NotAvailable
	}
	return d.StringFixed(2)
}

// failed builds the degraded record carried forward on any provider failure
func failed(id, symbol string, err error) fetcher.PriceRecord {
	msg := err.Error()
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		msg = fe.UserMessage(providerName)
		if fe.Type == fetcher.ErrorTypeNotFound {
			msg = fmt.Sprintf("%s: cryptocurrency %q not found", providerName, id)
		}
	}

	return fetcher.PriceRecord{
		ID:               id,
		Symbol:           symbol,
		PriceUSD:         fetcher.ZeroPrice,
		ChangePercent24h: fetcher.NotAvailable,
		Error:            msg,
	}
}
