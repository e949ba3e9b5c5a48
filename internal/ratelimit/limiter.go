package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APICoinCap represents the CoinCap rates API
	APICoinCap API = "coincap"
	// APICoinMarketCap represents the CoinMarketCap Fear & Greed API
	APICoinMarketCap API = "coinmarketcap"
	// APINewsAPI represents the NewsAPI everything endpoint
	APINewsAPI API = "newsapi"
	// APILLM represents the language model endpoint
	APILLM API = "llm"
)

// DefaultLimits are conservative per-second budgets for the free tiers
var DefaultLimits = map[API]rate.Limit{
	// CoinCap: 600 requests per minute with a key
	APICoinCap: rate.Limit(10),
	// CoinMarketCap basic plan: 30 requests per minute
	APICoinMarketCap: rate.Limit(0.5),
	// NewsAPI developer plan: 100 requests per day, spread out
	APINewsAPI: rate.Limit(1),
	APILLM:     rate.Limit(2),
}

// Limiter manages rate limits for different APIs.
// The bucket map is fixed at construction, so concurrent pipeline runs share
// it without locking.
type Limiter struct {
	limiters map[API]*rate.Limiter
}

// New creates a limiter with one token bucket per API.
// A nil map yields a limiter that never blocks.
func New(limits map[API]rate.Limit) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter, len(limits)),
	}
	for api, limit := range limits {
		l.limiters[api] = rate.NewLimiter(limit, 1)
	}
	return l
}

// Unlimited returns a limiter that never blocks, for tests and tooling
func Unlimited() *Limiter {
	return New(nil)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	if l == nil {
		return nil
	}

	limiter, exists := l.limiters[api]
	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}
