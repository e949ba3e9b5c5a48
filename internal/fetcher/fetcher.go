package fetcher

import "context"

// PriceSource resolves the current USD rate of an asset.
// It returns an error only for failures that must abort the run (missing
// credential); provider failures come back as a PriceRecord with Error set.
type PriceSource interface {
	FetchPrice(ctx context.Context, q AssetQuery) (PriceRecord, error)
}

// SentimentSource resolves a market sentiment reading. It never fails: when the
// provider cannot be used it returns a fallback reading with Error set.
// The upstream PriceRecord is passed through for context only.
type SentimentSource interface {
	FetchSentiment(ctx context.Context, symbol string, price PriceRecord) SentimentRecord
}

// NewsSource resolves up to limit recent headlines. It never fails.
type NewsSource interface {
	FetchNews(ctx context.Context, id string, limit int) []NewsRecord
}
