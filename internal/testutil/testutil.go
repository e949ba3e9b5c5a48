package testutil

import (
	"context"
	"sync/atomic"

	"cryptoanalyst/internal/fetcher"
)

// MockPriceSource is a mock implementation of fetcher.PriceSource for testing
type MockPriceSource struct {
	FetchFunc func(ctx context.Context, q fetcher.AssetQuery) (fetcher.PriceRecord, error)
	Calls     atomic.Int32
}

// FetchPrice implements fetcher.PriceSource
func (m *MockPriceSource) FetchPrice(ctx context.Context, q fetcher.AssetQuery) (fetcher.PriceRecord, error) {
	m.Calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, q)
	}
	return fetcher.PriceRecord{ID: q.ID, Symbol: q.Symbol, PriceUSD: "100", ChangePercent24h: fetcher.NotAvailable}, nil
}

// MockSentimentSource is a mock implementation of fetcher.SentimentSource for testing
type MockSentimentSource struct {
	FetchFunc func(ctx context.Context, symbol string, price fetcher.PriceRecord) fetcher.SentimentRecord
	Calls     atomic.Int32
}

// FetchSentiment implements fetcher.SentimentSource
func (m *MockSentimentSource) FetchSentiment(ctx context.Context, symbol string, price fetcher.PriceRecord) fetcher.SentimentRecord {
	m.Calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol, price)
	}
	return fetcher.SentimentRecord{Sentiment: fetcher.Neutral, FearGreedValue: 50, Classification: "Neutral", Confidence: 0.85, Source: "mock"}
}

// MockNewsSource is a mock implementation of fetcher.NewsSource for testing
type MockNewsSource struct {
	FetchFunc func(ctx context.Context, id string, limit int) []fetcher.NewsRecord
	Calls     atomic.Int32
}

// FetchNews implements fetcher.NewsSource
func (m *MockNewsSource) FetchNews(ctx context.Context, id string, limit int) []fetcher.NewsRecord {
	m.Calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, id, limit)
	}
	return []fetcher.NewsRecord{}
}

// NewPriceSource creates a simple mock price source with a predefined result
func NewPriceSource(rec fetcher.PriceRecord, err error) *MockPriceSource {
	return &MockPriceSource{
		FetchFunc: func(ctx context.Context, q fetcher.AssetQuery) (fetcher.PriceRecord, error) {
			return rec, err
		},
	}
}
