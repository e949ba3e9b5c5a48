package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"cryptoanalyst/internal/compiler"
	"cryptoanalyst/internal/fetcher"
)

// ReportCompiler renders the final report from the stage outputs
type ReportCompiler interface {
	Compile(ctx context.Context, price *fetcher.PriceRecord, sent *fetcher.SentimentRecord, news []fetcher.NewsRecord) (*compiler.AnalysisReport, error)
}

// ReportSaver persists finished reports
type ReportSaver interface {
	SaveReport(ctx context.Context, report *compiler.AnalysisReport) error
}

// Pipeline runs Price → Sentiment → News → Compile in strict sequence.
// It holds no per-run state, so one Pipeline serves concurrent runs.
type Pipeline struct {
	price     fetcher.PriceSource
	sentiment fetcher.SentimentSource
	news      fetcher.NewsSource
	compiler  ReportCompiler
	saver     ReportSaver
}

// NewPipeline wires the four stages. saver may be nil.
func NewPipeline(price fetcher.PriceSource, sentiment fetcher.SentimentSource, news fetcher.NewsSource, compiler ReportCompiler, saver ReportSaver) *Pipeline {
	return &Pipeline{
		price:     price,
		sentiment: sentiment,
		news:      news,
		compiler:  compiler,
		saver:     saver,
	}
}

// Run executes one analysis. It fails only for invalid input, a missing price
// credential, or a compiler failure; degraded stages are carried in the report.
func (p *Pipeline) Run(ctx context.Context, q fetcher.AssetQuery) (*compiler.AnalysisReport, error) {
	q, err := fetcher.NewAssetQuery(q.ID, q.Symbol, q.NewsLimit)
	if err != nil {
		return nil, err
	}

	logger := slog.With("id", q.ID, "symbol", q.Symbol)

	price, err := p.price.FetchPrice(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("price stage: %w", err)
	}
	logger.Debug("price stage finished", "price_usd", price.PriceUSD, "error", price.Error)

	sent := p.sentiment.FetchSentiment(ctx, q.Symbol, price)
	logger.Debug("sentiment stage finished", "sentiment", sent.Sentiment, "source", sent.Source)

	news := p.news.FetchNews(ctx, q.ID, q.NewsLimit)
	logger.Debug("news stage finished", "articles", len(news))

	report, err := p.compiler.Compile(ctx, &price, &sent, news)
	if err != nil {
		return nil, fmt.Errorf("compile stage: %w", err)
	}

	if p.saver != nil {
		if err := p.saver.SaveReport(ctx, report); err != nil {
			logger.Warn("failed to store report", "report_id", report.ID, "error", err.Error())
		}
	}

	return report, nil
}

// Price runs the price stage alone
func (p *Pipeline) Price(ctx context.Context, q fetcher.AssetQuery) (fetcher.PriceRecord, error) {
	return p.price.FetchPrice(ctx, q)
}

// Sentiment runs the sentiment stage alone
func (p *Pipeline) Sentiment(ctx context.Context, symbol string, price fetcher.PriceRecord) fetcher.SentimentRecord {
	return p.sentiment.FetchSentiment(ctx, symbol, price)
}

// News runs the news stage alone
func (p *Pipeline) News(ctx context.Context, id string, limit int) []fetcher.NewsRecord {
	return p.news.FetchNews(ctx, id, limit)
}

// Compile runs the compiler stage alone
func (p *Pipeline) Compile(ctx context.Context, price *fetcher.PriceRecord, sent *fetcher.SentimentRecord, news []fetcher.NewsRecord) (*compiler.AnalysisReport, error) {
	return p.compiler.Compile(ctx, price, sent, news)
}
