package compiler

import "cryptoanalyst/internal/fetcher"

// Payload is the normalized merge of the three upstream records.
// Upstream errors are carried as separate fields, never overwriting data.
type Payload struct {
	ID               string               `json:"id"`
	Symbol           string               `json:"symbol"`
	PriceUSD         string               `json:"price_usd"`
	PriceFormatted   string               `json:"price_formatted"`
	ChangePercent24h string               `json:"change_percent_24h"`
	PriceError       string               `json:"price_error,omitempty"`
	Sentiment        fetcher.Sentiment    `json:"sentiment"`
	SentimentScore   float64              `json:"sentiment_score"`
	FearGreedValue   int                  `json:"fear_greed_value"`
	Classification   string               `json:"classification"`
	Confidence       float64              `json:"confidence"`
	SentimentSource  string               `json:"sentiment_source"`
	SentimentError   string               `json:"sentiment_error,omitempty"`
	News             []fetcher.NewsRecord `json:"news"`
}

// AnalysisReport is the terminal artifact of a pipeline run
type AnalysisReport struct {
	ID        string                  `json:"id"`
	Price     fetcher.PriceRecord     `json:"price"`
	Sentiment fetcher.SentimentRecord `json:"sentiment"`
	News      []fetcher.NewsRecord    `json:"news"`
	Payload   Payload                 `json:"payload"`
	Narrative string                  `json:"narrative"`
	CreatedAt string                  `json:"createdAt"`
}

// Merge builds the payload. news may be nil.
func Merge(price fetcher.PriceRecord, sent fetcher.SentimentRecord, news []fetcher.NewsRecord) Payload {
	if news == nil {
		news = []fetcher.NewsRecord{}
	}

	return Payload{
		ID:               price.ID,
		Symbol:           price.Symbol,
		PriceUSD:         price.PriceUSD,
		PriceFormatted:   FormatUSD(price.PriceUSD),
		ChangePercent24h: price.ChangePercent24h,
		PriceError:       price.Error,
		Sentiment:        sent.Sentiment,
		SentimentScore:   sent.Score,
		FearGreedValue:   sent.FearGreedValue,
		Classification:   sent.Classification,
		Confidence:       sent.Confidence,
		SentimentSource:  sent.Source,
		SentimentError:   sent.Error,
		News:             news,
	}
}
