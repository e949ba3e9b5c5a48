package fetcher

// Sentiment is the three-way market mood label
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

// ZeroPrice is the priceUsd sentinel carried by a PriceRecord with an error
const ZeroPrice = "0"

// NotAvailable marks a change percentage the provider did not report
const NotAvailable = "N/A"

// PriceRecord is the output of the price stage.
// When Error is set, PriceUSD is always ZeroPrice.
type PriceRecord struct {
	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	PriceUSD         string `json:"priceUsd"`
	ChangePercent24h string `json:"changePercent24h"`
	Error            string `json:"error,omitempty"`
}

// SentimentRecord is the output of the sentiment stage
type SentimentRecord struct {
	Sentiment      Sentiment `json:"sentiment"`
	Score          float64   `json:"score"`
	FearGreedValue int       `json:"fearGreedValue"`
	Classification string    `json:"classification"`
	Confidence     float64   `json:"confidence"`
	Source         string    `json:"source"`
	Error          string    `json:"error,omitempty"`
}

// NewsTier records where a NewsRecord came from
type NewsTier string

const (
	TierLive       NewsTier = "live"
	TierTemplated  NewsTier = "templated"
	TierLastResort NewsTier = "last_resort"
)

// NewsRecord is a single sanitized headline
type NewsRecord struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"publishedAt"`
	Source      string   `json:"source"`
	Tier        NewsTier `json:"tier"`
}
