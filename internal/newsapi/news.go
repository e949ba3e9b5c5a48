package newsapi

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"resty.dev/v3"

	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/ratelimit"
)

const (
	providerName = "newsapi"
	apiKeyHeader = "X-Api-Key"
)

// Article represents a single NewsAPI article
type Article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// EverythingResponse represents the NewsAPI /everything response
type EverythingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// NewsFetcher fetches recent headlines from NewsAPI
type NewsFetcher struct {
	apiKey  string
	timeout time.Duration
	client  *resty.Client
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// NewNewsFetcher creates a new news fetcher. Without an apiKey every fetch
// returns an empty slice.
func NewNewsFetcher(apiKey, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *NewsFetcher {
	if timeout <= 0 {
		timeout = fetcher.DefaultTimeout
	}

	client := fetcher.NewHTTPClient(baseURL, timeout)
	if apiKey != "" {
		client.SetHeader(apiKeyHeader, apiKey)
	}

	return &NewsFetcher{
		apiKey:  apiKey,
		timeout: timeout,
		client:  client,
		limiter: limiter,
		now:     time.Now,
	}
}

// WithClock replaces the time source used for missing publication dates
func (f *NewsFetcher) WithClock(now func() time.Time) *NewsFetcher {
	f.now = now
	return f
}

// FetchNews returns up to limit sanitized headlines about id. It never fails:
// without a credential the result is empty, and provider failures are
// replaced by templated articles.
func (f *NewsFetcher) FetchNews(ctx context.Context, id string, limit int) []fetcher.NewsRecord {
	id = fetcher.NormalizeID(id)
	limit = clampLimit(limit)

	if f.apiKey == "" {
		slog.Debug("news credential missing, skipping", "provider", providerName, "id", id)
		return []fetcher.NewsRecord{}
	}

	now := f.now()

	articles, err := f.fetchArticles(ctx, id, limit)
	if err != nil {
		slog.Warn("news fetch degraded, using templates",
			"provider", providerName,
			"id", id,
			"error", err.Error())
		return Templates(id, limit, now, fetcher.TierLastResort)
	}

	records := make([]fetcher.NewsRecord, 0, limit)
	for _, a := range articles {
		if len(records) == limit {
			break
		}
		if rec, ok := Sanitize(a, now); ok {
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		slog.Warn("news provider returned no usable articles, using templates",
			"provider", providerName,
			"id", id)
		return Templates(id, limit, now, fetcher.TierTemplated)
	}

	return records
}

// fetchArticles performs the single bounded call to /everything
func (f *NewsFetcher) fetchArticles(ctx context.Context, id string, limit int) ([]Article, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx, ratelimit.APINewsAPI); err != nil {
		return nil, fetcher.NewTimeoutError(err)
	}

	var result EverythingResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        Query(id),
			"sortBy":   "publishedAt",
			"pageSize": strconv.Itoa(limit),
			"language": "en",
		}).
		SetResult(&result).
		Get("/everything")

	if err := fetcher.CheckResponse(providerName, resp, err); err != nil {
		return nil, err
	}

	if result.Status != "ok" {
		return nil, fetcher.NewValidationError(fmt.Sprintf("status %q: %s", result.Status, result.Message))
	}

	return result.Articles, nil
}

// Query composes the search expression for an asset
func Query(id string) string {
	return fmt.Sprintf("%s AND (cryptocurrency OR crypto OR blockchain)", id)
}

func clampLimit(limit int) int {
	if limit < fetcher.MinNewsLimit {
		return fetcher.MinNewsLimit
	}
	if limit > fetcher.MaxNewsLimit {
		return fetcher.MaxNewsLimit
	}
	return limit
}
