package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cryptoanalyst/internal/compiler"
	"cryptoanalyst/internal/config"
	"cryptoanalyst/internal/coordinator"
	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/ratelimit"
	"cryptoanalyst/internal/tools"
)

type providers struct {
	coincap *httptest.Server
	cmc     *httptest.Server
	news    *httptest.Server
	calls   atomic.Int32
}

func newProviders(t *testing.T) *providers {
	t.Helper()
	p := &providers{}

	rates := map[string]string{
		"bitcoin":  "67234.5612",
		"ethereum": "3120.1",
	}
	p.coincap = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		id := strings.TrimPrefix(r.URL.Path, "/rates/")
		rate, ok := rates[id]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
			return
		}
		fmt.Fprintf(w, `{"data":{"id":%q,"symbol":"X","rateUsd":%q,"changePercent24Hr":"2.3456"},"timestamp":1}`, id, rate)
	}))
	t.Cleanup(p.coincap.Close)

	p.cmc = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":{"error_code":"0","error_message":""},"data":[{"value":72,"value_classification":"Greed","timestamp":"1718000000"}]}`))
	}))
	t.Cleanup(p.cmc.Close)

	p.news = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"source":{"name":"CoinDesk"},"title":"Bitcoin climbs","description":"Markets rally.","url":"https://example.com/a","publishedAt":"2024-06-01T12:00:00Z"},
			{"source":{"name":"Decrypt"},"title":"[Removed]","description":"[Removed]","url":"https://removed.com","publishedAt":"2024-06-01T12:00:00Z"}
		]}`))
	}))
	t.Cleanup(p.news.Close)

	return p
}

func testConfig(coincapURL, cmcURL, newsURL string) *config.Config {
	return &config.Config{
		CoinCapAPIKey:  "test_coincap_key",
		CMCAPIKey:      "test_cmc_key",
		NewsAPIKey:     "test_news_key",
		CoinCapBaseURL: coincapURL,
		CMCBaseURL:     cmcURL,
		NewsBaseURL:    newsURL,
		RequestTimeout: 2 * time.Second,
		LLMTimeout:     2 * time.Second,
		MaxParallel:    2,
		NewsLimit:      5,
	}
}

// deadURL returns the address of a server that is no longer listening
func deadURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestIntegration_FullPipeline(t *testing.T) {
	p := newProviders(t)
	cfg := testConfig(p.coincap.URL, p.cmc.URL, p.news.URL)
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), nil)

	report, err := pipeline.Run(context.Background(), fetcher.AssetQuery{ID: "Bitcoin", Symbol: "btc", NewsLimit: 5})
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if report.Price.PriceUSD != "67234.5612" {
		t.Errorf("PriceUSD = %q, want %q", report.Price.PriceUSD, "67234.5612")
	}
	if report.Payload.PriceFormatted != "$67,234.56" {
		t.Errorf("PriceFormatted = %q, want %q", report.Payload.PriceFormatted, "$67,234.56")
	}
	if report.Price.ChangePercent24h != "2.35" {
		t.Errorf("ChangePercent24h = %q, want %q", report.Price.ChangePercent24h, "2.35")
	}
	if report.Sentiment.Classification != "Greed" || report.Sentiment.Sentiment != fetcher.Bullish {
		t.Errorf("Sentiment = %s (%s), want Bullish (Greed)", report.Sentiment.Sentiment, report.Sentiment.Classification)
	}
	if report.Sentiment.Error != "" {
		t.Errorf("Sentiment.Error = %q, want empty", report.Sentiment.Error)
	}
	if len(report.News) != 1 {
		t.Fatalf("len(News) = %d, want 1 (removed article dropped)", len(report.News))
	}
	if report.News[0].Tier != fetcher.TierLive {
		t.Errorf("News[0].Tier = %q, want %q", report.News[0].Tier, fetcher.TierLive)
	}
	if report.ID == "" || report.CreatedAt == "" || report.Narrative == "" {
		t.Errorf("report missing id, timestamp or narrative: %+v", report)
	}
}

func TestIntegration_AllProvidersUnreachable(t *testing.T) {
	url := deadURL()
	cfg := testConfig(url, url, url)
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), nil)

	report, err := pipeline.Run(context.Background(), fetcher.AssetQuery{ID: "bitcoin", Symbol: "BTC", NewsLimit: 3})
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if report.Price.PriceUSD != fetcher.ZeroPrice {
		t.Errorf("PriceUSD = %q, want %q", report.Price.PriceUSD, fetcher.ZeroPrice)
	}
	if report.Price.Error == "" {
		t.Error("Price.Error is empty, want provider failure message")
	}
	if report.Payload.PriceFormatted != "N/A" {
		t.Errorf("PriceFormatted = %q, want N/A", report.Payload.PriceFormatted)
	}
	if report.Sentiment.Source != "fallback" || report.Sentiment.Error == "" {
		t.Errorf("Sentiment source/error = %q/%q, want fallback with error", report.Sentiment.Source, report.Sentiment.Error)
	}
	if len(report.News) != 3 {
		t.Fatalf("len(News) = %d, want 3 templated articles", len(report.News))
	}
	for i, n := range report.News {
		if n.Tier != fetcher.TierLastResort {
			t.Errorf("News[%d].Tier = %q, want %q", i, n.Tier, fetcher.TierLastResort)
		}
	}
}

func TestIntegration_RejectsBadIDBeforeNetwork(t *testing.T) {
	p := newProviders(t)
	cfg := testConfig(p.coincap.URL, p.cmc.URL, p.news.URL)
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), nil)

	_, err := pipeline.Run(context.Background(), fetcher.AssetQuery{ID: "../etc", Symbol: "BTC", NewsLimit: 5})
	if !fetcher.IsInputError(err) {
		t.Fatalf("Run() error = %v, want input error", err)
	}
	if got := p.calls.Load(); got != 0 {
		t.Errorf("provider calls = %d, want 0", got)
	}
}

func TestIntegration_MissingPriceKey(t *testing.T) {
	p := newProviders(t)
	cfg := testConfig(p.coincap.URL, p.cmc.URL, p.news.URL)
	cfg.CoinCapAPIKey = ""
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), nil)

	_, err := pipeline.Run(context.Background(), fetcher.AssetQuery{ID: "bitcoin", Symbol: "BTC", NewsLimit: 5})
	if !fetcher.IsConfigError(err) {
		t.Fatalf("Run() error = %v, want configuration error", err)
	}
}

func TestIntegration_ConfiguredAssets(t *testing.T) {
	p := newProviders(t)
	cfg := testConfig(p.coincap.URL, p.cmc.URL, p.news.URL)
	cfg.Assets = []config.AssetConfig{
		{ID: "bitcoin", Symbol: "BTC"},
		{ID: "ethereum", Symbol: "ETH", NewsLimit: 2},
		{ID: "dogecoin", Symbol: "DOGE"},
	}
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), nil)
	registry := tools.NewRegistry(pipeline, nil, cfg.NewsLimit)

	var out bytes.Buffer
	if err := run(context.Background(), &out, cfg, options{}, pipeline, registry); err != nil {
		t.Fatalf("run() returned unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"BTC: $67,234.56", "ETH: $3,120.10", "DOGE: N/A", `coincap: cryptocurrency "dogecoin" not found`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestIntegration_ToolMode(t *testing.T) {
	p := newProviders(t)
	cfg := testConfig(p.coincap.URL, p.cmc.URL, p.news.URL)
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), nil)
	registry := tools.NewRegistry(pipeline, nil, cfg.NewsLimit)

	var out bytes.Buffer
	opts := options{tool: tools.GetPrice, input: `{"id":"ethereum","symbol":"eth"}`}
	if err := run(context.Background(), &out, cfg, opts, pipeline, registry); err != nil {
		t.Fatalf("run() returned unexpected error: %v", err)
	}

	var rec fetcher.PriceRecord
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatalf("tool output is not a price record: %v\n%s", err, out.String())
	}
	if rec.PriceUSD != "3120.1" || rec.Symbol != "ETH" {
		t.Errorf("record = %+v, want ETH at 3120.1", rec)
	}
}

func TestIntegration_SingleAsset(t *testing.T) {
	p := newProviders(t)
	cfg := testConfig(p.coincap.URL, p.cmc.URL, p.news.URL)
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), nil)
	registry := tools.NewRegistry(pipeline, nil, cfg.NewsLimit)

	var out bytes.Buffer
	opts := options{id: "bitcoin", symbol: "BTC", newsLimit: 2}
	if err := run(context.Background(), &out, cfg, opts, pipeline, registry); err != nil {
		t.Fatalf("run() returned unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "BTC: $67,234.56 bullish (Greed)") {
		t.Errorf("output = %q", out.String())
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "single asset",
			args: []string{"--id", "bitcoin", "--symbol", "BTC", "--news-limit", "3"},
			want: options{id: "bitcoin", symbol: "BTC", newsLimit: 3, input: "{}"},
		},
		{
			name: "tool",
			args: []string{"--tool", "get_crypto_news", "--input", `{"id":"bitcoin"}`},
			want: options{tool: "get_crypto_news", input: `{"id":"bitcoin"}`},
		},
		{
			name:    "id without symbol",
			args:    []string{"--id", "bitcoin"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

var _ coordinator.ReportSaver = (*captureSaver)(nil)

type captureSaver struct {
	reports []*compiler.AnalysisReport
}

func (c *captureSaver) SaveReport(_ context.Context, r *compiler.AnalysisReport) error {
	c.reports = append(c.reports, r)
	return nil
}

func TestIntegration_SavesReport(t *testing.T) {
	p := newProviders(t)
	cfg := testConfig(p.coincap.URL, p.cmc.URL, p.news.URL)
	saver := &captureSaver{}
	pipeline := newPipeline(cfg, ratelimit.Unlimited(), saver)

	report, err := pipeline.Run(context.Background(), fetcher.AssetQuery{ID: "bitcoin", Symbol: "BTC", NewsLimit: 1})
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if len(saver.reports) != 1 || saver.reports[0].ID != report.ID {
		t.Errorf("saved reports = %d, want the run's report", len(saver.reports))
	}
}
