package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"cryptoanalyst/internal/coincap"
	"cryptoanalyst/internal/coinmarketcap"
	"cryptoanalyst/internal/compiler"
	"cryptoanalyst/internal/config"
	"cryptoanalyst/internal/coordinator"
	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/llm"
	"cryptoanalyst/internal/newsapi"
	"cryptoanalyst/internal/ratelimit"
	"cryptoanalyst/internal/store"
	"cryptoanalyst/internal/tools"
)

type options struct {
	id        string
	symbol    string
	newsLimit int
	tool      string
	input     string
	session   string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("cryptoanalyst", flag.ContinueOnError)
	fs.StringVar(&opts.id, "id", "", "asset identifier, e.g. bitcoin (defaults to configured assets)")
	fs.StringVar(&opts.symbol, "symbol", "", "ticker symbol, e.g. BTC")
	fs.IntVar(&opts.newsLimit, "news-limit", 0, "number of headlines (1-20)")
	fs.StringVar(&opts.tool, "tool", "", "run a single tool: "+strings.Join(toolNames, ", "))
	fs.StringVar(&opts.input, "input", "{}", "JSON arguments for --tool")
	fs.StringVar(&opts.session, "session", "", "conversation session to record the analysis under")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.id != "" && opts.symbol == "" {
		return opts, errors.New("--symbol is required with --id")
	}
	return opts, nil
}

var toolNames = []string{
	tools.GetPrice, tools.GetSentiment, tools.GetNews, tools.Compile, tools.Analyze,
	tools.GetReport, tools.RecentReports, tools.GetConversation,
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid arguments: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))

	// Create context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var history *store.RedisStore
	var saver coordinator.ReportSaver
	if cfg.StoreEnabled() {
		history, err = store.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ReportTTL)
		if err != nil {
			slog.Warn("report store disabled", "error", err.Error())
		} else {
			defer history.Close()
			saver = history
		}
	}

	limiter := ratelimit.New(ratelimit.DefaultLimits)
	pipeline := newPipeline(cfg, limiter, saver)

	// A nil *RedisStore must not reach the registry as a non-nil interface.
	var st tools.Store
	if history != nil {
		st = history
	}
	registry := tools.NewRegistry(pipeline, st, cfg.NewsLimit)

	if err := run(ctx, os.Stdout, cfg, opts, pipeline, registry); err != nil {
		log.Fatalf("%v", err)
	}
}

// run dispatches to a single tool, a single asset, or every configured asset
func run(ctx context.Context, w io.Writer, cfg *config.Config, opts options, pipeline *coordinator.Pipeline, registry *tools.Registry) error {
	if opts.tool != "" {
		out, err := registry.InvokeJSON(ctx, opts.tool, json.RawMessage(opts.input))
		if err != nil {
			return fmt.Errorf("%s: %w", opts.tool, err)
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	newsLimit := opts.newsLimit
	if newsLimit == 0 {
		newsLimit = cfg.NewsLimit
	}

	if opts.id != "" {
		args, err := json.Marshal(map[string]any{
			"id":        opts.id,
			"symbol":    opts.symbol,
			"newsLimit": newsLimit,
			"session":   opts.session,
		})
		if err != nil {
			return err
		}
		out, err := registry.Invoke(ctx, tools.Analyze, args)
		q := fetcher.AssetQuery{ID: opts.id, Symbol: opts.symbol, NewsLimit: newsLimit}
		if err != nil {
			coordinator.Print(w, []coordinator.Outcome{{Query: q, Err: err}})
			return errors.New("analysis failed")
		}
		coordinator.Print(w, []coordinator.Outcome{{Query: q, Report: out.(*compiler.AnalysisReport)}})
		return nil
	}

	queries, err := cfg.Queries()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Analyzing configured assets...")
	fmt.Fprintln(w, "================================================")
	outcomes, err := coordinator.New(pipeline, cfg.MaxParallel).Run(ctx, queries)
	if err != nil {
		return fmt.Errorf("coordinator failed: %w", err)
	}
	coordinator.Print(w, outcomes)
	fmt.Fprintln(w, "================================================")
	return nil
}

// newPipeline builds every stage from configuration. saver may be nil.
func newPipeline(cfg *config.Config, limiter *ratelimit.Limiter, saver coordinator.ReportSaver) *coordinator.Pipeline {
	var narrator compiler.Narrator
	if cfg.LLMEnabled() {
		narrator = compiler.NewLLMNarrator(llm.NewClient(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel, limiter))
	}

	return coordinator.NewPipeline(
		coincap.NewPriceFetcher(cfg.CoinCapAPIKey, cfg.CoinCapBaseURL, cfg.RequestTimeout, limiter),
		coinmarketcap.NewSentimentFetcher(cfg.CMCAPIKey, cfg.CMCBaseURL, cfg.RequestTimeout, limiter),
		newsapi.NewNewsFetcher(cfg.NewsAPIKey, cfg.NewsBaseURL, cfg.RequestTimeout, limiter),
		compiler.New(narrator, cfg.LLMTimeout),
		saver,
	)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
