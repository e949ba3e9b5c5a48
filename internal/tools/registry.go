// Package tools exposes each pipeline stage as a named operation taking and
// returning JSON, for use by a chat agent or any other caller.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cryptoanalyst/internal/compiler"
	"cryptoanalyst/internal/coordinator"
	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/store"
)

// Tool names
const (
	GetPrice     = "get_crypto_price"
	GetSentiment = "get_market_sentiment"
	GetNews      = "get_crypto_news"
	Compile      = "compile_analysis"
	Analyze      = "analyze_crypto"

	GetReport       = "get_report"
	RecentReports   = "recent_reports"
	GetConversation = "get_conversation"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// ErrUnknownTool is returned by Invoke for unregistered names
var ErrUnknownTool = errors.New("unknown tool")

// Store keeps finished reports and the conversation turns around them
type Store interface {
	AppendMessage(ctx context.Context, session string, msg store.Message) error
	History(ctx context.Context, session string, n int) ([]store.Message, error)
	GetReport(ctx context.Context, id string) (*compiler.AnalysisReport, error)
	RecentReports(ctx context.Context, symbol string, n int) ([]*compiler.AnalysisReport, error)
}

// Handler runs one tool against decoded JSON arguments
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Registry maps tool names to handlers
type Registry struct {
	handlers map[string]Handler
}

type priceArgs struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

type sentimentArgs struct {
	Symbol string              `json:"symbol"`
	Price  fetcher.PriceRecord `json:"price"`
}

type newsArgs struct {
	ID    string `json:"id"`
	Limit int    `json:"limit"`
}

type compileArgs struct {
	Price     *fetcher.PriceRecord     `json:"price"`
	Sentiment *fetcher.SentimentRecord `json:"sentiment"`
	News      []fetcher.NewsRecord     `json:"news"`
}

type reportArgs struct {
	ID string `json:"id"`
}

type recentArgs struct {
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit"`
}

type conversationArgs struct {
	Session string `json:"session"`
	Limit   int    `json:"limit"`
}

type analyzeArgs struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	NewsLimit int    `json:"newsLimit"`
	Session   string `json:"session"`
}

// NewRegistry registers every stage of p. st may be nil, in which case
// sessions are not recorded and the read tools are not registered.
func NewRegistry(p *coordinator.Pipeline, st Store, defaultNewsLimit int) *Registry {
	r := &Registry{handlers: make(map[string]Handler)}

	r.handlers[GetPrice] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args priceArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		id := fetcher.NormalizeID(args.ID)
		if err := fetcher.ValidateID(id); err != nil {
			return nil, err
		}
		return p.Price(ctx, fetcher.AssetQuery{ID: id, Symbol: strings.ToUpper(args.Symbol), NewsLimit: defaultNewsLimit})
	}

	r.handlers[GetSentiment] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args sentimentArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		symbol := strings.ToUpper(strings.TrimSpace(args.Symbol))
		if err := fetcher.ValidateSymbol(symbol); err != nil {
			return nil, err
		}
		return p.Sentiment(ctx, symbol, args.Price), nil
	}

	r.handlers[GetNews] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args newsArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		id := fetcher.NormalizeID(args.ID)
		if err := fetcher.ValidateID(id); err != nil {
			return nil, err
		}
		if args.Limit == 0 {
			args.Limit = defaultNewsLimit
		}
		if args.Limit < fetcher.MinNewsLimit || args.Limit > fetcher.MaxNewsLimit {
			return nil, fetcher.NewInputError(fmt.Sprintf("news limit %d out of range %d..%d", args.Limit, fetcher.MinNewsLimit, fetcher.MaxNewsLimit))
		}
		return p.News(ctx, id, args.Limit), nil
	}

	r.handlers[Compile] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args compileArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return p.Compile(ctx, args.Price, args.Sentiment, args.News)
	}

	r.handlers[Analyze] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args analyzeArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		if args.NewsLimit == 0 {
			args.NewsLimit = defaultNewsLimit
		}

		report, err := p.Run(ctx, fetcher.AssetQuery{ID: args.ID, Symbol: args.Symbol, NewsLimit: args.NewsLimit})
		if err != nil {
			return nil, err
		}

		if st != nil && args.Session != "" {
			recordTurn(ctx, st, args.Session, args, report)
		}
		return report, nil
	}

	if st != nil {
		registerReads(r, st)
	}

	return r
}

func registerReads(r *Registry, st Store) {
	r.handlers[GetReport] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args reportArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		if strings.TrimSpace(args.ID) == "" {
			return nil, fetcher.NewInputError("report id is required")
		}
		return st.GetReport(ctx, strings.TrimSpace(args.ID))
	}

	r.handlers[RecentReports] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args recentArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		symbol := strings.ToUpper(strings.TrimSpace(args.Symbol))
		if err := fetcher.ValidateSymbol(symbol); err != nil {
			return nil, err
		}
		limit, err := listLimit(args.Limit)
		if err != nil {
			return nil, err
		}
		return st.RecentReports(ctx, symbol, limit)
	}

	r.handlers[GetConversation] = func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args conversationArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		if strings.TrimSpace(args.Session) == "" {
			return nil, fetcher.NewInputError("session is required")
		}
		limit, err := listLimit(args.Limit)
		if err != nil {
			return nil, err
		}
		return st.History(ctx, args.Session, limit)
	}
}

func listLimit(n int) (int, error) {
	if n == 0 {
		return defaultListLimit, nil
	}
	if n < 1 || n > maxListLimit {
		return 0, fetcher.NewInputError(fmt.Sprintf("limit %d out of range 1..%d", n, maxListLimit))
	}
	return n, nil
}

// Names lists the registered tools in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named tool with JSON arguments
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h(ctx, args)
}

// InvokeJSON runs the named tool and encodes its result
func (r *Registry) InvokeJSON(ctx context.Context, name string, args json.RawMessage) ([]byte, error) {
	out, err := r.Invoke(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(out, "", "  ")
}

// decode rejects unknown fields so typos surface as input errors
func decode(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		fe := fetcher.NewInputError(fmt.Sprintf("invalid arguments: %v", err))
		fe.Cause = err
		return fe
	}
	return nil
}

func recordTurn(ctx context.Context, history Store, session string, args analyzeArgs, report *compiler.AnalysisReport) {
	turns := []store.Message{
		{Role: "user", Content: fmt.Sprintf("Analyze %s (%s)", strings.ToUpper(args.Symbol), args.ID)},
		{Role: "assistant", Content: report.Narrative, ReportID: report.ID},
	}
	for _, msg := range turns {
		if err := history.AppendMessage(ctx, session, msg); err != nil {
			slog.Warn("failed to record conversation turn", "session", session, "error", err.Error())
			return
		}
	}
}
