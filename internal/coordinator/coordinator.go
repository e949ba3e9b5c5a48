package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sourcegraph/conc/iter"

	"cryptoanalyst/internal/compiler"
	"cryptoanalyst/internal/fetcher"
)

// Runner executes a single analysis
type Runner interface {
	Run(ctx context.Context, q fetcher.AssetQuery) (*compiler.AnalysisReport, error)
}

// Outcome is the result of one run, kept alongside its query
type Outcome struct {
	Query  fetcher.AssetQuery
	Report *compiler.AnalysisReport
	Err    error
}

// Coordinator runs independent analyses concurrently
type Coordinator struct {
	runner      Runner
	maxParallel int
}

// New creates a new Coordinator. maxParallel < 1 runs every query at once.
func New(runner Runner, maxParallel int) *Coordinator {
	return &Coordinator{
		runner:      runner,
		maxParallel: maxParallel,
	}
}

// Run executes one pipeline per query concurrently and returns the outcomes
// in input order. A failing run never cancels its siblings.
func (c *Coordinator) Run(ctx context.Context, queries []fetcher.AssetQuery) ([]Outcome, error) {
	if len(queries) == 0 {
		return nil, errors.New("no assets configured")
	}

	n := c.maxParallel
	if n < 1 || n > len(queries) {
		n = len(queries)
	}

	mapper := iter.Mapper[fetcher.AssetQuery, Outcome]{MaxGoroutines: n}
	outcomes := mapper.Map(queries, func(q *fetcher.AssetQuery) Outcome {
		report, err := c.runner.Run(ctx, *q)
		return Outcome{Query: *q, Report: report, Err: err}
	})

	return outcomes, nil
}

// Print writes a one-line summary per outcome:
//   - Success: "SYMBOL: $PRICE sentiment (classification)"
//   - Error: "ID: ERROR - error message"
func Print(w io.Writer, outcomes []Outcome) {
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%s: ERROR - %v\n", o.Query.ID, o.Err)
			continue
		}
		if o.Report == nil {
			fmt.Fprintf(w, "%s: ERROR - no report\n", o.Query.ID)
			continue
		}

		p := o.Report.Payload
		fmt.Fprintf(w, "%s: %s %s (%s)\n", p.Symbol, p.PriceFormatted, p.Sentiment, p.Classification)
		if p.PriceError != "" {
			fmt.Fprintf(w, "  price: %s\n", p.PriceError)
		}
		if p.SentimentError != "" {
			fmt.Fprintf(w, "  sentiment: %s\n", p.SentimentError)
		}
		fmt.Fprintf(w, "  %s\n", o.Report.Narrative)
	}
}
