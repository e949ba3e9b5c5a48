package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cryptoanalyst/internal/fetcher"
)

// ErrMissingInput is returned when a required upstream record is absent
var ErrMissingInput = errors.New("compiler: missing upstream record")

// Compiler merges the stage outputs and renders the narrative
type Compiler struct {
	narrator Narrator
	timeout  time.Duration
	now      func() time.Time
}

// New creates a compiler. A nil narrator falls back to TemplateNarrator.
// timeout bounds narrative generation; zero leaves it to the caller's context.
func New(narrator Narrator, timeout time.Duration) *Compiler {
	if narrator == nil {
		narrator = TemplateNarrator{}
	}
	return &Compiler{
		narrator: narrator,
		timeout:  timeout,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for CreatedAt
func (c *Compiler) WithClock(now func() time.Time) *Compiler {
	c.now = now
	return c
}

// Compile produces the final report. Missing price or sentiment input and
// narrator failures abort the run.
func (c *Compiler) Compile(ctx context.Context, price *fetcher.PriceRecord, sent *fetcher.SentimentRecord, news []fetcher.NewsRecord) (*AnalysisReport, error) {
	if price == nil {
		return nil, fmt.Errorf("%w: price", ErrMissingInput)
	}
	if sent == nil {
		return nil, fmt.Errorf("%w: sentiment", ErrMissingInput)
	}

	payload := Merge(*price, *sent, news)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var sb strings.Builder
	for fragment, err := range c.narrator.Narrate(ctx, payload, BuildPrompt(payload)) {
		if err != nil {
			return nil, fmt.Errorf("narrative generation failed: %w", err)
		}
		sb.WriteString(fragment)
	}

	return &AnalysisReport{
		ID:        uuid.NewString(),
		Price:     *price,
		Sentiment: *sent,
		News:      payload.News,
		Payload:   payload,
		Narrative: strings.TrimSpace(sb.String()),
		CreatedAt: c.now().UTC().Format(time.RFC3339),
	}, nil
}
