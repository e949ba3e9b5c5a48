package compiler

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/llm"
)

// Narrator turns a payload and its prompt into an ordered fragment sequence
type Narrator interface {
	Narrate(ctx context.Context, p Payload, prompt string) iter.Seq2[string, error]
}

// LLMNarrator delegates prose to a language model
type LLMNarrator struct {
	client *llm.Client
}

// NewLLMNarrator wraps an llm client
func NewLLMNarrator(client *llm.Client) *LLMNarrator {
	return &LLMNarrator{client: client}
}

// Narrate implements Narrator
func (n *LLMNarrator) Narrate(ctx context.Context, _ Payload, prompt string) iter.Seq2[string, error] {
	return n.client.Stream(ctx, prompt)
}

// TemplateNarrator writes a plain summary locally when no model is configured
type TemplateNarrator struct{}

// Narrate implements Narrator
func (TemplateNarrator) Narrate(ctx context.Context, p Payload, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, s := range templateSentences(p) {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

func templateSentences(p Payload) []string {
	var out []string

	if p.PriceError != "" {
		out = append(out, fmt.Sprintf("Live pricing for %s is unavailable (%s). ", p.Symbol, p.PriceError))
	} else {
		s := fmt.Sprintf("%s is trading at %s", p.Symbol, p.PriceFormatted)
		if p.ChangePercent24h != "" && p.ChangePercent24h != Unavailable {
			s += fmt.Sprintf(", %s%% over 24 hours", p.ChangePercent24h)
		}
		out = append(out, s+". ")
	}

	mood := fmt.Sprintf("Market sentiment is %s with a Fear & Greed reading of %d (%s)", p.Sentiment, p.FearGreedValue, p.Classification)
	if p.SentimentError != "" {
		mood += ", estimated because the live index could not be reached"
	}
	out = append(out, mood+". ")

	if len(p.News) > 0 {
		titles := make([]string, 0, headlineCount)
		for i, n := range p.News {
			if i == headlineCount {
				break
			}
			titles = append(titles, fmt.Sprintf("%q", n.Title))
		}
		out = append(out, "Recent headlines: "+strings.Join(titles, "; ")+". ")
	} else {
		out = append(out, "No recent headlines were available. ")
	}

	switch p.Sentiment {
	case fetcher.Bullish:
		out = append(out, "Conditions lean optimistic, but greed readings often precede pullbacks.")
	case fetcher.Bearish:
		out = append(out, "Conditions lean cautious; fearful markets can stay volatile.")
	default:
		out = append(out, "Signals are mixed, so position sizing matters more than direction.")
	}

	return out
}
