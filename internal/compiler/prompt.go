package compiler

import (
	"fmt"
	"strings"
)

// headlineCount is how many headlines the prompt embeds
const headlineCount = 3

// BuildPrompt composes the request sent to the narrator
func BuildPrompt(p Payload) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Write a market analysis for %s (%s).\n\n", p.Symbol, p.ID)

	sb.WriteString("PRICE\n")
	if p.PriceError != "" {
		fmt.Fprintf(&sb, "- unavailable: %s\n", p.PriceError)
	} else {
		fmt.Fprintf(&sb, "- current price: %s\n", p.PriceFormatted)
		fmt.Fprintf(&sb, "- 24h change: %s\n", percent(p.ChangePercent24h))
	}

	sb.WriteString("\nSENTIMENT\n")
	fmt.Fprintf(&sb, "- Fear & Greed index: %d (%s)\n", p.FearGreedValue, p.Classification)
	fmt.Fprintf(&sb, "- overall: %s, score %.2f, confidence %.2f\n", p.Sentiment, p.SentimentScore, p.Confidence)
	if p.SentimentError != "" {
		fmt.Fprintf(&sb, "- note: estimated value, live index unavailable (%s)\n", p.SentimentError)
	}

	sb.WriteString("\nTOP HEADLINES\n")
	if len(p.News) == 0 {
		sb.WriteString("- none available\n")
	}
	for i, n := range p.News {
		if i == headlineCount {
			break
		}
		fmt.Fprintf(&sb, "%d. %s (%s, %s)\n", i+1, n.Title, n.Source, n.PublishedAt)
	}

	sb.WriteString("\nCover price action, market mood and the news, then give a short outlook.")
	return sb.String()
}

func percent(raw string) string {
	if raw == "" || raw == Unavailable {
		return Unavailable
	}
	return raw + "%"
}
