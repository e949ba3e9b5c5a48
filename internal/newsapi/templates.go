package newsapi

import (
	"fmt"
	"strings"
	"time"

	"cryptoanalyst/internal/fetcher"
)

type template struct {
	title       string
	description string
	source      string
}

var templates = []template{
	{
		title:       "%s market update: traders watch key levels",
		description: "Market participants are monitoring %s price action and trading volume for signs of the next move.",
		source:      "Market Wire",
	},
	{
		title:       "Analysts weigh %s outlook amid shifting sentiment",
		description: "Analysts are reviewing on-chain activity and macro conditions to gauge where %s heads next.",
		source:      "Crypto Desk",
	},
	{
		title:       "%s network activity and adoption trends",
		description: "Developers and investors continue to follow adoption metrics and ecosystem growth around %s.",
		source:      "Chain Report",
	},
}

// Templates returns placeholder articles about term, at most limit of them,
// tagged with the given tier.
func Templates(term string, limit int, now time.Time, tier fetcher.NewsTier) []fetcher.NewsRecord {
	name := displayName(term)
	n := min(limit, len(templates))
	published := now.UTC().Format(time.RFC3339)

	records := make([]fetcher.NewsRecord, 0, n)
	for _, t := range templates[:n] {
		records = append(records, fetcher.NewsRecord{
			Title:       fmt.Sprintf(t.title, name),
			Description: fmt.Sprintf(t.description, name),
			URL:         PlaceholderURL,
			PublishedAt: published,
			Source:      t.source,
			Tier:        tier,
		})
	}
	return records
}

// displayName turns "usd-coin" into "Usd Coin"
func displayName(term string) string {
	parts := strings.FieldsFunc(term, func(r rune) bool { return r == '-' || r == ' ' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return "Crypto"
	}
	return strings.Join(parts, " ")
}
