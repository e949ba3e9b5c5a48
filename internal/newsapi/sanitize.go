package newsapi

import (
	"net/url"
	"strings"
	"time"

	"cryptoanalyst/internal/fetcher"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 500

	// PlaceholderURL replaces links that are not absolute http(s) URLs
	PlaceholderURL = "#"

	defaultTitle       = "Untitled article"
	defaultDescription = "No description available."
	defaultSource      = "Unknown"

	// removedMarker is what NewsAPI puts in place of withdrawn articles.
	removedMarker = "[Removed]"
)

var minPublished = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Sanitize caps, defaults and checks every field of an article.
// ok is false for articles NewsAPI has withdrawn or that carry no text at all.
func Sanitize(a Article, now time.Time) (fetcher.NewsRecord, bool) {
	title := strings.TrimSpace(a.Title)
	description := strings.TrimSpace(a.Description)

	if title == removedMarker || (title == "" && description == "") {
		return fetcher.NewsRecord{}, false
	}

	if title == "" {
		title = defaultTitle
	}
	if description == "" {
		description = defaultDescription
	}

	source := strings.TrimSpace(a.Source.Name)
	if source == "" {
		source = defaultSource
	}

	return fetcher.NewsRecord{
		Title:       truncate(title, maxTitleLen),
		Description: truncate(description, maxDescriptionLen),
		URL:         SanitizeURL(a.URL),
		PublishedAt: SanitizePublishedAt(a.PublishedAt, now),
		Source:      source,
		Tier:        fetcher.TierLive,
	}, true
}

// SanitizeURL keeps absolute http and https URLs and replaces anything else
func SanitizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return PlaceholderURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return PlaceholderURL
	}
	return u.String()
}

// SanitizePublishedAt keeps dates after 2000-01-01 and substitutes now otherwise
func SanitizePublishedAt(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.After(minPublished) {
			return t.UTC().Format(time.RFC3339)
		}
		break
	}
	return now.UTC().Format(time.RFC3339)
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
