package newsapi

import (
	"strings"
	"testing"
	"time"

	"cryptoanalyst/internal/fetcher"
)

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func article(title, description, link, published, source string) Article {
	var a Article
	a.Title = title
	a.Description = description
	a.URL = link
	a.PublishedAt = published
	a.Source.Name = source
	return a
}

func TestSanitize_TruncatesTitle(t *testing.T) {
	long := strings.Repeat("a", 250)
	rec, ok := Sanitize(article(long, "d", "https://x.io/a", "2024-01-14T09:00:00Z", "X"), fixedNow)
	if !ok {
		t.Fatal("Sanitize() rejected a valid article")
	}
	if got := len([]rune(rec.Title)); got != 200 {
		t.Errorf("len(Title) = %d, want 200", got)
	}
}

func TestSanitize_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("é", 700)
	rec, _ := Sanitize(article("t", long, "https://x.io/a", "2024-01-14T09:00:00Z", "X"), fixedNow)
	if got := len([]rune(rec.Description)); got != 500 {
		t.Errorf("len(Description) = %d, want 500", got)
	}
}

func TestSanitize_Defaults(t *testing.T) {
	rec, ok := Sanitize(article("Only a title", "", "", "", ""), fixedNow)
	if !ok {
		t.Fatal("Sanitize() rejected article with a title")
	}
	if rec.Description != defaultDescription {
		t.Errorf("Description = %q, want %q", rec.Description, defaultDescription)
	}
	if rec.Source != defaultSource {
		t.Errorf("Source = %q, want %q", rec.Source, defaultSource)
	}
	if rec.URL != PlaceholderURL {
		t.Errorf("URL = %q, want %q", rec.URL, PlaceholderURL)
	}
	if rec.Tier != fetcher.TierLive {
		t.Errorf("Tier = %q, want live", rec.Tier)
	}

	rec, _ = Sanitize(article("", "Only a description", "", "", ""), fixedNow)
	if rec.Title != defaultTitle {
		t.Errorf("Title = %q, want %q", rec.Title, defaultTitle)
	}
}

func TestSanitize_Rejects(t *testing.T) {
	if _, ok := Sanitize(article("[Removed]", "[Removed]", "https://removed.com", "1970-01-01T00:00:00Z", "[Removed]"), fixedNow); ok {
		t.Error("Sanitize() accepted a removed article")
	}
	if _, ok := Sanitize(article("  ", "", "https://x.io", "", "X"), fixedNow); ok {
		t.Error("Sanitize() accepted an article without text")
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://coindesk.com/markets/btc", "https://coindesk.com/markets/btc"},
		{"http://example.org/a?b=c", "http://example.org/a?b=c"},
		{"not-a-url", "#"},
		{"", "#"},
		{"/relative/path", "#"},
		{"ftp://files.example.org/x", "#"},
		{"javascript:alert(1)", "#"},
		{"https://", "#"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := SanitizeURL(tt.raw); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizePublishedAt(t *testing.T) {
	now := fixedNow.Format(time.RFC3339)

	tests := []struct {
		raw  string
		want string
	}{
		{"2024-01-14T09:30:00Z", "2024-01-14T09:30:00Z"},
		{"2024-01-14T11:30:00+02:00", "2024-01-14T09:30:00Z"},
		{"2023-12-01", "2023-12-01T00:00:00Z"},
		{"1999-01-01", now},
		{"2000-01-01T00:00:00Z", now},
		{"yesterday", now},
		{"", now},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := SanitizePublishedAt(tt.raw, fixedNow); got != tt.want {
				t.Errorf("SanitizePublishedAt(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTemplates(t *testing.T) {
	recs := Templates("usd-coin", 5, fixedNow, fetcher.TierTemplated)
	if len(recs) != len(templates) {
		t.Fatalf("len = %d, want %d", len(recs), len(templates))
	}
	for _, r := range recs {
		if !strings.Contains(r.Title, "Usd Coin") {
			t.Errorf("Title = %q, want interpolated name", r.Title)
		}
		if r.Tier != fetcher.TierTemplated {
			t.Errorf("Tier = %q, want templated", r.Tier)
		}
		if r.URL != PlaceholderURL {
			t.Errorf("URL = %q, want placeholder", r.URL)
		}
	}

	if got := Templates("bitcoin", 1, fixedNow, fetcher.TierLastResort); len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}
