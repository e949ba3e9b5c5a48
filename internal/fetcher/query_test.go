package fetcher

import (
	"testing"
)

func TestNewAssetQuery_Normalizes(t *testing.T) {
	q, err := NewAssetQuery("  Bitcoin ", " btc", 3)
	if err != nil {
		t.Fatalf("NewAssetQuery() returned unexpected error: %v", err)
	}

	if q.ID != "bitcoin" {
		t.Errorf("ID = %q, want %q", q.ID, "bitcoin")
	}
	if q.Symbol != "BTC" {
		t.Errorf("Symbol = %q, want %q", q.Symbol, "BTC")
	}
	if q.NewsLimit != 3 {
		t.Errorf("NewsLimit = %d, want 3", q.NewsLimit)
	}
}

func TestNewAssetQuery_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		symbol string
		limit  int
	}{
		{"path traversal", "../etc", "BTC", 3},
		{"empty id", "", "BTC", 3},
		{"whitespace id", "   ", "BTC", 3},
		{"markup", "<script>", "BTC", 3},
		{"braces", "bit{coin}", "BTC", 3},
		{"backslash", `bit\coin`, "BTC", 3},
		{"numeric id", "12345", "BTC", 3},
		{"underscore", "bit_coin", "BTC", 3},
		{"short symbol", "bitcoin", "B", 3},
		{"long symbol", "bitcoin", "ABCDEFGHIJK", 3},
		{"symbol punctuation", "bitcoin", "BT-C", 3},
		{"limit zero", "bitcoin", "BTC", 0},
		{"limit too high", "bitcoin", "BTC", 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssetQuery(tt.id, tt.symbol, tt.limit)
			if err == nil {
				t.Fatal("NewAssetQuery() expected error, got nil")
			}
			if !IsInputError(err) {
				t.Errorf("NewAssetQuery() error = %v, want input error", err)
			}
		})
	}
}

func TestNewAssetQuery_Accepts(t *testing.T) {
	tests := []struct {
		id     string
		symbol string
		limit  int
	}{
		{"bitcoin", "BTC", 1},
		{"ethereum", "ETH", 20},
		{"usd-coin", "USDC", 5},
		{"1inch", "1INCH", 5},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if _, err := NewAssetQuery(tt.id, tt.symbol, tt.limit); err != nil {
				t.Errorf("NewAssetQuery() returned unexpected error: %v", err)
			}
		})
	}
}

func TestCheckID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"bitcoin", false},
		{"wrapped-bitcoin", false},
		{"", true},
		{" ", true},
		{"a/b", true},
		{"[x]", true},
		{"42", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := CheckID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
