// Package sentiment converts Fear & Greed index values into sentiment
// readings and derives a deterministic reading when no provider is usable.
// Every function here is pure: the current time is always passed in.
package sentiment

import (
	"time"

	"cryptoanalyst/internal/fetcher"
)

const (
	// LiveConfidence accompanies readings taken from the index provider
	LiveConfidence = 0.85
	// FallbackConfidence accompanies readings derived by Fallback
	FallbackConfidence = 0.3

	// SourceFallback names readings produced by Fallback
	SourceFallback = "fallback"

	bullishThreshold = 60
	bearishThreshold = 40

	tradingHourStart = 9
	tradingHourEnd   = 16
)

// Reading is the conversion of a single index value
type Reading struct {
	Sentiment      fetcher.Sentiment
	Score          float64
	Value          int
	Classification string
}

// Convert maps an index value in [0,100] to a score in [-1,1], a three-way
// label and a five-bucket classification.
// The label thresholds (60/40) and the classification thresholds (55/45)
// differ and must stay that way.
func Convert(value int) Reading {
	score := clamp(float64(value-50)/50, -1, 1)

	label := fetcher.Neutral
	switch {
	case value >= bullishThreshold:
		label = fetcher.Bullish
	case value <= bearishThreshold:
		label = fetcher.Bearish
	}

	return Reading{
		Sentiment:      label,
		Score:          score,
		Value:          value,
		Classification: Classify(value),
	}
}

// Classify returns the five-bucket Fear & Greed label, first match wins
func Classify(value int) string {
	switch {
	case value >= 75:
		return "Extreme Greed"
	case value >= 55:
		return "Greed"
	case value >= 45:
		return "Neutral"
	case value >= 25:
		return "Fear"
	default:
		return "Extreme Fear"
	}
}

// FallbackIndex derives a pseudo index from the symbol and the hour bucket of now.
// It is stable for a given symbol within one UTC hour.
func FallbackIndex(symbol string, now time.Time) int {
	sum := 0
	for _, r := range symbol {
		sum += int(r)
	}
	bucket := int(now.UnixMilli() / int64(time.Hour/time.Millisecond))
	hash := (sum + bucket) % 100

	if hour := now.UTC().Hour(); hour >= tradingHourStart && hour <= tradingHourEnd {
		hash = abs(hash-50) + 30
	}
	return clampInt(hash, 0, 100)
}

// Fallback builds a complete degraded record. reason becomes the record's error.
func Fallback(symbol string, now time.Time, reason string) fetcher.SentimentRecord {
	return Record(Convert(FallbackIndex(symbol, now)), FallbackConfidence, SourceFallback, reason)
}

// Record turns a reading into the stage output
func Record(r Reading, confidence float64, source, errMsg string) fetcher.SentimentRecord {
	return fetcher.SentimentRecord{
		Sentiment:      r.Sentiment,
		Score:          r.Score,
		FearGreedValue: r.Value,
		Classification: r.Classification,
		Confidence:     confidence,
		Source:         source,
		Error:          errMsg,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
