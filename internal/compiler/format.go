package compiler

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Unavailable is shown in place of a price that could not be fetched
const Unavailable = "N/A"

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders a decimal price string as US currency, e.g. "$67,234.56".
// Prices below one dollar keep six decimals.
func FormatUSD(raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return Unavailable
	}

	if d.LessThan(decimal.NewFromInt(1)) {
		return printer.Sprintf("$%.6f", d.Round(6).InexactFloat64())
	}
	return printer.Sprintf("$%.2f", d.Round(2).InexactFloat64())
}
