package utils

import (
	"net/url"
	"strings"
)

// NormalizeTicker normalizes a user-input ticker: surrounding whitespace and a
// leading "$" are removed and the symbol is uppercased. No other validation is
// done; the data provider decides whether a symbol exists.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	return strings.TrimSpace(ticker)
}

// TickerPath escapes a normalized ticker for use as a URL path segment
// ("^GSPC" → "%5EGSPC").
func TickerPath(ticker string) string {
	return url.PathEscape(ticker)
}

// IsIndex reports whether the ticker uses Yahoo's index notation (^GSPC, ^DJI).
func IsIndex(ticker string) bool {
	return strings.HasPrefix(NormalizeTicker(ticker), "^")
}
