package domain

import (
	"regexp"
	"strings"
)

// Ticker symbols: 1-10 uppercase letters, digits, dot or dash (BRK.B, BTC-USD).
var symbolRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// NormalizeSymbol upper-cases and trims a ticker so cache keys are canonical.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func ValidateSymbol(s string) bool {
	return symbolRe.MatchString(s)
}

const (
	MinHistoryDays = 1
	MaxHistoryDays = 365
)

// ClampHistoryDays bounds a historical lookup window to [1, 365] before it
// reaches any provider.
func ClampHistoryDays(days int) int {
	if days < MinHistoryDays {
		return MinHistoryDays
	}
	if days > MaxHistoryDays {
		return MaxHistoryDays
	}
	return days
}
