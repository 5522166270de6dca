package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataSource identifies which upstream produced a cached quote.
type DataSource string

const (
	SourcePrimary DataSource = "FMP"
	SourceBackup  DataSource = "ALPHA_VANTAGE"
)

// QuoteRecord is the cached market view of one symbol. CurrentPrice zero is
// the "unknown" sentinel, never a real market price. Historical prices are
// keyed by ISO date (2006-01-02).
type QuoteRecord struct {
	Symbol           string
	CurrentPrice     decimal.Decimal
	HistoricalPrices map[string]decimal.Decimal
	LastUpdated      time.Time
	DataSource       DataSource
}

// IsStale reports whether the record is older than ttl at the given instant.
func (q QuoteRecord) IsStale(ttl time.Duration, now time.Time) bool {
	return q.LastUpdated.Add(ttl).Before(now)
}

// MergeCurrentPrice returns a copy with a refreshed current price. The
// historical series is preserved untouched.
func (q QuoteRecord) MergeCurrentPrice(price decimal.Decimal, src DataSource, now time.Time) QuoteRecord {
	q.CurrentPrice = price
	q.DataSource = src
	q.LastUpdated = now
	return q
}

// MergeHistory returns a copy with a refreshed historical series. The current
// price is preserved untouched.
func (q QuoteRecord) MergeHistory(prices map[string]decimal.Decimal, src DataSource, now time.Time) QuoteRecord {
	q.HistoricalPrices = prices
	q.DataSource = src
	q.LastUpdated = now
	return q
}
