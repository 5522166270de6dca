package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSummary is computed on demand and never persisted.
type PortfolioSummary struct {
	PortfolioID        int64
	Name               string
	RiskLevel          string
	TotalValue         decimal.Decimal
	DailyChange        decimal.Decimal
	DailyChangePercent decimal.Decimal
	YTDReturn          decimal.Decimal
	YTDReturnValue     decimal.Decimal
	PerformanceData    []PerformancePoint
	AssetAllocation    []AssetAllocation
}

// PerformancePoint is one (date, value) chart entry, ascending by date.
type PerformancePoint struct {
	Date  string
	Value decimal.Decimal
}

type AssetAllocation struct {
	Type       string
	Percentage decimal.Decimal
	Value      decimal.Decimal
}

// InvestmentPerformance decorates a holding with derived metrics. DailyChange
// comes from the quote cache's historical series; when fewer than two closes
// exist, DailyChangeKnown is false and both change fields are zero.
type InvestmentPerformance struct {
	Investment
	Value              decimal.Decimal
	DailyChange        decimal.Decimal
	DailyChangePercent decimal.Decimal
	DailyChangeKnown   bool
	TotalReturn        decimal.Decimal
	TotalReturnPercent decimal.Decimal
}

const isoDate = "2006-01-02"

// FormatDate renders a snapshot date as the ISO day key used across the
// cache and the performance series.
func FormatDate(t time.Time) string { return t.Format(isoDate) }

// ParseDate parses an ISO day key.
func ParseDate(s string) (time.Time, error) { return time.Parse(isoDate, s) }
