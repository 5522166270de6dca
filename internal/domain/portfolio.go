package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID        int64
	Name      string
	RiskLevel string
	CreatedAt time.Time
}

// Investment is one holding inside a portfolio. CurrentPrice is the last
// persisted price; the aggregator prefers a fresher quote from the cache when
// one is available.
type Investment struct {
	ID            int64
	PortfolioID   int64
	Name          string
	Symbol        string
	Type          string
	Shares        decimal.Decimal
	PurchasePrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	PurchaseDate  time.Time
}

// Value is shares × current price.
func (i Investment) Value() decimal.Decimal {
	return i.Shares.Mul(i.CurrentPrice)
}
