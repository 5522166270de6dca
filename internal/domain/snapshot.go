package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceSnapshot is one recorded total-value point for a portfolio on a
// given day. At most one exists per (portfolio, date); re-recording a day
// overwrites its value.
type PerformanceSnapshot struct {
	PortfolioID int64
	Date        time.Time
	TotalValue  decimal.Decimal
}
