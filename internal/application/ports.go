package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/domain"
)

// QuoteCacheStore is the durable symbol-keyed cache of market data. Get
// returns ErrNotFound when no record exists for the symbol.
type QuoteCacheStore interface {
	Get(ctx context.Context, symbol string) (domain.QuoteRecord, error)
	Put(ctx context.Context, record domain.QuoteRecord) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// PriceProvider is one upstream quote source. Implementations return an error
// (or a non-positive price / empty series) when they cannot answer; they never
// invent data.
type PriceProvider interface {
	Name() domain.DataSource
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	HistoricalPrices(ctx context.Context, symbol string, days int) (map[string]decimal.Decimal, error)
}

// PortfolioRepo is the read-only holdings source.
type PortfolioRepo interface {
	GetByID(ctx context.Context, id int64) (domain.Portfolio, error)
	ListIDs(ctx context.Context) ([]int64, error)
	ListInvestments(ctx context.Context, portfolioID int64) ([]domain.Investment, error)
}

// SnapshotRepo stores the append-only daily performance series. Upsert is
// idempotent per (portfolio, date): a same-day write replaces the day's value.
type SnapshotRepo interface {
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.PerformanceSnapshot, error)
	Upsert(ctx context.Context, snap domain.PerformanceSnapshot) error
}

type Clock interface {
	Now() time.Time
}
