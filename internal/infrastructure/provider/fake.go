package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
)

var _ application.PriceProvider = (*Fake)(nil)

// Fake serves a fixed price for every symbol; useful for local runs without
// API keys.
type Fake struct {
	source domain.DataSource
	price  decimal.Decimal
}

func NewFake(source domain.DataSource, price float64) *Fake {
	return &Fake{source: source, price: decimal.NewFromFloat(price)}
}

func (f *Fake) Name() domain.DataSource { return f.source }

func (f *Fake) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return f.price, nil
}

func (f *Fake) HistoricalPrices(_ context.Context, _ string, days int) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, days)
	now := time.Now().UTC()
	for i := 0; i < days; i++ {
		out[domain.FormatDate(now.AddDate(0, 0, -i))] = f.price
	}
	return out, nil
}
