package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/domain"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeQuoteStore struct {
	store   map[string]domain.QuoteRecord
	getErr  error
	putErr  error
	puts    int
	deletes int
}

func (f *fakeQuoteStore) Get(_ context.Context, symbol string) (domain.QuoteRecord, error) {
	if f.getErr != nil {
		return domain.QuoteRecord{}, f.getErr
	}
	rec, ok := f.store[symbol]
	if !ok {
		return domain.QuoteRecord{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeQuoteStore) Put(_ context.Context, rec domain.QuoteRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.store == nil {
		f.store = map[string]domain.QuoteRecord{}
	}
	f.puts++
	f.store[rec.Symbol] = rec
	return nil
}

func (f *fakeQuoteStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	var n int
	for sym, rec := range f.store {
		if rec.LastUpdated.Before(cutoff) {
			delete(f.store, sym)
			n++
		}
	}
	f.deletes += n
	return n, nil
}

type fakeProvider struct {
	source   domain.DataSource
	price    decimal.Decimal
	series   map[string]decimal.Decimal
	err      error
	calls    int
	lastDays int
}

func (f *fakeProvider) Name() domain.DataSource { return f.source }

func (f *fakeProvider) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

func (f *fakeProvider) HistoricalPrices(_ context.Context, _ string, days int) (map[string]decimal.Decimal, error) {
	f.calls++
	f.lastDays = days
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

type fakePortfolioRepo struct {
	portfolios  map[int64]domain.Portfolio
	investments map[int64][]domain.Investment
	listErr     error
	invErr      map[int64]error
}

func (f *fakePortfolioRepo) GetByID(_ context.Context, id int64) (domain.Portfolio, error) {
	p, ok := f.portfolios[id]
	if !ok {
		return domain.Portfolio{}, ErrNotFound
	}
	return p, nil
}

func (f *fakePortfolioRepo) ListIDs(context.Context) ([]int64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]int64, 0, len(f.portfolios))
	for id := range f.portfolios {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakePortfolioRepo) ListInvestments(_ context.Context, id int64) ([]domain.Investment, error) {
	if err := f.invErr[id]; err != nil {
		return nil, err
	}
	return f.investments[id], nil
}

type fakeSnapshotRepo struct {
	snaps     map[int64]map[string]domain.PerformanceSnapshot
	upsertErr error
}

func (f *fakeSnapshotRepo) ListByPortfolio(_ context.Context, id int64) ([]domain.PerformanceSnapshot, error) {
	out := make([]domain.PerformanceSnapshot, 0, len(f.snaps[id]))
	for _, s := range f.snaps[id] {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSnapshotRepo) Upsert(_ context.Context, snap domain.PerformanceSnapshot) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.snaps == nil {
		f.snaps = map[int64]map[string]domain.PerformanceSnapshot{}
	}
	if f.snaps[snap.PortfolioID] == nil {
		f.snaps[snap.PortfolioID] = map[string]domain.PerformanceSnapshot{}
	}
	f.snaps[snap.PortfolioID][domain.FormatDate(snap.Date)] = snap
	return nil
}
