package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfoliowatch-service/internal/domain"
)

const (
	defaultQuoteTTL    = 15 * time.Minute
	defaultCallTimeout = 4 * time.Second
)

// MarketDataService answers price lookups through the quote cache, falling
// back through the provider chain in priority order and degrading to stale
// cached data when every provider fails. Lookups never return an error to the
// caller: "no data" is the zero price / empty series sentinel.
//
// Two concurrent misses for the same symbol may both hit a provider and both
// write back; the cache converges within the TTL window, so the duplicate
// work is accepted rather than single-flighted.
type MarketDataService struct {
	cache       QuoteCacheStore
	providers   []PriceProvider
	ttl         time.Duration
	callTimeout time.Duration
	clock       Clock
	log         *zap.Logger
}

type MarketDataOption func(*MarketDataService)

func WithQuoteTTL(ttl time.Duration) MarketDataOption {
	return func(s *MarketDataService) { s.ttl = ttl }
}

func WithCallTimeout(d time.Duration) MarketDataOption {
	return func(s *MarketDataService) { s.callTimeout = d }
}

func WithClock(c Clock) MarketDataOption {
	return func(s *MarketDataService) { s.clock = c }
}

func WithLogger(l *zap.Logger) MarketDataOption {
	return func(s *MarketDataService) { s.log = l }
}

// NewMarketDataService builds the cached service. Providers are tried in the
// order given; index 0 is the primary.
func NewMarketDataService(cache QuoteCacheStore, providers []PriceProvider, opts ...MarketDataOption) *MarketDataService {
	s := &MarketDataService{
		cache:       cache,
		providers:   providers,
		ttl:         defaultQuoteTTL,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// CurrentPrice returns the freshest known price for symbol, or the zero
// sentinel when no provider answers and nothing is cached.
func (s *MarketDataService) CurrentPrice(ctx context.Context, symbol string) decimal.Decimal {
	symbol = domain.NormalizeSymbol(symbol)

	cached, haveCached := s.lookup(ctx, symbol)
	if haveCached && !cached.IsStale(s.ttl, s.clock.Now()) {
		s.log.Debug("quote.cache_hit", zap.String("symbol", symbol))
		return cached.CurrentPrice
	}

	for _, p := range s.providers {
		price, err := s.fetchCurrent(ctx, p, symbol)
		if err != nil || !price.IsPositive() {
			s.log.Warn("quote.provider_miss",
				zap.String("symbol", symbol),
				zap.String("source", string(p.Name())),
				zap.Error(err),
			)
			continue
		}
		s.writeBack(ctx, symbol, func(rec domain.QuoteRecord) domain.QuoteRecord {
			return rec.MergeCurrentPrice(price, p.Name(), s.clock.Now())
		})
		return price
	}

	if haveCached {
		s.log.Warn("quote.stale_fallback", zap.String("symbol", symbol))
		return cached.CurrentPrice
	}
	return decimal.Zero
}

// CurrentPrices runs the full lookup independently per symbol; no upstream
// batching is attempted.
func (s *MarketDataService) CurrentPrices(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, sym := range symbols {
		prices[domain.NormalizeSymbol(sym)] = s.CurrentPrice(ctx, sym)
	}
	return prices
}

// HistoricalPrices returns up to days of daily closes keyed by ISO date, or
// an empty map when no provider answers and nothing usable is cached. days is
// clamped to [1, 365] before reaching any provider.
func (s *MarketDataService) HistoricalPrices(ctx context.Context, symbol string, days int) map[string]decimal.Decimal {
	symbol = domain.NormalizeSymbol(symbol)
	days = domain.ClampHistoryDays(days)

	cached, haveCached := s.lookup(ctx, symbol)
	if haveCached && !cached.IsStale(s.ttl, s.clock.Now()) && len(cached.HistoricalPrices) > 0 {
		s.log.Debug("history.cache_hit", zap.String("symbol", symbol))
		return cached.HistoricalPrices
	}

	for _, p := range s.providers {
		series, err := s.fetchHistory(ctx, p, symbol, days)
		if err != nil || len(series) == 0 {
			s.log.Warn("history.provider_miss",
				zap.String("symbol", symbol),
				zap.String("source", string(p.Name())),
				zap.Error(err),
			)
			continue
		}
		s.writeBack(ctx, symbol, func(rec domain.QuoteRecord) domain.QuoteRecord {
			return rec.MergeHistory(series, p.Name(), s.clock.Now())
		})
		return series
	}

	if haveCached && len(cached.HistoricalPrices) > 0 {
		s.log.Warn("history.stale_fallback", zap.String("symbol", symbol))
		return cached.HistoricalPrices
	}
	return map[string]decimal.Decimal{}
}

func (s *MarketDataService) lookup(ctx context.Context, symbol string) (domain.QuoteRecord, bool) {
	rec, err := s.cache.Get(ctx, symbol)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("quote.cache_read_failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return domain.QuoteRecord{}, false
	}
	return rec, true
}

func (s *MarketDataService) fetchCurrent(ctx context.Context, p PriceProvider, symbol string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return p.CurrentPrice(ctx, symbol)
}

func (s *MarketDataService) fetchHistory(ctx context.Context, p PriceProvider, symbol string, days int) (map[string]decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return p.HistoricalPrices(ctx, symbol, days)
}

// writeBack merges one fetched field into the symbol's record. The other
// field survives: refreshing the current price keeps the historical series
// and vice versa. A failed write never fails the lookup.
func (s *MarketDataService) writeBack(ctx context.Context, symbol string, merge func(domain.QuoteRecord) domain.QuoteRecord) {
	rec, err := s.cache.Get(ctx, symbol)
	if err != nil {
		rec = domain.QuoteRecord{Symbol: symbol}
	}
	if err := s.cache.Put(ctx, merge(rec)); err != nil {
		s.log.Error("quote.cache_write_failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	s.log.Info("quote.cache_updated", zap.String("symbol", symbol))
}
