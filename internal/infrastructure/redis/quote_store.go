package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
)

const (
	quoteKeyPrefix = "quote:"
	updatedIndex   = "quote:last_updated"
)

// Store is the durable Quote Cache Store on Redis. Each symbol maps to one
// JSON record; a sorted set scored by last-updated drives the retention
// sweep. Records carry no Redis TTL — staleness is the service's call, and a
// stale record must survive as the last-resort answer.
type Store struct {
	Client *redis.Client
}

var _ application.QuoteCacheStore = (*Store)(nil)

func New(client *redis.Client) *Store {
	return &Store{Client: client}
}

type quoteDoc struct {
	Symbol           string                     `json:"symbol"`
	CurrentPrice     decimal.Decimal            `json:"current_price"`
	HistoricalPrices map[string]decimal.Decimal `json:"historical_prices,omitempty"`
	LastUpdated      time.Time                  `json:"last_updated"`
	DataSource       domain.DataSource          `json:"data_source"`
}

func (s *Store) Get(ctx context.Context, symbol string) (domain.QuoteRecord, error) {
	raw, err := s.Client.Get(ctx, quoteKeyPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuoteRecord{}, application.ErrNotFound
	}
	if err != nil {
		return domain.QuoteRecord{}, fmt.Errorf("redis get %s: %w", symbol, err)
	}

	var doc quoteDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.QuoteRecord{}, fmt.Errorf("redis decode %s: %w", symbol, err)
	}
	return domain.QuoteRecord{
		Symbol:           doc.Symbol,
		CurrentPrice:     doc.CurrentPrice,
		HistoricalPrices: doc.HistoricalPrices,
		LastUpdated:      doc.LastUpdated,
		DataSource:       doc.DataSource,
	}, nil
}

func (s *Store) Put(ctx context.Context, rec domain.QuoteRecord) error {
	raw, err := json.Marshal(quoteDoc{
		Symbol:           rec.Symbol,
		CurrentPrice:     rec.CurrentPrice,
		HistoricalPrices: rec.HistoricalPrices,
		LastUpdated:      rec.LastUpdated,
		DataSource:       rec.DataSource,
	})
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", rec.Symbol, err)
	}

	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, quoteKeyPrefix+rec.Symbol, raw, 0)
	pipe.ZAdd(ctx, updatedIndex, redis.Z{
		Score:  float64(rec.LastUpdated.UnixMilli()),
		Member: rec.Symbol,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put %s: %w", rec.Symbol, err)
	}
	return nil
}

// DeleteOlderThan purges records whose last update precedes cutoff and
// returns how many were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	max := fmt.Sprintf("(%d", cutoff.UnixMilli())
	symbols, err := s.Client.ZRangeByScore(ctx, updatedIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis range stale: %w", err)
	}
	if len(symbols) == 0 {
		return 0, nil
	}

	keys := make([]string, len(symbols))
	members := make([]interface{}, len(symbols))
	for i, sym := range symbols {
		keys[i] = quoteKeyPrefix + sym
		members[i] = sym
	}
	pipe := s.Client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, updatedIndex, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis purge stale: %w", err)
	}
	return len(symbols), nil
}
