package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/config"
	"portfoliowatch-service/internal/domain"
	"portfoliowatch-service/internal/infrastructure/httpx"
	"portfoliowatch-service/internal/infrastructure/logx"
	"portfoliowatch-service/internal/infrastructure/pg"
	"portfoliowatch-service/internal/infrastructure/provider"
	redisstore "portfoliowatch-service/internal/infrastructure/redis"
	"portfoliowatch-service/internal/infrastructure/worker"
)

type Repos struct {
	Portfolios application.PortfolioRepo
	Snapshots  application.SnapshotRepo

	// Ping reports whether the backing database answers; used by readiness.
	Ping func(ctx context.Context) error
}

type Services struct {
	Market      *application.MarketDataService
	Performance *application.PerformanceService
}

// BuildRepos connects to Postgres and runs migrations.
func BuildRepos(ctx context.Context, cfg config.Config) (Repos, func(), error) {
	log := logx.L()

	if cfg.DatabaseURL == "" {
		return Repos{}, func() {}, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Repos{}, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return Repos{}, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return Repos{
		Portfolios: pg.NewPortfolioRepo(db),
		Snapshots:  pg.NewSnapshotRepo(db),
		Ping:       db.Ping,
	}, cleanup, nil
}

// BuildQuoteStore connects the Redis-backed quote cache.
func BuildQuoteStore(cfg config.Config) (application.QuoteCacheStore, func()) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cleanup := func() { _ = rdb.Close() }
	return redisstore.New(rdb), cleanup
}

// BuildProviders returns the provider chain in priority order: FMP first,
// Alpha Vantage as backup. PROVIDER=fake swaps in fixed-price fakes for
// local runs without API keys.
func BuildProviders(cfg config.Config) []application.PriceProvider {
	if cfg.Provider != "live" {
		return []application.PriceProvider{
			provider.NewFake(domain.SourcePrimary, 151.25),
			provider.NewFake(domain.SourceBackup, 151.20),
		}
	}
	client := &httpx.Client{HTTP: &http.Client{Timeout: cfg.RequestTimeout}}
	return []application.PriceProvider{
		&provider.FMPProvider{
			BaseURL: cfg.FMPBaseURL,
			APIKey:  cfg.FMPAPIKey,
			Client:  client,
		},
		&provider.AlphaVantageProvider{
			BaseURL:  cfg.AlphaBaseURL,
			APIKey:   cfg.AlphaAPIKey,
			Throttle: cfg.AlphaThrottle,
			Client:   client,
		},
	}
}

func BuildServices(cfg config.Config, repos Repos, cache application.QuoteCacheStore) Services {
	log := logx.L()
	market := application.NewMarketDataService(cache, BuildProviders(cfg),
		application.WithQuoteTTL(cfg.QuoteTTL),
		application.WithCallTimeout(cfg.RequestTimeout),
		application.WithLogger(log),
	)
	perf := application.NewPerformanceService(repos.Portfolios, repos.Snapshots, market, nil, log)
	return Services{Market: market, Performance: perf}
}

func BuildWorker(cfg config.Config, services Services, cache application.QuoteCacheStore) *worker.SnapshotWorker {
	return &worker.SnapshotWorker{
		Performance: services.Performance,
		Cache:       cache,
		Interval:    cfg.SnapshotInterval,
		Retention:   cfg.CacheRetention,
		Log:         logx.L(),
	}
}
