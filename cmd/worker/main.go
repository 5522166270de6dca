package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"portfoliowatch-service/internal/bootstrap"
	"portfoliowatch-service/internal/config"
	"portfoliowatch-service/internal/infrastructure/logx"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, cleanup, err := bootstrap.BuildRepos(ctx, cfg)
	if err != nil {
		log.Fatal("bootstrap repos", zap.Error(err))
	}
	defer cleanup()

	cache, closeRedis := bootstrap.BuildQuoteStore(cfg)
	defer closeRedis()

	services := bootstrap.BuildServices(cfg, repos, cache)
	w := bootstrap.BuildWorker(cfg, services, cache)
	w.Start(ctx)
}
