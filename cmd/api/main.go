package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"portfoliowatch-service/internal/bootstrap"
	"portfoliowatch-service/internal/config"
	infraconfig "portfoliowatch-service/internal/infrastructure/config"
	httpserver "portfoliowatch-service/internal/infrastructure/http"
	"portfoliowatch-service/internal/infrastructure/logx"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx := context.Background()
	logger := logx.L()
	cfg := config.Load()
	addr := ":" + cfg.Port

	repos, cleanup, err := bootstrap.BuildRepos(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap repos", zap.Error(err))
	}
	defer cleanup()

	cache, closeRedis := bootstrap.BuildQuoteStore(cfg)
	defer closeRedis()

	services := bootstrap.BuildServices(cfg, repos, cache)
	srv := httpserver.NewServer(services.Market, services.Performance)
	mux := httpserver.NewRouter(srv, repos.Ping)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
