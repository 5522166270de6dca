package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"portfoliowatch-service/internal/application"
)

// SnapshotWorker periodically records a valuation snapshot for every
// portfolio and purges quote cache entries past the retention window.
type SnapshotWorker struct {
	Performance *application.PerformanceService
	Cache       application.QuoteCacheStore

	Interval  time.Duration
	Retention time.Duration
	Log       *zap.Logger
}

func (w *SnapshotWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.Interval <= 0 {
		w.Interval = 24 * time.Hour
	}
	if w.Retention <= 0 {
		w.Retention = 7 * 24 * time.Hour
	}

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	log.Info("snapshot_worker_started",
		zap.Duration("interval", w.Interval),
		zap.Duration("retention", w.Retention),
	)
	w.tick(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("snapshot_worker_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context, log *zap.Logger) {
	if err := w.Performance.RecordDailySnapshotsForAll(ctx); err != nil {
		log.Warn("snapshot_sweep_failed", zap.Error(err))
	}
	if w.Cache == nil {
		return
	}
	cutoff := time.Now().Add(-w.Retention)
	purged, err := w.Cache.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Warn("cache_purge_failed", zap.Error(err))
		return
	}
	if purged > 0 {
		log.Info("cache_purged", zap.Int("entries", purged), zap.Time("cutoff", cutoff))
	}
}
