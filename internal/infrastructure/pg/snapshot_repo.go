package pg

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
)

type SnapshotRepo struct{ db *DB }

func NewSnapshotRepo(db *DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

var _ application.SnapshotRepo = (*SnapshotRepo)(nil)

func (r *SnapshotRepo) ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.PerformanceSnapshot, error) {
	const q = `
        SELECT portfolio_id, snapshot_date, total_value::text
        FROM performance_snapshots
        WHERE portfolio_id=$1
        ORDER BY snapshot_date`
	rows, err := r.db.Pool.Query(ctx, q, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for portfolio %d: %w", portfolioID, err)
	}
	defer rows.Close()

	var out []domain.PerformanceSnapshot
	for rows.Next() {
		var snap domain.PerformanceSnapshot
		var total string
		if err := rows.Scan(&snap.PortfolioID, &snap.Date, &total); err != nil {
			return nil, err
		}
		if snap.TotalValue, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse snapshot value: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Upsert records one snapshot per portfolio per day; a same-day re-record
// replaces the day's value instead of accumulating duplicates.
func (r *SnapshotRepo) Upsert(ctx context.Context, snap domain.PerformanceSnapshot) error {
	const up = `
        INSERT INTO performance_snapshots(portfolio_id, snapshot_date, total_value)
        VALUES ($1, $2, $3)
        ON CONFLICT (portfolio_id, snapshot_date) DO UPDATE
          SET total_value=EXCLUDED.total_value, recorded_at=NOW()`
	_, err := r.db.Pool.Exec(ctx, up, snap.PortfolioID, snap.Date, snap.TotalValue.String())
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
