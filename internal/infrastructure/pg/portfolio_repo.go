package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
)

// PortfolioRepo is the read-only holdings source. Writes go through the
// entity CRUD surface, which is not part of this service.
type PortfolioRepo struct{ db *DB }

func NewPortfolioRepo(db *DB) *PortfolioRepo { return &PortfolioRepo{db: db} }

var _ application.PortfolioRepo = (*PortfolioRepo)(nil)

func (r *PortfolioRepo) GetByID(ctx context.Context, id int64) (domain.Portfolio, error) {
	const q = `SELECT id, name, risk_level, created_at FROM portfolios WHERE id=$1`
	var out domain.Portfolio
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&out.ID, &out.Name, &out.RiskLevel, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Portfolio{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("get portfolio %d: %w", id, err)
	}
	return out, nil
}

func (r *PortfolioRepo) ListIDs(ctx context.Context) ([]int64, error) {
	const q = `SELECT id FROM portfolios ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list portfolio ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PortfolioRepo) ListInvestments(ctx context.Context, portfolioID int64) ([]domain.Investment, error) {
	const q = `
        SELECT id, portfolio_id, name, symbol, type,
               shares::text, purchase_price::text, current_price::text, purchase_date
        FROM investments
        WHERE portfolio_id=$1
        ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, q, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list investments for portfolio %d: %w", portfolioID, err)
	}
	defer rows.Close()

	var out []domain.Investment
	for rows.Next() {
		var inv domain.Investment
		var shares, purchase, current string
		if err := rows.Scan(&inv.ID, &inv.PortfolioID, &inv.Name, &inv.Symbol, &inv.Type,
			&shares, &purchase, &current, &inv.PurchaseDate); err != nil {
			return nil, err
		}
		if inv.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, fmt.Errorf("parse shares for investment %d: %w", inv.ID, err)
		}
		if inv.PurchasePrice, err = decimal.NewFromString(purchase); err != nil {
			return nil, fmt.Errorf("parse purchase price for investment %d: %w", inv.ID, err)
		}
		if inv.CurrentPrice, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("parse current price for investment %d: %w", inv.ID, err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
