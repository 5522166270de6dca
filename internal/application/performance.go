package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfoliowatch-service/internal/domain"
)

var ErrNoPortfolioValue = errors.New("portfolio has no computable value")

var hundred = decimal.NewFromInt(100)

// PerformanceService folds current holdings and the recorded snapshot series
// into portfolio summaries, per-holding metrics and daily snapshots.
type PerformanceService struct {
	portfolios PortfolioRepo
	snapshots  SnapshotRepo
	market     *MarketDataService
	clock      Clock
	log        *zap.Logger
}

func NewPerformanceService(portfolios PortfolioRepo, snapshots SnapshotRepo, market *MarketDataService, clock Clock, log *zap.Logger) *PerformanceService {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PerformanceService{
		portfolios: portfolios,
		snapshots:  snapshots,
		market:     market,
		clock:      clock,
		log:        log,
	}
}

// PortfolioSummary computes the derived view for one portfolio. Daily change
// comes from the two most recent snapshots, not from the total computed in
// this call: today's change only reflects the latest total once today's
// snapshot has been recorded.
func (s *PerformanceService) PortfolioSummary(ctx context.Context, portfolioID int64) (domain.PortfolioSummary, error) {
	p, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}
	investments, err := s.portfolios.ListInvestments(ctx, portfolioID)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}
	history, err := s.snapshots.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}

	investments = s.refreshPrices(ctx, investments)
	totalValue := totalValue(investments)

	summary := domain.PortfolioSummary{
		PortfolioID:     p.ID,
		Name:            p.Name,
		RiskLevel:       p.RiskLevel,
		TotalValue:      totalValue.Round(2),
		PerformanceData: performanceSeries(history),
		AssetAllocation: assetAllocation(investments, totalValue),
	}
	summary.DailyChange, summary.DailyChangePercent = dailyChange(history)
	summary.YTDReturnValue, summary.YTDReturn = ytdReturn(history, totalValue, s.clock.Now())
	return summary, nil
}

// InvestmentsWithPerformance lists a portfolio's holdings decorated with
// value, total return and a cache-sourced daily change.
func (s *PerformanceService) InvestmentsWithPerformance(ctx context.Context, portfolioID int64) ([]domain.InvestmentPerformance, error) {
	if _, err := s.portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	investments, err := s.portfolios.ListInvestments(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	investments = s.refreshPrices(ctx, investments)

	out := make([]domain.InvestmentPerformance, 0, len(investments))
	for _, inv := range investments {
		out = append(out, s.holdingPerformance(ctx, inv))
	}
	return out, nil
}

// RecordDailySnapshot computes the portfolio's current total value and
// records it for today. Idempotent per day: a re-run overwrites today's value.
func (s *PerformanceService) RecordDailySnapshot(ctx context.Context, portfolioID int64) error {
	if _, err := s.portfolios.GetByID(ctx, portfolioID); err != nil {
		return err
	}
	investments, err := s.portfolios.ListInvestments(ctx, portfolioID)
	if err != nil {
		return err
	}
	total := totalValue(s.refreshPrices(ctx, investments))
	if !total.IsPositive() {
		return fmt.Errorf("portfolio %d: %w", portfolioID, ErrNoPortfolioValue)
	}

	now := s.clock.Now()
	snap := domain.PerformanceSnapshot{
		PortfolioID: portfolioID,
		Date:        now.Truncate(24 * time.Hour),
		TotalValue:  total.Round(2),
	}
	if err := s.snapshots.Upsert(ctx, snap); err != nil {
		return fmt.Errorf("record snapshot for portfolio %d: %w", portfolioID, err)
	}
	s.log.Info("snapshot.recorded",
		zap.Int64("portfolio_id", portfolioID),
		zap.String("date", domain.FormatDate(snap.Date)),
		zap.String("total_value", snap.TotalValue.String()),
	)
	return nil
}

// RecordDailySnapshotsForAll sweeps every portfolio. One portfolio's failure
// is logged and never aborts the rest of the sweep.
func (s *PerformanceService) RecordDailySnapshotsForAll(ctx context.Context) error {
	ids, err := s.portfolios.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list portfolios: %w", err)
	}
	var recorded int
	for _, id := range ids {
		if err := s.RecordDailySnapshot(ctx, id); err != nil {
			s.log.Warn("snapshot.record_failed", zap.Int64("portfolio_id", id), zap.Error(err))
			continue
		}
		recorded++
	}
	s.log.Info("snapshot.sweep_done", zap.Int("portfolios", len(ids)), zap.Int("recorded", recorded))
	return nil
}

// refreshPrices swaps each holding's stored price for a fresher quote when
// the cache chain can produce one; the sentinel zero never overwrites a
// stored price.
func (s *PerformanceService) refreshPrices(ctx context.Context, investments []domain.Investment) []domain.Investment {
	if s.market == nil || len(investments) == 0 {
		return investments
	}
	symbols := make([]string, 0, len(investments))
	for _, inv := range investments {
		symbols = append(symbols, inv.Symbol)
	}
	prices := s.market.CurrentPrices(ctx, symbols)
	for i, inv := range investments {
		if p, ok := prices[domain.NormalizeSymbol(inv.Symbol)]; ok && p.IsPositive() {
			investments[i].CurrentPrice = p
		}
	}
	return investments
}

func (s *PerformanceService) holdingPerformance(ctx context.Context, inv domain.Investment) domain.InvestmentPerformance {
	perf := domain.InvestmentPerformance{Investment: inv}
	perf.Value = inv.Value().Round(2)

	cost := inv.Shares.Mul(inv.PurchasePrice)
	perf.TotalReturn = perf.Value.Sub(cost).Round(2)
	if cost.IsPositive() {
		perf.TotalReturnPercent = perf.TotalReturn.DivRound(cost, 4).Mul(hundred).Round(2)
	}

	if s.market == nil {
		return perf
	}
	latest, previous, ok := lastTwoCloses(s.market.HistoricalPrices(ctx, inv.Symbol, 2))
	if !ok || !previous.IsPositive() {
		return perf
	}
	perf.DailyChangeKnown = true
	perf.DailyChange = latest.Sub(previous).Mul(inv.Shares).Round(2)
	perf.DailyChangePercent = latest.Sub(previous).DivRound(previous, 4).Mul(hundred).Round(2)
	return perf
}

func totalValue(investments []domain.Investment) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range investments {
		total = total.Add(inv.Value())
	}
	return total
}

// dailyChange takes the two most recent distinct-date snapshots.
func dailyChange(history []domain.PerformanceSnapshot) (change, percent decimal.Decimal) {
	if len(history) < 2 {
		return decimal.Zero, decimal.Zero
	}
	sorted := sortedByDate(history)
	latest := sorted[len(sorted)-1]
	previous := sorted[len(sorted)-2]
	change = latest.TotalValue.Sub(previous.TotalValue)
	if previous.TotalValue.IsPositive() {
		percent = change.DivRound(previous.TotalValue, 4).Mul(hundred).Round(2)
	}
	return change, percent
}

// ytdReturn compares the current total against the earliest snapshot of the
// current year. No snapshot this year means zero return.
func ytdReturn(history []domain.PerformanceSnapshot, total decimal.Decimal, now time.Time) (value, percent decimal.Decimal) {
	var first *domain.PerformanceSnapshot
	for i := range history {
		if history[i].Date.Year() != now.Year() {
			continue
		}
		if first == nil || history[i].Date.Before(first.Date) {
			first = &history[i]
		}
	}
	if first == nil {
		return decimal.Zero, decimal.Zero
	}
	value = total.Sub(first.TotalValue)
	if first.TotalValue.IsPositive() {
		percent = value.DivRound(first.TotalValue, 4).Mul(hundred).Round(2)
	}
	return value.Round(2), percent
}

// assetAllocation groups holdings by type. Percentages are computed at 4
// decimal places and rounded to 2 at the end so the groups sum to 100 within
// rounding tolerance.
func assetAllocation(investments []domain.Investment, total decimal.Decimal) []domain.AssetAllocation {
	byType := map[string]decimal.Decimal{}
	for _, inv := range investments {
		byType[inv.Type] = byType[inv.Type].Add(inv.Value())
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	out := make([]domain.AssetAllocation, 0, len(types))
	for _, t := range types {
		alloc := domain.AssetAllocation{Type: t, Value: byType[t].Round(2)}
		if total.IsPositive() {
			alloc.Percentage = byType[t].DivRound(total, 4).Mul(hundred).Round(2)
		}
		out = append(out, alloc)
	}
	return out
}

func performanceSeries(history []domain.PerformanceSnapshot) []domain.PerformancePoint {
	sorted := sortedByDate(history)
	out := make([]domain.PerformancePoint, 0, len(sorted))
	for _, snap := range sorted {
		out = append(out, domain.PerformancePoint{
			Date:  domain.FormatDate(snap.Date),
			Value: snap.TotalValue,
		})
	}
	return out
}

func sortedByDate(history []domain.PerformanceSnapshot) []domain.PerformanceSnapshot {
	sorted := make([]domain.PerformanceSnapshot, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}

// lastTwoCloses picks the two most recent dates out of a historical series.
func lastTwoCloses(series map[string]decimal.Decimal) (latest, previous decimal.Decimal, ok bool) {
	if len(series) < 2 {
		return decimal.Zero, decimal.Zero, false
	}
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	latest = series[dates[len(dates)-1]]
	previous = series[dates[len(dates)-2]]
	return latest, previous, true
}
