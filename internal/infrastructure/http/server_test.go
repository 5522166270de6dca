package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
	httpserver "portfoliowatch-service/internal/infrastructure/http"
)

var testNow = time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memQuoteStore struct {
	records map[string]domain.QuoteRecord
}

func (s *memQuoteStore) Get(_ context.Context, symbol string) (domain.QuoteRecord, error) {
	rec, ok := s.records[symbol]
	if !ok {
		return domain.QuoteRecord{}, application.ErrNotFound
	}
	return rec, nil
}

func (s *memQuoteStore) Put(_ context.Context, rec domain.QuoteRecord) error {
	if s.records == nil {
		s.records = map[string]domain.QuoteRecord{}
	}
	s.records[rec.Symbol] = rec
	return nil
}

func (s *memQuoteStore) DeleteOlderThan(_ context.Context, _ time.Time) (int, error) { return 0, nil }

type stubProvider struct {
	price  decimal.Decimal
	series map[string]decimal.Decimal
	err    error
}

func (p *stubProvider) Name() domain.DataSource { return domain.SourcePrimary }

func (p *stubProvider) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return p.price, p.err
}

func (p *stubProvider) HistoricalPrices(context.Context, string, int) (map[string]decimal.Decimal, error) {
	return p.series, p.err
}

type memPortfolioRepo struct {
	portfolios  map[int64]domain.Portfolio
	investments map[int64][]domain.Investment
}

func (r *memPortfolioRepo) GetByID(_ context.Context, id int64) (domain.Portfolio, error) {
	p, ok := r.portfolios[id]
	if !ok {
		return domain.Portfolio{}, application.ErrNotFound
	}
	return p, nil
}

func (r *memPortfolioRepo) ListIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(r.portfolios))
	for id := range r.portfolios {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memPortfolioRepo) ListInvestments(_ context.Context, id int64) ([]domain.Investment, error) {
	return r.investments[id], nil
}

type memSnapshotRepo struct {
	snaps map[int64]map[string]domain.PerformanceSnapshot
}

func (r *memSnapshotRepo) ListByPortfolio(_ context.Context, id int64) ([]domain.PerformanceSnapshot, error) {
	var out []domain.PerformanceSnapshot
	for _, s := range r.snaps[id] {
		out = append(out, s)
	}
	return out, nil
}

func (r *memSnapshotRepo) Upsert(_ context.Context, snap domain.PerformanceSnapshot) error {
	if r.snaps == nil {
		r.snaps = map[int64]map[string]domain.PerformanceSnapshot{}
	}
	if r.snaps[snap.PortfolioID] == nil {
		r.snaps[snap.PortfolioID] = map[string]domain.PerformanceSnapshot{}
	}
	r.snaps[snap.PortfolioID][domain.FormatDate(snap.Date)] = snap
	return nil
}

func newTestRouter(t *testing.T, provider *stubProvider, repo *memPortfolioRepo, snaps *memSnapshotRepo) http.Handler {
	t.Helper()
	market := application.NewMarketDataService(
		&memQuoteStore{},
		[]application.PriceProvider{provider},
		application.WithClock(fixedClock{now: testNow}),
	)
	perf := application.NewPerformanceService(repo, snaps, market, fixedClock{now: testNow}, nil)
	return httpserver.NewRouter(httpserver.NewServer(market, perf), nil)
}

func seededRepo() *memPortfolioRepo {
	return &memPortfolioRepo{
		portfolios: map[int64]domain.Portfolio{
			1: {ID: 1, Name: "Growth", RiskLevel: "aggressive"},
		},
		investments: map[int64][]domain.Investment{
			1: {
				{ID: 10, PortfolioID: 1, Name: "Apple Inc.", Symbol: "AAPL", Type: "stock",
					Shares: decimal.NewFromInt(10), PurchasePrice: decimal.NewFromInt(100), CurrentPrice: decimal.NewFromInt(150)},
			},
		},
	}
}

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetQuote(t *testing.T) {
	h := newTestRouter(t, &stubProvider{price: decimal.RequireFromString("151.25")}, seededRepo(), &memSnapshotRepo{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/market/quotes/aapl")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Symbol string  `json:"symbol"`
		Price  *string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "AAPL", body.Symbol)
	require.NotNil(t, body.Price)
	require.Equal(t, "151.25", *body.Price)
}

func TestGetQuote_UnknownPriceIsNull(t *testing.T) {
	h := newTestRouter(t, &stubProvider{err: errors.New("down")}, seededRepo(), &memSnapshotRepo{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/market/quotes/AAPL")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Price *string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body.Price)
}

func TestGetQuote_InvalidSymbol(t *testing.T) {
	h := newTestRouter(t, &stubProvider{}, seededRepo(), &memSnapshotRepo{})
	rec := doRequest(t, h, http.MethodGet, "/api/v1/market/quotes/not%20a%20symbol")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQuotes_RequiresSymbols(t *testing.T) {
	h := newTestRouter(t, &stubProvider{}, seededRepo(), &memSnapshotRepo{})
	rec := doRequest(t, h, http.MethodGet, "/api/v1/market/quotes")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQuotes_Batch(t *testing.T) {
	h := newTestRouter(t, &stubProvider{price: decimal.NewFromInt(42)}, seededRepo(), &memSnapshotRepo{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/market/quotes?symbols=aapl,msft")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Prices map[string]string `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Prices, 2)
	require.Equal(t, "42", body.Prices["AAPL"])
	require.Equal(t, "42", body.Prices["MSFT"])
}

func TestGetQuoteHistory_ClampsDays(t *testing.T) {
	series := map[string]decimal.Decimal{
		"2024-06-01": decimal.NewFromInt(148),
		"2024-06-02": decimal.NewFromInt(151),
	}
	h := newTestRouter(t, &stubProvider{series: series}, seededRepo(), &memSnapshotRepo{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/market/quotes/AAPL/history?days=9999")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Days   int               `json:"days"`
		Prices map[string]string `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, domain.MaxHistoryDays, body.Days)
	require.Len(t, body.Prices, 2)
}

func TestGetQuoteHistory_BadDays(t *testing.T) {
	h := newTestRouter(t, &stubProvider{}, seededRepo(), &memSnapshotRepo{})
	rec := doRequest(t, h, http.MethodGet, "/api/v1/market/quotes/AAPL/history?days=soon")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPortfolioSummary(t *testing.T) {
	snaps := &memSnapshotRepo{}
	require.NoError(t, snaps.Upsert(context.Background(), domain.PerformanceSnapshot{
		PortfolioID: 1, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), TotalValue: decimal.NewFromInt(1400),
	}))
	h := newTestRouter(t, &stubProvider{price: decimal.NewFromInt(150)}, seededRepo(), snaps)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/portfolios/1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		TotalValue string `json:"totalValue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(1), body.ID)
	require.Equal(t, "Growth", body.Name)
	require.Equal(t, "1500", body.TotalValue)
}

func TestGetPortfolioSummary_NotFound(t *testing.T) {
	h := newTestRouter(t, &stubProvider{}, seededRepo(), &memSnapshotRepo{})
	rec := doRequest(t, h, http.MethodGet, "/api/v1/portfolios/99/summary")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPortfolioSummary_BadID(t *testing.T) {
	h := newTestRouter(t, &stubProvider{}, seededRepo(), &memSnapshotRepo{})
	rec := doRequest(t, h, http.MethodGet, "/api/v1/portfolios/abc/summary")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPortfolioInvestments(t *testing.T) {
	series := map[string]decimal.Decimal{
		"2024-06-01": decimal.NewFromInt(148),
		"2024-06-02": decimal.NewFromInt(151),
	}
	h := newTestRouter(t, &stubProvider{price: decimal.NewFromInt(151), series: series}, seededRepo(), &memSnapshotRepo{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/portfolios/1/investments")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []struct {
		Symbol      string  `json:"symbol"`
		Value       string  `json:"value"`
		DailyChange *string `json:"dailyChange"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "AAPL", body[0].Symbol)
	require.Equal(t, "1510", body[0].Value)
	require.NotNil(t, body[0].DailyChange)
	require.Equal(t, "30", *body[0].DailyChange)
}

func TestRecordSnapshot(t *testing.T) {
	snaps := &memSnapshotRepo{}
	h := newTestRouter(t, &stubProvider{price: decimal.NewFromInt(150)}, seededRepo(), snaps)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/portfolios/1/snapshots")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, snaps.snaps[1], 1)
}

func TestRecordSnapshot_EmptyPortfolio(t *testing.T) {
	repo := seededRepo()
	repo.investments[1] = nil
	h := newTestRouter(t, &stubProvider{}, repo, &memSnapshotRepo{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/portfolios/1/snapshots")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRunSnapshotSweep(t *testing.T) {
	snaps := &memSnapshotRepo{}
	h := newTestRouter(t, &stubProvider{price: decimal.NewFromInt(150)}, seededRepo(), snaps)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/admin/snapshots/run")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, snaps.snaps[1], 1)
}

func TestHealthAndReadiness(t *testing.T) {
	h := newTestRouter(t, &stubProvider{}, seededRepo(), &memSnapshotRepo{})

	require.Equal(t, http.StatusOK, doRequest(t, h, http.MethodGet, "/healthz").Code)
	require.Equal(t, http.StatusOK, doRequest(t, h, http.MethodGet, "/readyz").Code)
}

func TestReadiness_FailingPing(t *testing.T) {
	market := application.NewMarketDataService(&memQuoteStore{}, nil)
	perf := application.NewPerformanceService(&memPortfolioRepo{}, &memSnapshotRepo{}, market, nil, nil)
	h := httpserver.NewRouter(httpserver.NewServer(market, perf), func(context.Context) error {
		return errors.New("db down")
	})

	require.Equal(t, http.StatusServiceUnavailable, doRequest(t, h, http.MethodGet, "/readyz").Code)
}
