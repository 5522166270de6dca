package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
)

type Server struct {
	market *application.MarketDataService
	perf   *application.PerformanceService
}

func NewServer(market *application.MarketDataService, perf *application.PerformanceService) *Server {
	return &Server{market: market, perf: perf}
}

type quoteResponse struct {
	Symbol string           `json:"symbol"`
	Price  *decimal.Decimal `json:"price"`
}

type batchQuotesResponse struct {
	Prices map[string]decimal.Decimal `json:"prices"`
}

type historyResponse struct {
	Symbol string                     `json:"symbol"`
	Days   int                        `json:"days"`
	Prices map[string]decimal.Decimal `json:"prices"`
}

type summaryResponse struct {
	ID                 int64                `json:"id"`
	Name               string               `json:"name"`
	RiskLevel          string               `json:"riskLevel"`
	TotalValue         decimal.Decimal      `json:"totalValue"`
	DailyChange        decimal.Decimal      `json:"dailyChange"`
	DailyChangePercent decimal.Decimal      `json:"dailyChangePercent"`
	YTDReturn          decimal.Decimal      `json:"ytdReturn"`
	YTDReturnValue     decimal.Decimal      `json:"ytdReturnValue"`
	PerformanceData    []performancePoint   `json:"performanceData"`
	AssetAllocation    []allocationResponse `json:"assetAllocation"`
}

type performancePoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

type allocationResponse struct {
	Type       string          `json:"type"`
	Percentage decimal.Decimal `json:"percentage"`
	Value      decimal.Decimal `json:"value"`
}

type investmentResponse struct {
	ID                 int64            `json:"id"`
	Symbol             string           `json:"symbol"`
	Name               string           `json:"name"`
	Type               string           `json:"type"`
	Shares             decimal.Decimal  `json:"shares"`
	PurchasePrice      decimal.Decimal  `json:"purchasePrice"`
	CurrentPrice       decimal.Decimal  `json:"currentPrice"`
	Value              decimal.Decimal  `json:"value"`
	DailyChange        *decimal.Decimal `json:"dailyChange"`
	DailyChangePercent *decimal.Decimal `json:"dailyChangePercent"`
	TotalReturn        decimal.Decimal  `json:"totalReturn"`
	TotalReturnPercent decimal.Decimal  `json:"totalReturnPercent"`
}

func (s *Server) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if !domain.ValidateSymbol(symbol) {
		badRequest(w, "invalid symbol")
		return
	}
	price := s.market.CurrentPrice(r.Context(), symbol)
	resp := quoteResponse{Symbol: symbol}
	if price.IsPositive() {
		resp.Price = &price
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		badRequest(w, "symbols is required")
		return
	}
	symbols := strings.Split(raw, ",")
	for i, sym := range symbols {
		symbols[i] = domain.NormalizeSymbol(sym)
		if !domain.ValidateSymbol(symbols[i]) {
			badRequest(w, "invalid symbol: "+sym)
			return
		}
	}
	writeJSON(w, http.StatusOK, batchQuotesResponse{Prices: s.market.CurrentPrices(r.Context(), symbols)})
}

func (s *Server) GetQuoteHistory(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if !domain.ValidateSymbol(symbol) {
		badRequest(w, "invalid symbol")
		return
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "days must be an integer")
			return
		}
		days = parsed
	}
	days = domain.ClampHistoryDays(days)
	writeJSON(w, http.StatusOK, historyResponse{
		Symbol: symbol,
		Days:   days,
		Prices: s.market.HistoricalPrices(r.Context(), symbol, days),
	})
}

func (s *Server) GetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}
	sum, err := s.perf.PortfolioSummary(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := summaryResponse{
		ID:                 sum.PortfolioID,
		Name:               sum.Name,
		RiskLevel:          sum.RiskLevel,
		TotalValue:         sum.TotalValue,
		DailyChange:        sum.DailyChange,
		DailyChangePercent: sum.DailyChangePercent,
		YTDReturn:          sum.YTDReturn,
		YTDReturnValue:     sum.YTDReturnValue,
		PerformanceData:    make([]performancePoint, 0, len(sum.PerformanceData)),
		AssetAllocation:    make([]allocationResponse, 0, len(sum.AssetAllocation)),
	}
	for _, p := range sum.PerformanceData {
		resp.PerformanceData = append(resp.PerformanceData, performancePoint{Date: p.Date, Value: p.Value})
	}
	for _, a := range sum.AssetAllocation {
		resp.AssetAllocation = append(resp.AssetAllocation, allocationResponse{Type: a.Type, Percentage: a.Percentage, Value: a.Value})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetPortfolioInvestments(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}
	investments, err := s.perf.InvestmentsWithPerformance(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]investmentResponse, 0, len(investments))
	for _, inv := range investments {
		item := investmentResponse{
			ID:                 inv.ID,
			Symbol:             inv.Symbol,
			Name:               inv.Name,
			Type:               inv.Type,
			Shares:             inv.Shares,
			PurchasePrice:      inv.PurchasePrice,
			CurrentPrice:       inv.CurrentPrice,
			Value:              inv.Value,
			TotalReturn:        inv.TotalReturn,
			TotalReturnPercent: inv.TotalReturnPercent,
		}
		if inv.DailyChangeKnown {
			change, pct := inv.DailyChange, inv.DailyChangePercent
			item.DailyChange, item.DailyChangePercent = &change, &pct
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) RecordSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := portfolioID(w, r)
	if !ok {
		return
	}
	if err := s.perf.RecordDailySnapshot(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (s *Server) RunSnapshotSweep(w http.ResponseWriter, r *http.Request) {
	if err := s.perf.RecordDailySnapshotsForAll(r.Context()); err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sweep completed"})
}

func portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid portfolio id")
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		notFound(w)
	case errors.Is(err, application.ErrNoPortfolioValue):
		writeError(w, http.StatusUnprocessableEntity, "portfolio has no computable value")
	default:
		internalError(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
