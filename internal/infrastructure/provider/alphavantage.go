package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
	"portfoliowatch-service/internal/infrastructure/httpx"
)

// AlphaVantageProvider is the backup quote source. Alpha Vantage enforces a
// stricter rate limit than FMP, so the adapter spaces successive lookups by
// Throttle; callers only see the added latency.
type AlphaVantageProvider struct {
	BaseURL  string
	APIKey   string
	Throttle time.Duration
	Client   *httpx.Client

	mu       sync.Mutex
	lastCall time.Time
}

var _ application.PriceProvider = (*AlphaVantageProvider)(nil)

func (p *AlphaVantageProvider) Name() domain.DataSource { return domain.SourceBackup }

type avGlobalQuoteResp struct {
	GlobalQuote struct {
		Symbol string          `json:"01. symbol"`
		Price  decimal.Decimal `json:"05. price"`
	} `json:"Global Quote"`
}

type avDailyResp struct {
	TimeSeries map[string]struct {
		Close decimal.Decimal `json:"4. close"`
	} `json:"Time Series (Daily)"`
}

func (p *AlphaVantageProvider) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := p.throttle(ctx); err != nil {
		return decimal.Zero, err
	}
	u, err := p.endpoint(url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	})
	if err != nil {
		return decimal.Zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("alphavantage: create request: %w", err)
	}

	var body avGlobalQuoteResp
	if err := p.client().DoJSON(ctx, req, &body); err != nil {
		return decimal.Zero, fmt.Errorf("alphavantage: quote %s: %w", symbol, err)
	}
	if !body.GlobalQuote.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("alphavantage: no quote data for %s", symbol)
	}
	return body.GlobalQuote.Price, nil
}

func (p *AlphaVantageProvider) HistoricalPrices(ctx context.Context, symbol string, days int) (map[string]decimal.Decimal, error) {
	if err := p.throttle(ctx); err != nil {
		return nil, err
	}
	outputSize := "compact"
	if days > 100 {
		outputSize = "full"
	}
	u, err := p.endpoint(url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {outputSize},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: create request: %w", err)
	}

	var body avDailyResp
	if err := p.client().DoJSON(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("alphavantage: history %s: %w", symbol, err)
	}
	if len(body.TimeSeries) == 0 {
		return nil, fmt.Errorf("alphavantage: no historical data for %s", symbol)
	}

	cutoff := domain.FormatDate(time.Now().UTC().AddDate(0, 0, -days))
	out := make(map[string]decimal.Decimal, len(body.TimeSeries))
	for date, day := range body.TimeSeries {
		if date < cutoff {
			continue
		}
		out[date] = day.Close
	}
	return out, nil
}

// throttle blocks until the minimum spacing since the previous lookup has
// elapsed or the context is canceled.
func (p *AlphaVantageProvider) throttle(ctx context.Context) error {
	if p.Throttle <= 0 {
		return nil
	}
	p.mu.Lock()
	now := time.Now()
	next := p.lastCall.Add(p.Throttle)
	if next.Before(now) {
		next = now
	}
	p.lastCall = next
	p.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *AlphaVantageProvider) endpoint(query url.Values) (string, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return "", errors.New("alphavantage: missing configuration")
	}
	u, err := url.Parse(p.BaseURL + "/query")
	if err != nil {
		return "", fmt.Errorf("alphavantage: invalid base url: %w", err)
	}
	query.Set("apikey", p.APIKey)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (p *AlphaVantageProvider) client() *httpx.Client {
	if p.Client == nil {
		p.Client = &httpx.Client{}
	}
	return p.Client
}
