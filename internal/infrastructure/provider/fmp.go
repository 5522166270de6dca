package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"portfoliowatch-service/internal/application"
	"portfoliowatch-service/internal/domain"
	"portfoliowatch-service/internal/infrastructure/httpx"
)

// FMPProvider is the primary quote source (Financial Modeling Prep).
type FMPProvider struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
}

var _ application.PriceProvider = (*FMPProvider)(nil)

func (p *FMPProvider) Name() domain.DataSource { return domain.SourcePrimary }

type fmpQuote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type fmpHistoricalResp struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date  string          `json:"date"`
		Close decimal.Decimal `json:"close"`
	} `json:"historical"`
}

func (p *FMPProvider) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u, err := p.endpoint("/quote/"+url.PathEscape(symbol), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fmp: create request: %w", err)
	}

	var body []fmpQuote
	if err := p.client().DoJSON(ctx, req, &body); err != nil {
		return decimal.Zero, fmt.Errorf("fmp: quote %s: %w", symbol, err)
	}
	if len(body) == 0 {
		return decimal.Zero, fmt.Errorf("fmp: no quote data for %s", symbol)
	}
	return body[0].Price, nil
}

func (p *FMPProvider) HistoricalPrices(ctx context.Context, symbol string, days int) (map[string]decimal.Decimal, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	u, err := p.endpoint("/historical-price-full/"+url.PathEscape(symbol), url.Values{
		"from": {domain.FormatDate(from)},
		"to":   {domain.FormatDate(to)},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fmp: create request: %w", err)
	}

	var body fmpHistoricalResp
	if err := p.client().DoJSON(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("fmp: history %s: %w", symbol, err)
	}
	if len(body.Historical) == 0 {
		return nil, fmt.Errorf("fmp: no historical data for %s", symbol)
	}

	cutoff := domain.FormatDate(from)
	out := make(map[string]decimal.Decimal, len(body.Historical))
	for _, day := range body.Historical {
		if day.Date < cutoff {
			continue
		}
		out[day.Date] = day.Close
	}
	return out, nil
}

func (p *FMPProvider) endpoint(path string, query url.Values) (string, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return "", errors.New("fmp: missing configuration")
	}
	u, err := url.Parse(p.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("fmp: invalid base url: %w", err)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("apikey", p.APIKey)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (p *FMPProvider) client() *httpx.Client {
	if p.Client == nil {
		p.Client = &httpx.Client{}
	}
	return p.Client
}
