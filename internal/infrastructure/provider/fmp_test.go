package provider_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfoliowatch-service/internal/domain"
	"portfoliowatch-service/internal/infrastructure/httpx"
	"portfoliowatch-service/internal/infrastructure/provider"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func jsonClient(resBody string, code int) *httpx.Client {
	return &httpx.Client{HTTP: &http.Client{
		Timeout: 2 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) *http.Response {
			return &http.Response{
				StatusCode: code,
				Body:       io.NopCloser(strings.NewReader(resBody)),
				Header:     make(http.Header),
			}
		}),
	}}
}

func newFMP(body string, code int) *provider.FMPProvider {
	return &provider.FMPProvider{
		BaseURL: "https://financialmodelingprep.com/api/v3",
		APIKey:  "test",
		Client:  jsonClient(body, code),
	}
}

func TestFMP_CurrentPrice(t *testing.T) {
	p := newFMP(`[{"symbol": "AAPL", "price": 151.25}]`, 200)
	got, err := p.CurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "151.25", got.String())
}

func TestFMP_CurrentPrice_EmptyResponse(t *testing.T) {
	p := newFMP(`[]`, 200)
	_, err := p.CurrentPrice(context.Background(), "NOPE")
	require.Error(t, err)
}

func TestFMP_CurrentPrice_HTTPError(t *testing.T) {
	p := newFMP(`{"error": "Invalid API key"}`, 401)
	_, err := p.CurrentPrice(context.Background(), "AAPL")
	require.Error(t, err)
}

func TestFMP_CurrentPrice_MissingConfig(t *testing.T) {
	p := &provider.FMPProvider{}
	_, err := p.CurrentPrice(context.Background(), "AAPL")
	require.Error(t, err)
}

func TestFMP_HistoricalPrices_FiltersWindow(t *testing.T) {
	now := time.Now().UTC()
	recent := domain.FormatDate(now.AddDate(0, 0, -2))
	old := domain.FormatDate(now.AddDate(0, 0, -30))
	body := fmt.Sprintf(`{
	  "symbol": "AAPL",
	  "historical": [
	    {"date": "%s", "close": 151.1},
	    {"date": "%s", "close": 120.5}
	  ]
	}`, recent, old)

	p := newFMP(body, 200)
	got, err := p.HistoricalPrices(context.Background(), "AAPL", 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "151.1", got[recent].String())
}

func TestFMP_HistoricalPrices_Empty(t *testing.T) {
	p := newFMP(`{"symbol": "AAPL", "historical": []}`, 200)
	_, err := p.HistoricalPrices(context.Background(), "AAPL", 7)
	require.Error(t, err)
}

func TestFMP_Name(t *testing.T) {
	require.Equal(t, domain.SourcePrimary, (&provider.FMPProvider{}).Name())
}
