// Package quotes provides the HTTP client for the upstream quote and
// fundamentals API.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
)

// Client for the quote API.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new quote API client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "quotes").Logger(),
	}
}

// quotePayload is the upstream wire format. Optional fundamentals arrive as
// nullable fields and stay nil when the source has no figure.
type quotePayload struct {
	Symbol           string   `json:"symbol"`
	Price            float64  `json:"price"`
	PERatio          *float64 `json:"pe_ratio"`
	PBRatio          *float64 `json:"pb_ratio"`
	PEGRatio         *float64 `json:"peg_ratio"`
	MarketCap        *float64 `json:"market_cap"`
	DividendYield    *float64 `json:"dividend_yield"`
	CurrentRatio     *float64 `json:"current_ratio"`
	DebtToEquity     *float64 `json:"debt_to_equity"`
	RevenueGrowth    *float64 `json:"revenue_growth"`
	EarningsGrowth   *float64 `json:"earnings_growth"`
	ProfitMargin     *float64 `json:"profit_margin"`
	ReturnOnEquity   *float64 `json:"return_on_equity"`
	Beta             *float64 `json:"beta"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low"`
	Sector           string   `json:"sector"`
	Industry         string   `json:"industry"`
}

// GetQuote fetches one symbol's snapshot.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/quote/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("quote for %s: %w", symbol, domain.ErrNoQuote)
	default:
		return nil, fmt.Errorf("quote API returned status %d for %s", resp.StatusCode, symbol)
	}

	var payload quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if payload.Price <= 0 {
		return nil, fmt.Errorf("quote for %s has no price: %w", symbol, domain.ErrDataUnavailable)
	}

	return payload.toSnapshot(), nil
}

func (p *quotePayload) toSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Symbol:           p.Symbol,
		Price:            p.Price,
		PERatio:          p.PERatio,
		PBRatio:          p.PBRatio,
		PEGRatio:         p.PEGRatio,
		MarketCap:        p.MarketCap,
		DividendYield:    p.DividendYield,
		CurrentRatio:     p.CurrentRatio,
		DebtToEquity:     p.DebtToEquity,
		RevenueGrowth:    p.RevenueGrowth,
		EarningsGrowth:   p.EarningsGrowth,
		ProfitMargin:     p.ProfitMargin,
		ReturnOnEquity:   p.ReturnOnEquity,
		Beta:             p.Beta,
		FiftyTwoWeekHigh: p.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  p.FiftyTwoWeekLow,
		Sector:           p.Sector,
		Industry:         p.Industry,
		FetchedAt:        time.Now().UTC(),
	}
}
