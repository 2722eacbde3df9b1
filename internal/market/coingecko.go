package market

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// Price is SOL's current USD quote.
type Price struct {
	USD       decimal.Decimal
	Change24h decimal.Decimal // percent
	MarketCap decimal.Decimal
}

// TrendingToken is one entry from the Solana meme coin category.
type TrendingToken struct {
	ID        string
	Name      string
	Symbol    string
	USD       decimal.Decimal
	Change24h decimal.Decimal
}

// CoinGecko reads prices from the public CoinGecko API, at most one request per second.
type CoinGecko struct {
	base
}

// NewCoinGecko creates a client; an empty baseURL selects the public API.
func NewCoinGecko(baseURL string, opts ...Option) *CoinGecko {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	return &CoinGecko{base: newBase("coingecko", baseURL, time.Second, opts)}
}

// SolanaPrice returns the SOL/USD price with 24h change and market cap.
func (c *CoinGecko) SolanaPrice(ctx context.Context) (*Price, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var body map[string]struct {
		USD          decimal.Decimal `json:"usd"`
		USD24hChange decimal.Decimal `json:"usd_24h_change"`
		USDMarketCap decimal.Decimal `json:"usd_market_cap"`
	}
	resp, err := req.
		SetQueryParams(map[string]string{
			"ids":                 "solana",
			"vs_currencies":       "usd",
			"include_24hr_change": "true",
			"include_market_cap":  "true",
		}).
		SetResult(&body).
		Get("/simple/price")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	sol := body["solana"]
	return &Price{USD: sol.USD, Change24h: sol.USD24hChange, MarketCap: sol.USDMarketCap}, nil
}

// TrendingMemeTokens returns the top five Solana meme coins by market cap.
func (c *CoinGecko) TrendingMemeTokens(ctx context.Context) ([]TrendingToken, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var body []struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Symbol       string          `json:"symbol"`
		CurrentPrice decimal.Decimal `json:"current_price"`
		Change24h    decimal.Decimal `json:"price_change_percentage_24h"`
	}
	resp, err := req.
		SetQueryParams(map[string]string{
			"vs_currency": "usd",
			"category":    "solana-meme-coins",
			"order":       "market_cap_desc",
			"per_page":    "5",
			"page":        "1",
			"sparkline":   "false",
		}).
		SetResult(&body).
		Get("/coins/markets")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}

	tokens := make([]TrendingToken, 0, len(body))
	for _, coin := range body {
		tokens = append(tokens, TrendingToken{
			ID:        coin.ID,
			Name:      coin.Name,
			Symbol:    strings.ToUpper(coin.Symbol),
			USD:       coin.CurrentPrice,
			Change24h: coin.Change24h,
		})
	}
	return tokens, nil
}
