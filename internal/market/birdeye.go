package market

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

const defaultBirdeyeURL = "https://public-api.birdeye.so"

// BirdeyeToken is one row of the Birdeye token list.
type BirdeyeToken struct {
	Address           string          `json:"address"`
	Name              string          `json:"name"`
	Symbol            string          `json:"symbol"`
	Decimals          int             `json:"decimals"`
	LogoURI           string          `json:"logoURI"`
	Liquidity         decimal.Decimal `json:"liquidity"`
	V24hChangePercent decimal.Decimal `json:"v24hChangePercent"`
	V24hUSD           decimal.Decimal `json:"v24hUSD"`
	MarketCap         decimal.Decimal `json:"mc"`
}

// Birdeye lists Solana tokens by trading activity. It requires an API key.
type Birdeye struct {
	base
}

// NewBirdeye creates a client; an empty baseURL selects the public API.
func NewBirdeye(baseURL string, opts ...Option) *Birdeye {
	if baseURL == "" {
		baseURL = defaultBirdeyeURL
	}
	return &Birdeye{base: newBase("birdeye", baseURL, 0, opts)}
}

// TopTokens returns up to limit tokens ordered by 24h volume change, highest first.
func (b *Birdeye) TopTokens(ctx context.Context, limit int) ([]BirdeyeToken, error) {
	if b.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if limit <= 0 {
		limit = 10
	}
	req, err := b.request(ctx)
	if err != nil {
		return nil, err
	}
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Tokens []BirdeyeToken `json:"tokens"`
		} `json:"data"`
	}
	resp, err := req.
		SetHeader("x-chain", "solana").
		SetHeader("X-API-KEY", b.apiKey).
		SetQueryParams(map[string]string{
			"sort_by":   "v24hChangePercent",
			"sort_type": "desc",
			"offset":    "0",
			"limit":     strconv.Itoa(limit),
		}).
		SetResult(&body).
		Get("/defi/tokenlist")
	if err := b.check(resp, err); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, errors.New("birdeye: request was not successful")
	}
	return body.Data.Tokens, nil
}
