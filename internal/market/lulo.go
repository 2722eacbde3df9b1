package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

const defaultLuloURL = "https://app.lulo.fi/api"

// lendingProtocols are the venues whose USDC rates are reported.
var lendingProtocols = map[string]bool{
	"drift":      true,
	"kamino_jlp": true,
	"kamino":     true,
	"solend":     true,
	"kam_alt":    true,
	"marginfi":   true,
}

// LendingRate is the current USDC supply APY at one protocol, in percent.
type LendingRate struct {
	Protocol string          `json:"protocol"`
	Rate     decimal.Decimal `json:"rate"`
}

// Lulo reads lending rates from the Lulo aggregator.
type Lulo struct {
	base
}

// NewLulo creates a client; an empty baseURL selects the public API.
func NewLulo(baseURL string, opts ...Option) *Lulo {
	if baseURL == "" {
		baseURL = defaultLuloURL
	}
	return &Lulo{base: newBase("lulo", baseURL, 0, opts)}
}

// RawRates returns the unfiltered mainnet rate table as served by Lulo.
func (l *Lulo) RawRates(ctx context.Context) (json.RawMessage, error) {
	req, err := l.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetQueryParam("cluster", "mainnet").Get("/protocols/rates")
	if err := l.check(resp, err); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// USDCLendingRates returns positive USDC rates at the known protocols, best first.
func (l *Lulo) USDCLendingRates(ctx context.Context) ([]LendingRate, error) {
	raw, err := l.RawRates(ctx)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []struct {
			Protocol string `json:"protocol"`
			Rates    map[string]struct {
				Current string `json:"CURRENT"`
			} `json:"rates"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("lulo: decoding rates: %w", err)
	}

	var rates []LendingRate
	for _, p := range body.Data {
		if !lendingProtocols[p.Protocol] {
			continue
		}
		rate, err := decimal.NewFromString(p.Rates[USDCMint].Current)
		if err != nil || !rate.IsPositive() {
			continue
		}
		rates = append(rates, LendingRate{Protocol: p.Protocol, Rate: rate})
	}
	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].Rate.GreaterThan(rates[j].Rate)
	})
	return rates, nil
}
