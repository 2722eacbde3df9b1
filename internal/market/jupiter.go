package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	defaultJupiterQuoteURL  = "https://quote-api.jup.ag/v6"
	defaultJupiterTokensURL = "https://tokens.jup.ag"

	// SOLMint is wrapped SOL, the input side of every swap.
	SOLMint = "So11111111111111111111111111111111111111112"
	// USDCMint is the default swap output.
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	slippageBps = 50
)

// ErrNoQuote is returned when the router cannot price a swap.
var ErrNoQuote = errors.New("no swap quote available")

// TokenInfo is Jupiter's metadata for a mint.
type TokenInfo struct {
	Name        string
	Symbol      string
	CoingeckoID string
	DailyVolume decimal.Decimal
}

// Quote is a swap route from Jupiter. Raw is sent back verbatim when building the swap.
type Quote struct {
	InputMint      string
	OutputMint     string
	InAmount       uint64
	OutAmount      uint64
	PriceImpactPct decimal.Decimal
	Route          []string
	Raw            json.RawMessage
}

// Jupiter talks to the Jupiter aggregator's quote, swap and token APIs.
type Jupiter struct {
	quotes base
	tokens base
}

// NewJupiter creates a client; empty URLs select the public endpoints.
func NewJupiter(quoteURL, tokensURL string, opts ...Option) *Jupiter {
	if quoteURL == "" {
		quoteURL = defaultJupiterQuoteURL
	}
	if tokensURL == "" {
		tokensURL = defaultJupiterTokensURL
	}
	return &Jupiter{
		quotes: newBase("jupiter", quoteURL, 0, opts),
		tokens: newBase("jupiter-tokens", tokensURL, 0, opts),
	}
}

// TokenInfo looks up a mint. It returns nil, nil when Jupiter does not know it.
func (j *Jupiter) TokenInfo(ctx context.Context, mint string) (*TokenInfo, error) {
	req, err := j.tokens.request(ctx)
	if err != nil {
		return nil, err
	}
	var body struct {
		Name       string `json:"name"`
		Symbol     string `json:"symbol"`
		Extensions struct {
			CoingeckoID string `json:"coingeckoId"`
		} `json:"extensions"`
		DailyVolume decimal.Decimal `json:"daily_volume"`
	}
	resp, err := req.SetPathParam("mint", mint).SetResult(&body).Get("/token/{mint}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := j.tokens.check(resp, err); err != nil {
		return nil, err
	}
	return &TokenInfo{
		Name:        body.Name,
		Symbol:      body.Symbol,
		CoingeckoID: body.Extensions.CoingeckoID,
		DailyVolume: body.DailyVolume,
	}, nil
}

// Quote prices a swap of lamports of SOL into outputMint at 50 bps slippage.
func (j *Jupiter) Quote(ctx context.Context, lamports uint64, outputMint string) (*Quote, error) {
	if outputMint == "" {
		outputMint = USDCMint
	}
	req, err := j.quotes.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetQueryParams(map[string]string{
			"inputMint":   SOLMint,
			"outputMint":  outputMint,
			"amount":      strconv.FormatUint(lamports, 10),
			"slippageBps": strconv.Itoa(slippageBps),
		}).
		Get("/quote")
	if err := j.quotes.check(resp, err); err != nil {
		return nil, err
	}
	return parseQuote(resp.Body())
}

func parseQuote(raw []byte) (*Quote, error) {
	var body struct {
		InputMint      string `json:"inputMint"`
		OutputMint     string `json:"outputMint"`
		InAmount       string `json:"inAmount"`
		OutAmount      string `json:"outAmount"`
		PriceImpactPct string `json:"priceImpactPct"`
		RoutePlan      []struct {
			SwapInfo struct {
				Label string `json:"label"`
			} `json:"swapInfo"`
		} `json:"routePlan"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("jupiter: decoding quote: %w", err)
	}
	if body.OutAmount == "" {
		return nil, ErrNoQuote
	}

	q := &Quote{InputMint: body.InputMint, OutputMint: body.OutputMint, Raw: json.RawMessage(raw)}
	var err error
	if q.InAmount, err = strconv.ParseUint(body.InAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("jupiter: inAmount %q: %w", body.InAmount, err)
	}
	if q.OutAmount, err = strconv.ParseUint(body.OutAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("jupiter: outAmount %q: %w", body.OutAmount, err)
	}
	if body.PriceImpactPct != "" {
		q.PriceImpactPct, _ = decimal.NewFromString(body.PriceImpactPct)
	}
	for _, r := range body.RoutePlan {
		q.Route = append(q.Route, r.SwapInfo.Label)
	}
	return q, nil
}

// RouteLabel renders the hops of a quote as "A → B".
func (q *Quote) RouteLabel() string {
	return strings.Join(q.Route, " → ")
}

// SwapTransaction asks Jupiter to build the swap for quote, paid by user.
// It returns the unsigned base64 transaction.
func (j *Jupiter) SwapTransaction(ctx context.Context, quote *Quote, user string) (string, error) {
	req, err := j.quotes.request(ctx)
	if err != nil {
		return "", err
	}
	var body struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	resp, err := req.
		SetBody(map[string]any{
			"quoteResponse":                 quote.Raw,
			"userPublicKey":                 user,
			"wrapAndUnwrapSol":              true,
			"computeUnitPriceMicroLamports": "auto",
			"asLegacyTransaction":           false,
		}).
		SetResult(&body).
		Post("/swap")
	if err := j.quotes.check(resp, err); err != nil {
		return "", err
	}
	if body.SwapTransaction == "" {
		return "", errors.New("jupiter: empty swap transaction")
	}
	return body.SwapTransaction, nil
}
