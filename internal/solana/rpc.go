package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrTransactionNotFound is returned when the node has no record of a signature.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrConfirmTimeout is returned when a signature is not confirmed in time.
	ErrConfirmTimeout = errors.New("transaction not confirmed in time")
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsAirdropLimit reports whether err is the faucet's rate-limit rejection.
func IsAirdropLimit(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		msg := strings.ToLower(rpcErr.Message)
		return strings.Contains(msg, "airdrop request limit reached") ||
			strings.Contains(msg, "rate limit") || rpcErr.Code == 429
	}
	return false
}

// Client talks JSON-RPC 2.0 to a Solana node.
type Client struct {
	endpoint     string
	http         *resty.Client
	limiter      *rate.Limiter
	commitment   string
	pollInterval time.Duration
	confirmWait  time.Duration
	nextID       atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithMinInterval spaces requests at least d apart.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// WithPollInterval sets how often ConfirmTransaction checks signature status.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithConfirmTimeout bounds how long ConfirmTransaction waits.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Client) { c.confirmWait = d }
}

// NewClient creates an RPC client for endpoint (which may carry an api-key query).
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		http:         resty.New().SetHeader("Content-Type", "application/json"),
		limiter:      rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		commitment:   "confirmed",
		pollInterval: time.Second,
		confirmWait:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	var body rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}).
		SetResult(&body).
		SetError(&body).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if body.Error != nil {
		return fmt.Errorf("%s: %w", method, body.Error)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %w", method, &RPCError{Code: resp.StatusCode(), Message: resp.Status()})
	}
	if result == nil || len(body.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Result, result); err != nil {
		return fmt.Errorf("%s: decoding result: %w", method, err)
	}
	return nil
}

// GetBalance returns the lamport balance of address.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var res struct {
		Value uint64 `json:"value"`
	}
	err := c.call(ctx, "getBalance", []any{address, map[string]string{"commitment": c.commitment}}, &res)
	return res.Value, err
}

// GetNativeBalance returns the lamport balance reported by the DAS
// getAssetsByOwner method (Helius).
func (c *Client) GetNativeBalance(ctx context.Context, owner string) (uint64, error) {
	params := map[string]any{
		"ownerAddress": owner,
		"displayOptions": map[string]bool{
			"showFungible":      true,
			"showNativeBalance": true,
		},
	}
	var res struct {
		NativeBalance struct {
			Lamports uint64 `json:"lamports"`
		} `json:"nativeBalance"`
	}
	err := c.call(ctx, "getAssetsByOwner", params, &res)
	return res.NativeBalance.Lamports, err
}

// GetLatestBlockhash returns a recent blockhash for building transactions.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var res struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]string{"commitment": c.commitment}}, &res); err != nil {
		return "", err
	}
	return res.Value.Blockhash, nil
}

// RequestAirdrop asks the cluster faucet for lamports and returns the signature.
func (c *Client) RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error) {
	var sig string
	err := c.call(ctx, "requestAirdrop", []any{address, lamports}, &sig)
	return sig, err
}

// SendTransaction submits a signed, serialized transaction.
func (c *Client) SendTransaction(ctx context.Context, raw []byte) (string, error) {
	params := []any{
		base64.StdEncoding.EncodeToString(raw),
		map[string]string{"encoding": "base64", "preflightCommitment": c.commitment},
	}
	var sig string
	err := c.call(ctx, "sendTransaction", params, &sig)
	return sig, err
}

// SignatureStatus is the node's view of a submitted transaction.
type SignatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// Failed reports whether the transaction executed with an error.
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// GetSignatureStatus returns nil when the signature is unknown.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var res struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{[]string{signature}, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &res); err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

// ConfirmTransaction waits until signature reaches confirmed commitment, ctx
// ends, or the confirm timeout passes.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.confirmWait)
	defer deadline.Stop()

	for {
		status, err := c.GetSignatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		if status != nil {
			if status.Failed() {
				return fmt.Errorf("transaction %s failed: %s", signature, status.Err)
			}
			switch status.ConfirmationStatus {
			case "confirmed", "finalized":
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirming %s: %w", signature, ctx.Err())
		case <-deadline.C:
			return fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, signature, c.confirmWait)
		case <-ticker.C:
		}
	}
}
