// Package market wraps the third-party HTTP APIs the assistant reads prices,
// token data and yields from, and the NFT minting service it writes to.
// Every client is throttled and reports upstream failures as typed errors.
package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when an upstream API answers 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrMissingAPIKey is returned by clients that need a key and were built without one.
	ErrMissingAPIKey = errors.New("api key not configured")
)

// HTTPError is an unexpected non-2xx answer from an upstream API.
type HTTPError struct {
	Service string
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: http %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: http %d", e.Service, e.Status)
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}

type settings struct {
	timeout  time.Duration
	interval time.Duration
	apiKey   string
}

// Option configures an API client.
type Option func(*settings)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithMinInterval spaces requests to the API at least d apart.
func WithMinInterval(d time.Duration) Option {
	return func(s *settings) { s.interval = d }
}

// WithAPIKey sets the key sent to APIs that require one.
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

type base struct {
	service string
	http    *resty.Client
	limiter *rate.Limiter
	apiKey  string
}

func newBase(service, baseURL string, interval time.Duration, opts []Option) base {
	s := settings{timeout: 15 * time.Second, interval: interval}
	for _, opt := range opts {
		opt(&s)
	}
	limit := rate.Inf
	if s.interval > 0 {
		limit = rate.Every(s.interval)
	}
	return base{
		service: service,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(s.timeout).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(limit, 1),
		apiKey:  s.apiKey,
	}
}

// request waits for the throttle and returns a request bound to ctx.
func (b *base) request(ctx context.Context) (*resty.Request, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", b.service, err)
	}
	return b.http.R().SetContext(ctx).SetError(&apiError{}), nil
}

// check converts transport failures and non-2xx answers into errors.
func (b *base) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", b.service, err)
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", b.service, ErrRateLimited)
	case resp.IsError():
		return &HTTPError{Service: b.service, Status: resp.StatusCode(), Message: errorMessage(resp)}
	}
	return nil
}

// errorMessage pulls a human message out of a JSON error body when there is one.
func errorMessage(resp *resty.Response) string {
	if e, ok := resp.Error().(*apiError); ok && e != nil {
		if e.Message != "" {
			return e.Message
		}
		return e.Error
	}
	return ""
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
