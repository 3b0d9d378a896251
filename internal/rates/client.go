// Package rates talks to the exchange-rate provider and resolves the rates
// an aggregation or conversion needs.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

const (
	DefaultBaseURL = "https://api.exchangerate.host"
	DefaultTimeout = 10 * time.Second

	dateLayout = "2006-01-02"
)

// Provider failure kinds. The creation path surfaces these to the caller;
// batch aggregation absorbs them per transaction.
var (
	ErrQuotaExceeded = errors.New("rate provider quota exceeded")
	ErrUnknownPair   = errors.New("unknown currency pair")
	ErrRateService   = errors.New("rate provider error")
)

// Source provides current and historical exchange rates.
type Source interface {
	GetExchangeRate(ctx context.Context, from, to core.Currency) (decimal.Decimal, error)
	GetHistoricalExchangeRate(ctx context.Context, from, to core.Currency, date time.Time) (decimal.Decimal, error)
}

// Client is the HTTP client for the exchange-rate provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Source = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the provider base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAPIKey sets the provider API key
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rateResponse is the provider's response shape for both endpoints.
type rateResponse struct {
	ConversionRate string `json:"conversionRate"`
}

// GetExchangeRate fetches the live rate for a currency pair.
func (c *Client) GetExchangeRate(ctx context.Context, from, to core.Currency) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", string(from))
	q.Set("to", string(to))
	return c.fetch(ctx, "/v1/rates/current", q)
}

// GetHistoricalExchangeRate fetches the rate for a currency pair on a past date.
func (c *Client) GetHistoricalExchangeRate(ctx context.Context, from, to core.Currency, date time.Time) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", string(from))
	q.Set("to", string(to))
	q.Set("date", core.DateOnly(date).Format(dateLayout))
	return c.fetch(ctx, "/v1/rates/historical", q)
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values) (decimal.Decimal, error) {
	reqURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRateService, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// decoded below
	case http.StatusTooManyRequests:
		return decimal.Zero, fmt.Errorf("%w: %s", ErrQuotaExceeded, query.Encode())
	case http.StatusNotFound:
		return decimal.Zero, fmt.Errorf("%w: %s->%s", ErrUnknownPair, query.Get("from"), query.Get("to"))
	default:
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrRateService, resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode response: %v", ErrRateService, err)
	}
	rate, err := decimal.NewFromString(body.ConversionRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad conversion rate %q", ErrRateService, body.ConversionRate)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive conversion rate %q", ErrRateService, body.ConversionRate)
	}
	return rate, nil
}
