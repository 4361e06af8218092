package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// defaultTimeout bounds every outbound call to an external source. A slow
// provider delays only its own contribution, up to this bound.
const defaultTimeout = 30 * time.Second

// defaultUserAgent identifies the service to the public APIs it queries.
const defaultUserAgent = "scholar-cli (academic profile aggregation)"

// Client is the shared HTTP client for source adapters: per-source rate
// limiting, bounded timeout, and retry on transient status codes.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	retries   int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRateLimit sets requests-per-second and burst for this source. A rate
// of zero or less means unlimited; a literal zero-rate limiter would block
// every request after the first burst token.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient substitutes the underlying HTTP client (for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a Client with a 30s timeout and no rate limit unless
// configured otherwise.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
		retries:   3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// Get performs a rate-limited GET with retries on transient failures and
// returns the body and status code.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "source: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, 0, err
			}
		}

		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			if attempt == c.retries {
				break
			}
			if err := sleep(ctx, backoff); err != nil {
				return nil, 0, err
			}
			backoff *= 2
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "source: read body")
		}

		if retryableStatus(resp.StatusCode) && attempt < c.retries {
			lastErr = eris.Errorf("source: status %d", resp.StatusCode)
			if err := sleep(ctx, backoff); err != nil {
				return nil, 0, err
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, eris.Wrap(lastErr, "source: request failed")
}

// GetJSON fetches url and unmarshals the JSON response into v. Non-200
// statuses are errors.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, v any) error {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}
	body, status, err := c.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return eris.Errorf("source: unexpected status %d", status)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrap(err, "source: unmarshal json")
	}
	return nil
}

// GetXML fetches url and unmarshals the XML response into v.
func (c *Client) GetXML(ctx context.Context, url string, v any) error {
	body, status, err := c.Get(ctx, url, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return eris.Errorf("source: unexpected status %d", status)
	}
	if err := xml.Unmarshal(body, v); err != nil {
		return eris.Wrap(err, "source: unmarshal xml")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
