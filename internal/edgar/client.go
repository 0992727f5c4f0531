// Package edgar talks to SEC EDGAR: ticker resolution, filing lookup,
// document download and the quarterly full index.
package edgar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.sec.gov"
	DefaultDataURL = "https://data.sec.gov"

	// MaxAttempts bounds every request, including the first try.
	MaxAttempts = 3

	maxBodyBytes = 256 << 20
)

var (
	// ErrNoFiling means the company filed no matching form in the year.
	ErrNoFiling = errors.New("no matching filing")
	// ErrUnknownTicker means the ticker is not in the SEC ticker table.
	ErrUnknownTicker = errors.New("unknown ticker")
)

// RetryableError is a transient upstream failure (429, 5xx or a transport error).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err wraps a RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Options configures a Client. Zero values pick the SEC defaults.
type Options struct {
	BaseURL   string
	DataURL   string
	UserAgent string
	Timeout   time.Duration
	// RatePerSecond caps outgoing requests. SEC asks for at most 10.
	RatePerSecond float64
	// Backoff overrides the retry delay, mainly for tests.
	Backoff func(attempt int) time.Duration
}

// Client is safe for concurrent use; all requests share one rate limiter.
type Client struct {
	baseURL    string
	dataURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    func(int) time.Duration

	tickersMu sync.Mutex
	tickers   map[string]string
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.DataURL == "" {
		opts.DataURL = DefaultDataURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 10
	}
	if opts.Backoff == nil {
		opts.Backoff = Backoff
	}
	return &Client{
		baseURL:   opts.BaseURL,
		dataURL:   opts.DataURL,
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		backoff: opts.Backoff,
	}
}

// get fetches url, retrying transient failures. A 404 is returned as
// *StatusError so callers can tell a missing resource from an outage.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range MaxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}
		body, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("get %s: %d attempts: %w", url, MaxAttempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Message: truncate(string(body), 200)}
	}
	return body, nil
}

// StatusError is a non-retryable HTTP failure.
type StatusError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: status %d: %s", e.URL, e.StatusCode, e.Message)
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
