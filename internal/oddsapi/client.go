// Package oddsapi is a rate-limited REST client for the Odds API v4
// (events and per-event odds).
package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/propscope/oddsjobs/internal/domain"
)

// Config holds the client's endpoint, credentials and request policy.
type Config struct {
	BaseURL           string
	APIKey            string
	Regions           string
	Bookmakers        []string
	OddsFormat        string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	MaxRetries        int
	IncludeLinks      bool
	IncludeSids       bool
}

// Client is the REST client for the Odds API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	backoff    time.Duration

	mu    sync.Mutex
	quota Quota
}

// NewClient creates a Client. Zero-valued policy fields get conservative
// defaults: 1 request/second, burst 1, 30s timeout, 2 retries.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.OddsFormat == "" {
		cfg.OddsFormat = "american"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:     logger.With(slog.String("component", "oddsapi")),
		backoff:    500 * time.Millisecond,
	}
}

// ListEvents returns the upcoming events for sport.
func (c *Client) ListEvents(ctx context.Context, sport string) ([]Event, error) {
	path := fmt.Sprintf("/sports/%s/events", url.PathEscape(sport))

	body, err := c.get(ctx, path, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("oddsapi: list events %s: %w", sport, err)
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("oddsapi: decode events %s: %w", sport, err)
	}
	return events, nil
}

// EventOdds returns every configured bookmaker's prices for markets on one
// event.
func (c *Client) EventOdds(ctx context.Context, sport, eventID string, markets []string) (EventOdds, error) {
	path := fmt.Sprintf("/sports/%s/events/%s/odds", url.PathEscape(sport), url.PathEscape(eventID))

	params := url.Values{}
	params.Set("markets", strings.Join(markets, ","))
	params.Set("oddsFormat", c.cfg.OddsFormat)
	if len(c.cfg.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(c.cfg.Bookmakers, ","))
	} else if c.cfg.Regions != "" {
		params.Set("regions", c.cfg.Regions)
	}
	if c.cfg.IncludeLinks {
		params.Set("includeLinks", "true")
	}
	if c.cfg.IncludeSids {
		params.Set("includeSids", "true")
	}

	body, err := c.get(ctx, path, params)
	if err != nil {
		return EventOdds{}, fmt.Errorf("oddsapi: event odds %s: %w", eventID, err)
	}

	var odds EventOdds
	if err := json.Unmarshal(body, &odds); err != nil {
		return EventOdds{}, fmt.Errorf("oddsapi: decode event odds %s: %w", eventID, err)
	}
	return odds, nil
}

// Quota returns the credit usage reported by the most recent response.
func (c *Client) Quota() Quota {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// get waits for the rate limiter, sends the request and retries rate-limited
// and 5xx responses with exponential backoff.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("apiKey", c.cfg.APIKey)
	fullURL := c.cfg.BaseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			c.logger.WarnContext(ctx, "retrying request",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, err := c.do(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// statusError carries a non-2xx status so get can decide whether to retry.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Transport errors (timeouts, resets) are retried; context errors are not.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) do(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error embeds the full URL, api key included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	c.recordQuota(ctx, resp.Header)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, &statusError{code: resp.StatusCode, err: err}
	}
	return respBody, nil
}

// recordQuota stores the x-requests-* headers when present.
func (c *Client) recordQuota(ctx context.Context, h http.Header) {
	remaining, err := strconv.Atoi(h.Get("x-requests-remaining"))
	if err != nil {
		return
	}
	used, _ := strconv.Atoi(h.Get("x-requests-used"))
	last, _ := strconv.Atoi(h.Get("x-requests-last"))

	c.mu.Lock()
	c.quota = Quota{Remaining: remaining, Used: used, Last: last}
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "quota",
		slog.Int("remaining", remaining),
		slog.Int("used", used),
		slog.Int("last", last),
	)
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case apiErr.ErrorCode == "OUT_OF_USAGE_CREDITS":
		return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, apiErr.Message)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s (%s)", domain.ErrNotFound, apiErr.Message, apiErr.ErrorCode)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s (%s)", domain.ErrUnauthorized, apiErr.Message, apiErr.ErrorCode)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s (%s)", domain.ErrRateLimited, apiErr.Message, apiErr.ErrorCode)
	default:
		return fmt.Errorf("HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.ErrorCode)
	}
}
