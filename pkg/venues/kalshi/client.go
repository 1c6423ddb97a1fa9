package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/smbrisk/hedgescout/pkg/market"
)

const (
	// DefaultBaseURL is the public Kalshi trade API base URL.
	DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

	defaultRateLimit  = 5.0 // requests per second
	defaultBurst      = 1
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
	defaultRetryBase  = 2 * time.Second
	defaultRetryMax   = 30 * time.Second
	defaultCacheTTL   = 5 * time.Minute
)

// Client is a rate-limited Kalshi API client with TTL caches keyed by
// request shape.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	maxRetries int
	retryBase  time.Duration
	retryMax   time.Duration

	seriesCache  *market.Cache[string, []Series]
	marketsCache *market.Cache[string, []Market]
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout on the default pooled client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the 429 retry policy.
func WithRetry(maxRetries int, baseWait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBase = baseWait
		c.retryMax = maxWait
	}
}

// WithCacheTTL sets the TTL for the series and market caches.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.seriesCache = market.NewCache[string, []Series](ttl)
		c.marketsCache = market.NewCache[string, []Market](ttl)
	}
}

// NewClient creates a new Kalshi API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:      rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries:   defaultMaxRetries,
		retryBase:    defaultRetryBase,
		retryMax:     defaultRetryMax,
		seriesCache:  market.NewCache[string, []Series](defaultCacheTTL),
		marketsCache: market.NewCache[string, []Market](defaultCacheTTL),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListSeries fetches series, optionally filtered by venue tags.
func (c *Client) ListSeries(ctx context.Context, tags []string) ([]Series, error) {
	cacheKey := "series:" + strings.Join(tags, ",")
	if cached, ok := c.seriesCache.Get(cacheKey); ok {
		return cached, nil
	}

	params := url.Values{}
	if len(tags) > 0 {
		params.Set("tags", strings.Join(tags, ","))
	}

	var resp seriesResponse
	if err := c.get(ctx, "/series", params, &resp); err != nil {
		return nil, err
	}

	c.seriesCache.Set(cacheKey, resp.Series)
	return resp.Series, nil
}

// ListOpenMarkets fetches open-status markets for a series, following the
// pagination cursor.
func (c *Client) ListOpenMarkets(ctx context.Context, seriesTicker string) ([]Market, error) {
	cacheKey := "markets:" + seriesTicker
	if cached, ok := c.marketsCache.Get(cacheKey); ok {
		return cached, nil
	}

	var all []Market
	cursor := ""
	for {
		params := url.Values{}
		params.Set("series_ticker", seriesTicker)
		params.Set("status", "open")
		params.Set("limit", "100")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp marketsResponse
		if err := c.get(ctx, "/markets", params, &resp); err != nil {
			return all, err
		}

		all = append(all, resp.Markets...)
		if resp.Cursor == "" || len(resp.Markets) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	c.marketsCache.Set(cacheKey, all)
	return all, nil
}

// ListEvents pages through the events endpoint. Used by the market cache
// sync job; results are not cached here.
func (c *Client) ListEvents(ctx context.Context, status string, pageSize int, cursor string) ([]Event, string, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if pageSize > 0 {
		params.Set("limit", strconv.Itoa(pageSize))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	params.Set("with_nested_markets", "true")

	var resp eventsResponse
	if err := c.get(ctx, "/events", params, &resp); err != nil {
		return nil, "", err
	}
	return resp.Events, resp.Cursor, nil
}

// get performs a rate-limited GET with retry-on-429. After the retry budget
// is spent the caller receives market.ErrRateLimited rather than a raw HTTP
// error, so aggregation can degrade to partial results.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	wait := c.retryBase
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryWait := retryAfter(resp.Header.Get("Retry-After"), wait)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			if attempt >= c.maxRetries {
				return fmt.Errorf("%s: %w", path, market.ErrRateLimited)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryWait):
			}

			// Double the default wait on repeated 429s, up to the cap.
			wait *= 2
			if wait > c.retryMax {
				wait = c.retryMax
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

// retryAfter interprets a Retry-After header as either seconds or an
// HTTP-date, falling back to the default wait.
func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}
