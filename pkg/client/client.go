// Package client provides the PokeAPI HTTP client with an optional response
// cache, outbound concurrency limiting and typed errors.
package client

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

	"github.com/Sternrassler/pokeapi-explorer/pkg/cache"
	"github.com/Sternrassler/pokeapi-explorer/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public PokeAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_requests_total",
		Help: "Total PokeAPI requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokeapi_request_duration_seconds",
		Help:    "PokeAPI request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_errors_total",
		Help: "Total PokeAPI errors by class",
	}, []string{"class"})
)

// Client is the PokeAPI client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://pokeapi.co/api/v2"
	BaseURL string

	// Redis enables the shared response cache when set
	Redis *redis.Client

	// CacheRetention keeps stale responses around for revalidation
	CacheRetention time.Duration

	// User-Agent header sent with every request
	UserAgent string

	// Timeout per upstream request
	Timeout time.Duration

	// MaxConcurrency caps parallel upstream requests
	MaxConcurrency int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		CacheRetention: cache.DefaultRetention,
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxConcurrency: ratelimit.DefaultMaxConcurrency,
	}
}

// New creates a new PokeAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "pokeapi-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     base,
		rateLimiter: ratelimit.NewTracker(cfg.MaxConcurrency, logger),
		config:      cfg,
		logger:      logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis).WithRetention(cfg.CacheRetention)
	}

	return c, nil
}

// ResolveURL turns an endpoint path into an absolute URL. Absolute URLs (as
// found in resource references) are returned unchanged.
func (c *Client) ResolveURL(path string) (*url.URL, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	if u.IsAbs() {
		return u, nil
	}

	resolved := *c.baseURL
	resolved.Path = c.baseURL.Path + "/" + strings.TrimLeft(u.Path, "/")
	resolved.RawQuery = u.RawQuery
	return &resolved, nil
}

// Get performs a GET request and returns the raw JSON body.
// Non-success responses return *APIError; network errors are returned as is.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	u, err := c.ResolveURL(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// GetJSON performs a GET request and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Do executes a request through the response cache and the limiter and
// returns the response body.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	endpoint := c.endpointLabel(req.URL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	var cacheKey cache.CacheKey
	var cachedEntry *cache.CacheEntry
	if c.cache != nil {
		cacheKey = cache.KeyFromURL(req.URL)

		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil && !entry.IsExpired() {
			cache.CacheHits.WithLabelValues("fresh").Inc()
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			c.logger.Debug().
				Str("url", req.URL.String()).
				Dur("ttl", entry.TTL()).
				Msg("Serving fresh cached response")
			return entry.Data, nil
		}
		if entry != nil {
			cachedEntry = entry
			cache.AddConditionalHeaders(req, entry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("url", req.URL.String()).
				Str("etag", entry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 2: Wait for a request slot
	release, err := c.rateLimiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Step 3: Execute
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing PokeAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.UpdateFromResponse(resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read back-pressure headers")
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 4: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		cache.CacheHits.WithLabelValues("revalidated").Inc()
		if err := c.cache.UpdateTTL(ctx, cacheKey, cache.RefreshedExpires(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		c.logger.Debug().Str("url", req.URL.String()).Msg("304 Not Modified - using cache")
		return cachedEntry.Data, nil
	}

	// Step 5: Errors
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			ErrorClass: classifyStatus(resp.StatusCode),
		}
		if apiErr.ErrorClass == "" {
			// 1xx/3xx without a cached body to fall back on
			apiErr.ErrorClass = ErrorClassClient
		}
		errorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()

		c.logger.Warn().
			Str("url", apiErr.URL).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("PokeAPI request error")

		return nil, apiErr
	}

	// Step 6: Success, update cache
	if c.cache != nil && cache.Cacheable(resp) {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("url", req.URL.String()).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
		return entry.Data, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// endpointLabel returns the resource name used as metrics label, e.g.
// "pokemon" or "evolution-chain".
func (c *Client) endpointLabel(u *url.URL) string {
	rest := strings.TrimPrefix(u.Path, c.baseURL.Path)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "root"
	}
	resource, _, _ := strings.Cut(rest, "/")
	return resource
}

// Ping checks the response cache backend. It returns nil when no cache is
// configured.
func (c *Client) Ping(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Ping(ctx)
}

// RateLimitState returns a snapshot of the outbound limiter.
func (c *Client) RateLimitState() *ratelimit.RateLimitState {
	return c.rateLimiter.State()
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetCache returns the response cache manager, nil when disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
