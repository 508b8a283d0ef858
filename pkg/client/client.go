// Package client provides the SWAPI HTTP client with response caching,
// typed fetch errors and Prometheus instrumentation.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Prometheus metrics for SWAPI client operations.
var (
	swapiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_requests_total",
		Help: "Total SWAPI requests by endpoint and status",
	}, []string{"endpoint", "status"})

	swapiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_request_duration_seconds",
		Help:    "SWAPI request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	swapiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_errors_total",
		Help: "Total SWAPI errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (including unknown ids).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and truncated bodies.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents bodies that are not valid JSON.
	ErrorClassParse ErrorClass = "parse"

	// ErrorClassUnexpected represents other non-2xx statuses (1xx, 3xx).
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// Client is the SWAPI client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://swapi.dev/api".
	// Relative endpoints passed to Get are resolved against it.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per request.
	Timeout time.Duration

	// Redis enables the response cache when non-nil.
	Redis *redis.Client

	// CacheTTL is used for responses without an Expires header.
	CacheTTL time.Duration
}

// DefaultConfig returns a default configuration without caching.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a new SWAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  log.With().Str("component", "swapi-client").Logger(),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Do performs an HTTP request with cache revalidation and instrumentation.
// Non-2xx responses are returned to the caller; only transport failures
// produce an error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	rawURL := req.URL.String()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		swapiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Conditional request from a cached entry
	var (
		cacheKey    cache.Key
		cachedEntry *cache.Entry
	)
	if c.cache != nil {
		cacheKey = cache.KeyFromURL(req.URL)

		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Cache get error")
		}
		if cache.ShouldRevalidate(entry) {
			cachedEntry = entry
			cache.AddConditionalHeaders(req, entry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("url", rawURL).
				Str("etag", entry.ETag).
				Msg("Making conditional request")
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		swapiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		swapiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("url", rawURL).Msg("HTTP request failed")
		return nil, &FetchError{URL: rawURL, Class: ErrorClassNetwork, Err: err}
	}

	swapiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("url", rawURL).Msg("304 Not Modified - using cache")

		newExpires := time.Now().Add(c.config.CacheTTL)
		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if parsed, err := http.ParseTime(expiresStr); err == nil && parsed.After(time.Now()) {
				newExpires = parsed
			}
		}
		if err := c.cache.Refresh(ctx, cacheKey, cachedEntry, newExpires); err != nil {
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to refresh cache entry")
		}

		return cache.ToResponse(cachedEntry, req), nil
	}

	if resp.StatusCode == http.StatusOK && c.cache != nil {
		entry, err := cache.FromResponse(resp, c.config.CacheTTL)
		if err != nil {
			// FromResponse consumed the body; surface it as a truncated read.
			return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Err: err}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to cache response")
		}
	}

	c.logger.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("SWAPI request complete")

	return resp, nil
}

// Get performs a GET request. endpoint may be absolute (links found in
// payloads) or relative to the configured base URL.
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	target, err := c.ResolveURL(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON fetches endpoint and returns its body after checking the status
// and that the body is valid JSON. It fails with *FetchError or *ParseError.
func (c *Client) GetJSON(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rawURL := resp.Request.URL.String()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := c.classifyStatus(resp.StatusCode)
		swapiErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("url", rawURL).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("SWAPI request error")
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Class: class}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		swapiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Err: err}
	}

	if !gjson.ValidBytes(body) {
		swapiErrorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, &ParseError{URL: rawURL, Err: fmt.Errorf("body is not valid JSON (%d bytes)", len(body))}
	}

	return body, nil
}

// ResolveURL returns endpoint as an absolute URL.
func (c *Client) ResolveURL(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	joined := c.baseURL.JoinPath(ref.Path)
	joined.RawQuery = ref.RawQuery
	return joined.String(), nil
}

// classifyStatus categorizes a non-2xx status for observability.
func (c *Client) classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}

// Close releases idle connections. The client stays usable afterwards.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

var idSegment = regexp.MustCompile(`/\d+(/|$)`)

// endpointLabel collapses numeric path segments so metrics keep a bounded
// label set: /api/films/3/ -> /api/films/{id}/.
func endpointLabel(path string) string {
	return idSegment.ReplaceAllString(path, "/{id}$1")
}
