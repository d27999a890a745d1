package upstream

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trustmesh/trustmesh/internal/metrics"
)

// Defaults applied by NewClient when the corresponding Config field is zero.
const (
	DefaultWindow            = 60 * time.Second
	DefaultRateLimit         = 30
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 500 * time.Millisecond
	DefaultBackoffMultiplier = 2.0
	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheSize         = 256
	DefaultRequestTimeout    = 15 * time.Second
)

// Error is a failed upstream call. StatusCode is zero for transport-level
// failures where no HTTP response was received.
type Error struct {
	Upstream   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d", e.Upstream, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s: %v", e.Upstream, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the retry policy may re-attempt this failure.
// Transport errors, 429 and 5xx are retryable; other 4xx are not.
func (e *Error) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// Config describes one upstream service. One Client is built per upstream;
// rate window and cache state are scoped to that instance, never shared
// across upstreams.
type Config struct {
	Name    string
	BaseURL string

	RateLimit int           // calls per rolling window
	Window    time.Duration // rolling window size

	MaxRetries        int // negative disables retries, zero selects the default
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration // zero means uncapped

	CacheTTL  time.Duration
	CacheSize int

	RequestTimeout time.Duration
	Headers        map[string]string // static headers, e.g. auth
	HTTPClient     *http.Client
}

// Request is one outbound call. Query keys are canonicalized when building
// the cache key, so parameter order never splits the cache.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// Response is the upstream's reply. A zero-length body with a 2xx status
// is valid data, not an error.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client wraps a single upstream with a sliding-window rate limiter,
// exponential-backoff retry, and a TTL response cache. A cache hit skips
// both the rate window and the network.
type Client struct {
	cfg    Config
	window *RateWindow
	cache  *responseCache
	http   *http.Client
	met    *metrics.Metrics

	// sleep is injectable so retry backoff can be observed in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client for one upstream, filling zero Config fields
// with defaults.
func NewClient(cfg Config) *Client {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:    cfg,
		window: NewRateWindow(cfg.RateLimit, cfg.Window),
		cache:  newResponseCache(cfg.CacheTTL, cfg.CacheSize),
		http:   httpClient,
		met:    metrics.GetMetrics(),
		sleep:  sleepContext,
	}
}

// Name returns the upstream's configured name.
func (c *Client) Name() string { return c.cfg.Name }

// Do performs one logical request against the upstream. It consults the
// cache first, then blocks on the rate window and retries retryable
// failures with exponential backoff. Non-retryable client errors (4xx
// other than 429) propagate immediately without consuming retry budget.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	key := c.cacheKey(req)
	if resp, ok := c.cache.Get(key); ok {
		c.met.IncrementCacheHits(c.cfg.Name)
		return resp, nil
	}
	c.met.IncrementCacheMisses(c.cfg.Name)

	backoff := c.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		waitStart := time.Now()
		if err := c.window.Acquire(ctx); err != nil {
			return Response{}, &Error{Upstream: c.cfg.Name, Err: err}
		}
		c.met.ObserveRateLimitWait(c.cfg.Name, time.Since(waitStart))

		resp, err := c.roundTrip(ctx, req)
		if err == nil {
			c.cache.Put(key, resp)
			return resp, nil
		}

		uerr, ok := err.(*Error)
		if !ok || !uerr.Retryable() || attempt >= c.cfg.MaxRetries {
			return Response{}, err
		}

		c.met.IncrementUpstreamRetries(c.cfg.Name)
		if err := c.sleep(ctx, backoff); err != nil {
			return Response{}, &Error{Upstream: c.cfg.Name, Err: err}
		}
		backoff = time.Duration(float64(backoff) * c.cfg.BackoffMultiplier)
		if c.cfg.MaxBackoff > 0 && backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// roundTrip performs a single HTTP attempt bounded by RequestTimeout.
func (c *Client) roundTrip(ctx context.Context, req Request) (Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, target, body)
	if err != nil {
		return Response{}, &Error{Upstream: c.cfg.Name, Err: err}
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, &Error{Upstream: c.cfg.Name, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, &Error{Upstream: c.cfg.Name, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return Response{}, &Error{Upstream: c.cfg.Name, StatusCode: httpResp.StatusCode}
	}
	return Response{StatusCode: httpResp.StatusCode, Body: respBody}, nil
}

// cacheKey builds the canonical cache key for a request. url.Values.Encode
// sorts query keys, so equivalent requests share one entry.
func (c *Client) cacheKey(req Request) string {
	sum := sha256.Sum256(req.Body)
	return strings.Join([]string{
		req.Method,
		c.cfg.BaseURL,
		req.Path,
		req.Query.Encode(),
		hex.EncodeToString(sum[:]),
	}, "\n")
}
