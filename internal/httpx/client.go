// Package httpx implements the resilient HTTP substrate:
// one logical operation, DoRequest, with proxy selection, per-proxy health
// reporting, user-agent rotation, retry with exponential backoff plus
// jitter, and independently enforced connect/read/total deadlines. It is a
// shared substrate every strategy uses. It does not itself screen target
// URLs for private or loopback addresses; that check runs only on the
// readability content-fetch path in the strategy package.
package httpx

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	obsmetrics "newsfeed-engine/internal/observability/metrics"
	"newsfeed-engine/internal/observability/tracing"
	"newsfeed-engine/internal/resilience/circuitbreaker"
	"newsfeed-engine/pkg/ratelimit"
)

// ResponseKind tells DoRequest how to interpret and buffer the response body.
type ResponseKind string

const (
	Text  ResponseKind = "TEXT"
	JSON  ResponseKind = "JSON"
	Bytes ResponseKind = "BYTES"
)

// ProxyProvider is the narrow slice of proxy.Manager the substrate needs.
// Satisfied by *proxy.Manager; tests inject a fake.
type ProxyProvider interface {
	Get(ctx context.Context, group string) (ProxySnapshot, bool)
	Report(id string, success bool, elapsed time.Duration)
}

// ProxySnapshot is the subset of proxy.Snapshot the substrate consumes. It is
// redeclared here (rather than imported) so httpx has no compile-time
// dependency on the proxy package's internal layout; an adapter in the
// registry wires the two together.
type ProxySnapshot struct {
	ID  string
	URL string
}

// Options configures one DoRequest call.
type Options struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte

	ResponseKind ResponseKind

	Timeout            time.Duration
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration
	InsecureSkipVerify bool

	// Proxy selection. Either ProxyURL is supplied directly, or NeedsProxy +
	// SourceID + ProxyGroup ask the substrate to consult a ProxyProvider.
	ProxyURL             string
	NeedsProxy           bool
	ProxyFallbackAllowed bool
	SourceID             string
	ProxyGroup           string

	UserAgent string
}

// Response is the normalized result of a successful DoRequest.
type Response struct {
	StatusCode int
	Header     http.Header
	Text       string
	JSON       gjson.Result
	Bytes      []byte
	Attempts   int
	UsedProxy  bool
}

// Client is the shared HTTP substrate. One Client should be constructed per
// execution context; the worker process constructs one at startup
// since it runs a single scheduler loop. Underlying http.Clients are built
// once per network profile and reused across every attempt and request, so
// connection pools survive retries instead of being torn down with a
// throwaway transport each time.
type Client struct {
	proxies  ProxyProvider
	ua       uaRotator
	breaker  *circuitbreaker.CircuitBreaker
	throttle *hostThrottle
	logger   *slog.Logger
	pool     clientPool
}

// clientProfile identifies one reusable http.Client: the proxy it dials
// through plus the deadline/TLS posture. The source table yields a small,
// bounded set of these.
type clientProfile struct {
	proxyURL string
	insecure bool
	connect  time.Duration
	read     time.Duration
	total    time.Duration
}

type clientPool struct {
	mu      sync.Mutex
	clients map[clientProfile]*http.Client
}

// maxPooledClients backstops against an unbounded profile set (e.g. a
// rotating proxy list); past it the pool is dropped and rebuilt.
const maxPooledClients = 64

func (p *clientPool) get(profile clientProfile) (*http.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[profile]; ok {
		return client, nil
	}

	transport := &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: profile.insecure}, //nolint:gosec // opt-in per source descriptor
		DialContext:           (&net.Dialer{Timeout: profile.connect}).DialContext,
		ResponseHeaderTimeout: profile.read,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	if profile.proxyURL != "" {
		pu, err := url.Parse(profile.proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(pu)
	}

	if p.clients == nil || len(p.clients) >= maxPooledClients {
		p.clients = make(map[clientProfile]*http.Client)
	}
	client := &http.Client{Transport: transport, Timeout: profile.total}
	p.clients[profile] = client
	return client, nil
}

// ClientOption configures a Client at construction time.
type ClientOption func(*clientConfig)

type clientConfig struct {
	throttleCfg     *ratelimit.RateLimitConfig
	throttleMetrics ratelimit.RateLimitMetrics
}

// WithThrottleConfig overrides the outbound throttle configuration (defaults
// come from ratelimit.DefaultConfig).
func WithThrottleConfig(cfg *ratelimit.RateLimitConfig) ClientOption {
	return func(c *clientConfig) { c.throttleCfg = cfg }
}

// WithThrottleMetrics mirrors throttle outcomes into the given recorder
// (defaults to the no-op recorder).
func WithThrottleMetrics(m ratelimit.RateLimitMetrics) ClientOption {
	return func(c *clientConfig) { c.throttleMetrics = m }
}

// NewClient constructs a Client. proxies may be nil to disable proxy
// selection entirely (DoRequest then only honors an explicit ProxyURL).
func NewClient(proxies ProxyProvider, opts ...ClientOption) *Client {
	var cfg clientConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		proxies:  proxies,
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig("httpx")),
		throttle: newHostThrottle(cfg.throttleCfg, cfg.throttleMetrics),
		logger:   slog.Default(),
	}
}

func defaultOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = opts.Timeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	return opts
}

// DoRequest executes one logical request, retrying retryable failures with
// exponential backoff plus jitter (base * 2^(attempt-1) * rand(0.5, 1.5)).
// Non-retryable failures (4xx except 429, malformed JSON when JSON was
// requested) return immediately.
func (c *Client) DoRequest(ctx context.Context, opts Options) (*Response, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "httpx.DoRequest")
	defer span.End()

	opts = defaultOptions(opts)

	proxyURL, proxyID, usingManagedProxy := c.resolveProxy(ctx, opts)
	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		attempts = attempt

		c.throttle.wait(ctx, opts.URL)

		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		attemptStart := time.Now()
		resp, err := c.attempt(attemptCtx, opts, proxyURL)
		cancel()

		if proxyID != "" {
			c.proxies.Report(proxyID, err == nil, time.Since(attemptStart))
		}

		if err == nil {
			resp.Attempts = attempts
			resp.UsedProxy = proxyURL != ""
			return resp, nil
		}

		lastErr = err
		reqErr, ok := err.(*RequestError)
		if !ok || !reqErr.Retryable() {
			return nil, err
		}

		// Drop the proxy after the first failed attempt if fallback is
		// allowed; subsequent attempts go direct.
		if usingManagedProxy && opts.ProxyFallbackAllowed && proxyURL != "" {
			c.logger.Warn("httpx: proxy attempt failed, falling back to direct",
				slog.String("source_id", opts.SourceID), slog.Any("error", err))
			proxyURL = ""
			proxyID = ""
			usingManagedProxy = false
		}

		if attempt == opts.MaxRetries {
			break
		}

		delay := backoffDelay(opts.RetryBaseDelay, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("httpx: retry aborted: %w", ctx.Err())
		}
	}

	if reqErr, ok := lastErr.(*RequestError); ok {
		reqErr.Attempts = attempts
		return nil, reqErr
	}
	return nil, &RequestError{Kind: KindTransport, StatusCode: 0, Attempts: attempts, Err: lastErr}
}

// backoffDelay implements base * 2^(attempt-1) * rand(0.5, 1.5).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	mult := 1 << uint(attempt-1)
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(base) * float64(mult) * jitter)
}

func (c *Client) resolveProxy(ctx context.Context, opts Options) (proxyURL, proxyID string, managed bool) {
	if opts.ProxyURL != "" {
		return opts.ProxyURL, "", false
	}

	needsProxy := opts.NeedsProxy
	if u, err := url.Parse(opts.URL); err == nil && ImpliesProxy(u.Host) {
		needsProxy = true
	}
	if !needsProxy || c.proxies == nil {
		return "", "", false
	}

	snap, ok := c.proxies.Get(ctx, opts.ProxyGroup)
	if !ok {
		return "", "", false
	}
	return snap.URL, snap.ID, true
}

func (c *Client) attempt(ctx context.Context, opts Options, proxyURL string) (*Response, error) {
	// The three deadlines are enforced independently: connect via the
	// pooled transport's dialer, read via its response-header timeout,
	// total via the attempt context; whichever elapses first terminates
	// the attempt.
	httpClient, err := c.pool.get(clientProfile{
		proxyURL: proxyURL,
		insecure: opts.InsecureSkipVerify,
		connect:  opts.ConnectTimeout,
		read:     opts.ReadTimeout,
		total:    opts.Timeout,
	})
	if err != nil {
		return nil, &RequestError{Kind: KindProxy, Attempts: 1, Err: err}
	}

	reqURL, err := buildURL(opts.URL, opts.Query)
	if err != nil {
		return nil, &RequestError{Kind: KindClient, Attempts: 1, Err: err}
	}

	var bodyReader io.Reader
	if len(opts.Body) > 0 {
		bodyReader = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, reqURL, bodyReader)
	if err != nil {
		return nil, &RequestError{Kind: KindClient, Attempts: 1, Err: err}
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = c.ua.next()
	}
	req.Header.Set("User-Agent", ua)

	attemptStart := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return httpClient.Do(req)
	})
	if err != nil {
		kind := KindTransport
		if proxyURL != "" {
			kind = KindProxy
		}
		obsmetrics.RecordHTTPRequest(opts.Method, req.URL.Host, "error", time.Since(attemptStart), len(opts.Body), 0)
		return nil, &RequestError{Kind: kind, Attempts: 1, Err: err}
	}
	resp := result.(*http.Response)
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		obsmetrics.RecordHTTPRequest(opts.Method, req.URL.Host, strconv.Itoa(resp.StatusCode), time.Since(attemptStart), len(opts.Body), 0)
		return nil, &RequestError{Kind: KindTransport, StatusCode: resp.StatusCode, Attempts: 1, Err: err}
	}
	obsmetrics.RecordHTTPRequest(opts.Method, req.URL.Host, strconv.Itoa(resp.StatusCode), time.Since(attemptStart), len(opts.Body), len(body))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		kind := KindTransport
		if proxyURL != "" {
			kind = KindProxy
		}
		return nil, &RequestError{Kind: kind, StatusCode: resp.StatusCode, Attempts: 1, Err: fmt.Errorf("retryable status")}
	}
	if resp.StatusCode >= 400 {
		return nil, &RequestError{Kind: KindClient, StatusCode: resp.StatusCode, Attempts: 1, Err: fmt.Errorf("client error")}
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	switch opts.ResponseKind {
	case JSON:
		if !json.Valid(body) {
			return nil, &RequestError{Kind: KindProtocol, StatusCode: resp.StatusCode, Attempts: 1, Err: fmt.Errorf("malformed JSON response")}
		}
		out.JSON = gjson.ParseBytes(body)
		out.Text = string(body)
	case Bytes:
		out.Bytes = body
	default:
		out.Text = string(body)
	}

	return out, nil
}

func buildURL(raw string, query map[string]string) (string, error) {
	if len(query) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BatchResult is one entry of DoBatch's per-URL outcome.
type BatchResult struct {
	URL      string
	Response *Response
	Err      error
}

// DoBatch runs DoRequest over urls bounded by a semaphore of size
// concurrencyLimit. It never fails the whole batch: every URL gets its own
// BatchResult.
func (c *Client) DoBatch(ctx context.Context, urls []string, concurrencyLimit int, optsTemplate Options) []BatchResult {
	if concurrencyLimit <= 0 {
		concurrencyLimit = 1
	}
	results := make([]BatchResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	sem := make(chan struct{}, concurrencyLimit)
	var wg sync.WaitGroup
	for i, u := range urls {
		i, u := i, u
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			opts := optsTemplate
			opts.URL = u
			resp, err := c.DoRequest(ctx, opts)
			results[i] = BatchResult{URL: u, Response: resp, Err: err}
		}()
	}

	wg.Wait()
	return results
}
