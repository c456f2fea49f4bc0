// Package floodapi is a client for the Environment Agency real-time
// flood-monitoring API.
package floodapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stefanpenner/flood-live/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://environment.data.gov.uk/flood-monitoring"
	DefaultTimeout = 10 * time.Second

	userAgent = "flood-live/1.0 (+https://environment.data.gov.uk/flood-monitoring/doc/reference)"
)

// errCallerGone marks a request abandoned because the caller's context ended.
// It says nothing about upstream health, so breakers ignore it.
var errCallerGone = errors.New("caller context done")

func newBreaker(endpoint string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "flood-monitoring/" + endpoint,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errCallerGone)
		},
	})
}

// Client provides access to the flood-monitoring endpoints
type Client struct {
	baseURL string
	client  *http.Client
	// One breaker per endpoint, so a failing station's readings never block
	// the catalog
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
	limiter  *rate.Limiter

	// Conditional request state, keyed by endpoint
	etags   map[string]string
	bodies  map[string]json.RawMessage
	etagsMu sync.RWMutex
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets the per-request timeout of the underlying http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithRateLimit bounds the rate of upstream requests. A zero limit disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a new flood-monitoring API client. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		etags:   make(map[string]string),
		bodies:  make(map[string]json.RawMessage),
		breakers: map[string]*gobreaker.CircuitBreaker[*http.Response]{
			"stations": newBreaker("stations"),
			"readings": newBreaker("readings"),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchStations fetches the full station list. Once the upstream has handed
// out an ETag the request is conditional, and a 304 replays the last body.
func (c *Client) FetchStations(ctx context.Context) ([]Station, error) {
	url := c.baseURL + "/id/stations"
	return fetchItems[Station](ctx, c, url, "stations", true)
}

// FetchReadings fetches the most recent readings of one station, sorted and
// limited by the upstream. stationID is normally the station's "@id" URI.
func (c *Client) FetchReadings(ctx context.Context, stationID string, limit int) ([]Reading, error) {
	if stationID == "" {
		return nil, &FetchError{Endpoint: "readings", Err: errors.New("station id is empty")}
	}

	url := fmt.Sprintf("%s/readings?_sorted&_limit=%d", c.StationURL(stationID), limit)
	return fetchItems[Reading](ctx, c, url, "readings", false)
}

// StationURL resolves a station reference into its absolute URI
func (c *Client) StationURL(stationID string) string {
	if strings.HasPrefix(stationID, "http://") || strings.HasPrefix(stationID, "https://") {
		return strings.TrimRight(stationID, "/")
	}
	return c.baseURL + "/id/stations/" + strings.Trim(stationID, "/")
}

// fetchItems is a generic helper that fetches a list envelope and decodes its
// items. conditional enables ETag revalidation for the endpoint.
func fetchItems[T any](ctx context.Context, c *Client, url string, endpoint string, conditional bool) ([]T, error) {
	start := time.Now()
	origin := metrics.ExtractOrigin(url)
	defer func() {
		metrics.UpstreamFetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	fail := func(errorType string, status int, err error) ([]T, error) {
		metrics.UpstreamFetchTotal.WithLabelValues(endpoint, "error").Inc()
		metrics.UpstreamErrorsByType.WithLabelValues(origin, errorType).Inc()
		return nil, &FetchError{Endpoint: endpoint, URL: url, StatusCode: status, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail("rate_limited", 0, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail("request", 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if conditional {
		c.etagsMu.RLock()
		if etag, exists := c.etags[endpoint]; exists && etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		c.etagsMu.RUnlock()
	}

	resp, err := c.breakers[endpoint].Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errCallerGone, doErr)
			}
			return nil, doErr
		}
		// 5xx trips the breaker, 4xx does not
		if r.StatusCode >= 500 {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		switch {
		case resp != nil:
			return fail("bad_status", resp.StatusCode, fmt.Errorf("API returned status %d", resp.StatusCode))
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return fail("breaker_open", 0, err)
		case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
			return fail("timeout", 0, fmt.Errorf("failed to fetch: %w", err))
		default:
			return fail("connection", 0, fmt.Errorf("failed to fetch: %w", err))
		}
	}

	var body json.RawMessage
	switch {
	case resp.StatusCode == http.StatusNotModified && conditional:
		c.etagsMu.RLock()
		body = c.bodies[endpoint]
		c.etagsMu.RUnlock()
		if body == nil {
			return fail("bad_status", resp.StatusCode, errors.New("API returned 304 without a cached body"))
		}
		metrics.UpstreamFetchTotal.WithLabelValues(endpoint, "unchanged").Inc()

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fail("bad_status", resp.StatusCode, fmt.Errorf("API returned status %d", resp.StatusCode))

	default:
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fail("decode", resp.StatusCode, fmt.Errorf("failed to decode JSON: %w", err))
		}
		if conditional {
			if etag := resp.Header.Get("ETag"); etag != "" {
				c.etagsMu.Lock()
				c.etags[endpoint] = etag
				c.bodies[endpoint] = body
				c.etagsMu.Unlock()
			}
		}
		metrics.UpstreamFetchTotal.WithLabelValues(endpoint, "success").Inc()
	}

	var envelope struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fail("decode", resp.StatusCode, fmt.Errorf("failed to decode items: %w", err))
	}

	return envelope.Items, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
