// Package trackerrms provides a read-only client for the TrackerRMS jobs and
// placements API.
package trackerrms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/resilience"
)

// APIKeyHeader carries the account API key.
const APIKeyHeader = "X-Api-Key"

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 100

// Client defines the TrackerRMS operations used by the sync.
type Client interface {
	// ListJobs returns every job, following pagination.
	ListJobs(ctx context.Context) ([]model.Job, error)
	// ListPlacements returns every placement, following pagination.
	ListPlacements(ctx context.Context) ([]model.Placement, error)
	// GetPlacement returns one placement by id.
	GetPlacement(ctx context.Context, id string) (*model.Placement, error)
}

// Option configures the TrackerRMS client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPageSize sets the page size for list calls.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// NewClient creates a TrackerRMS client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  "https://evoapi.tracker-rms.com/api/v1",
		pageSize: DefaultPageSize,
		http:     &http.Client{Timeout: 30 * time.Second},
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("trackerrms", "request")
	}
	return c
}

// page is one page of a list response.
type page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

func (c *httpClient) ListJobs(ctx context.Context) ([]model.Job, error) {
	recs, err := listAll[jobRecord](ctx, c, "/jobs")
	if err != nil {
		return nil, eris.Wrap(err, "trackerrms: list jobs")
	}
	jobs := make([]model.Job, len(recs))
	for i, r := range recs {
		jobs[i] = r.toModel()
	}
	return jobs, nil
}

func (c *httpClient) ListPlacements(ctx context.Context) ([]model.Placement, error) {
	recs, err := listAll[placementRecord](ctx, c, "/placements")
	if err != nil {
		return nil, eris.Wrap(err, "trackerrms: list placements")
	}
	out := make([]model.Placement, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

func (c *httpClient) GetPlacement(ctx context.Context, id string) (*model.Placement, error) {
	if id == "" {
		return nil, eris.New("trackerrms: placement id is required")
	}
	body, err := c.get(ctx, "/placements/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("trackerrms: get placement %s", id))
	}
	var rec placementRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("trackerrms: decode placement %s", id))
	}
	p := rec.toModel()
	return &p, nil
}

// listAll fetches pages until one comes back shorter than the page size.
func listAll[T any](ctx context.Context, c *httpClient, path string) ([]T, error) {
	var all []T
	for n := 1; ; n++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(n))
		q.Set("pageSize", strconv.Itoa(c.pageSize))

		body, err := c.get(ctx, path, q)
		if err != nil {
			return nil, err
		}
		var pg page[T]
		if err := json.Unmarshal(body, &pg); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("decode page %d", n))
		}
		all = append(all, pg.Data...)
		if len(pg.Data) < c.pageSize {
			return all, nil
		}
	}
}

// get performs a rate-limited GET with retries on transient failures.
func (c *httpClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "rate limit")
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, eris.Wrap(err, "build request")
		}
		req.Header.Set(APIKeyHeader, c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "read body")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resilience.StatusError("trackerrms", resp.StatusCode, body)
		}
		return body, nil
	})
}
