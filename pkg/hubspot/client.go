// Package hubspot provides a client for the HubSpot CRM v3 deals API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/resilience"
)

const dealsPath = "/crm/v3/objects/deals"

// Client defines the HubSpot deal operations.
type Client interface {
	// SearchDeals returns deals whose property equals value.
	SearchDeals(ctx context.Context, property, value string) ([]Deal, error)
	// CreateDeal creates a deal and returns it.
	CreateDeal(ctx context.Context, props map[string]string) (*Deal, error)
	// UpdateDeal patches the properties of deal id.
	UpdateDeal(ctx context.Context, id string, props map[string]string) (*Deal, error)
}

// Deal is a CRM deal object.
type Deal struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  string            `json:"createdAt,omitempty"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
	Archived   bool              `json:"archived,omitempty"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Limit        int           `json:"limit"`
}

type searchResponse struct {
	Total   int    `json:"total"`
	Results []Deal `json:"results"`
}

type propertiesBody struct {
	Properties map[string]string `json:"properties"`
}

// Option configures the HubSpot client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
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

// WithLimiter shares a limiter across clients of the same app.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a HubSpot client. hc must attach the portal's bearer
// token, as the clients returned by the auth package do.
func NewClient(hc *http.Client, opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.hubapi.com",
		http:    hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchDeals(ctx context.Context, property, value string) ([]Deal, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{PropertyName: property, Operator: "EQ", Value: value}}}},
		Limit:        10,
	}
	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, dealsPath+"/search", req, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("hubspot: search deals %s=%s", property, value))
	}
	return resp.Results, nil
}

func (c *httpClient) CreateDeal(ctx context.Context, props map[string]string) (*Deal, error) {
	var d Deal
	if err := c.do(ctx, http.MethodPost, dealsPath, propertiesBody{Properties: props}, &d); err != nil {
		return nil, eris.Wrap(err, "hubspot: create deal")
	}
	return &d, nil
}

func (c *httpClient) UpdateDeal(ctx context.Context, id string, props map[string]string) (*Deal, error) {
	if id == "" {
		return nil, eris.New("hubspot: deal id is required")
	}
	var d Deal
	if err := c.do(ctx, http.MethodPatch, dealsPath+"/"+url.PathEscape(id), propertiesBody{Properties: props}, &d); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("hubspot: update deal %s", id))
	}
	return &d, nil
}

// do sends one JSON request. Non-2xx responses become resilience status
// errors so callers can decide whether to retry.
func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resilience.StatusError("hubspot", resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
