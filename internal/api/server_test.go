package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/analytics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/auth"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/config"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/crm"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/metrics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/resilience"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/store"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/syncer"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/webhook"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	err error
}

func (f *fakeSource) ListJobs(context.Context) ([]model.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Job{
		{ID: "J-1", Title: "Nurse", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "J-2", Title: "Welder", CreatedAt: "2024-01-01T00:00:00Z"},
	}, nil
}

func (f *fakeSource) ListPlacements(context.Context) ([]model.Placement, error) {
	return []model.Placement{
		{ID: "P-1", JobID: "J-1", StartDate: "2024-01-11T00:00:00Z", Revenue: model.Float(20000), Margin: model.Float(5000), ServiceLine: "Healthcare"},
	}, nil
}

func (f *fakeSource) GetPlacement(context.Context, string) (*model.Placement, error) {
	return nil, errors.New("not implemented")
}

type memDeals struct {
	mu    sync.Mutex
	deals map[string]crm.Properties
}

func (m *memDeals) Find(_ context.Context, placementID string) (*crm.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.deals[placementID]; ok {
		return &crm.Deal{ID: placementID, Properties: p}, nil
	}
	return nil, nil
}

func (m *memDeals) Create(_ context.Context, props crm.Properties) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals[props[crm.PropPlacementID]] = props
	return props[crm.PropPlacementID], nil
}

func (m *memDeals) Update(_ context.Context, id string, props crm.Properties) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals[id] = props
	return nil
}

type harness struct {
	srv      *Server
	launcher *syncer.Launcher
	deals    *memDeals
	builds   map[string]int
	mu       sync.Mutex
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()
	h := &harness{deals: &memDeals{deals: make(map[string]crm.Properties)}, builds: make(map[string]int)}
	src := &fakeSource{}
	h.launcher = syncer.NewLauncher(func(_ context.Context, portalID string) (*syncer.Orchestrator, error) {
		h.mu.Lock()
		h.builds[portalID]++
		h.mu.Unlock()
		return syncer.New(src, h.deals, syncer.WithPortal(portalID),
			syncer.WithRetry(resilience.RetryConfig{MaxAttempts: 1})), nil
	}, time.Minute)

	deps := Deps{
		Engine:   analytics.New(analytics.WithClock(func() time.Time { return fixedNow })),
		Source:   src,
		Verifier: webhook.NewVerifier("app-secret", "https://attribution.example.com"),
		Launcher: h.launcher,
		Metrics:  metrics.New(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.srv = New(deps)
	return h
}

func (h *harness) do(method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/health", nil, nil)

	rec := h.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `revattr_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`)
}

func TestNotFound(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode(t, rec)["error"])
}

func TestDashboard(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		report string
		key    string
	}{
		{"attribution", "serviceLines"},
		{"velocity", "trend"},
		{"roi", "costBreakdown"},
		{"executive", "overview"},
	}
	for _, tt := range tests {
		t.Run(tt.report, func(t *testing.T) {
			rec := h.do(http.MethodGet, "/api/dashboard/"+tt.report+"?portalId=4242", nil, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, decode(t, rec), tt.key)
		})
	}
}

func TestDashboard_ExecutiveValues(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/dashboard/executive?portalId=4242", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report analytics.ExecutiveReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Overview.TotalJobs)
	assert.Equal(t, 1, report.Overview.TotalPlacements)
	assert.Equal(t, 50, report.Overview.FillRate)
	assert.Equal(t, 80, report.Velocity.Summary.OverallAverageVelocity)
	assert.True(t, fixedNow.Equal(report.Overview.GeneratedAt))
}

func TestDashboard_Errors(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/dashboard/funnel?portalId=1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/dashboard/roi", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "portalId is optional")
	assert.Contains(t, decode(t, rec), "summary")

	failing := newHarness(t, func(d *Deps) { d.Source = &fakeSource{err: errors.New("trackerrms: status 503")} })
	rec = failing.do(http.MethodGet, "/api/dashboard/roi?portalId=1", nil, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	unconfigured := newHarness(t, func(d *Deps) { d.Source = nil })
	rec = unconfigured.do(http.MethodGet, "/api/dashboard/roi?portalId=1", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScore(t *testing.T) {
	h := newHarness(t, nil)
	body := `{
		"jobs": [{"id": "J-1", "createdAt": "2024-01-01T00:00:00Z"}],
		"placements": [
			{"id": "P-1", "jobId": "J-1", "startDate": "2024-01-11T00:00:00Z", "revenue": 20000, "margin": 5000,
			 "attribution": {"marketingCost": 1000, "salesCost": 1000}},
			{"id": "P-2"}
		]
	}`
	rec := h.do(http.MethodPost, "/api/score", strings.NewReader(body), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Placements, 2)
	require.NotNil(t, resp.Placements[0].OverallScore)
	assert.Equal(t, 80, *resp.Placements[0].VelocityScore)
	assert.Equal(t, 100, *resp.Placements[0].ROIScore)
	assert.Equal(t, 92, *resp.Placements[0].OverallScore)
	assert.Equal(t, "defaulted", string(resp.Scores[1].Velocity.Status))
	assert.Equal(t, 1, resp.Report.Overview.TotalJobs)
	assert.Equal(t, 2, resp.Report.Overview.TotalPlacements)
}

func TestScore_BadRequests(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/score", strings.NewReader("{"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/score", strings.NewReader(`{"placements":[{"revenue":1}]}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "placements[0].id is required", decode(t, rec)["error"])
}

func TestStartSync(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/sync?portalId=4242", nil, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "4242", decode(t, rec)["portalId"])
	h.launcher.Wait()

	assert.Len(t, h.deals.deals, 1)

	rec = h.do(http.MethodGet, "/api/sync/status?portalId=4242", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["created"])

	rec = h.do(http.MethodGet, "/api/sync/status?portalId=9", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/sync", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	off := newHarness(t, func(d *Deps) { d.Launcher = nil })
	rec = off.do(http.MethodPost, "/api/sync?portalId=1", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHubSpotWebhook(t *testing.T) {
	h := newHarness(t, nil)
	body := `[{"eventId":1,"portalId":4242,"subscriptionType":"deal.propertyChange"},{"eventId":2,"portalId":4242,"subscriptionType":"deal.creation"}]`

	header := http.Header{}
	header.Set(webhook.HeaderSignatureV1, webhook.SignV1("app-secret", []byte(body)))
	rec := h.do(http.MethodPost, "/webhooks/hubspot", strings.NewReader(body), header)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	h.launcher.Wait()

	h.mu.Lock()
	assert.Equal(t, 1, h.builds["4242"])
	h.mu.Unlock()

	metricsRec := h.do(http.MethodGet, "/metrics", nil, nil)
	assert.Contains(t, metricsRec.Body.String(), `revattr_webhook_events_total{type="deal.creation"} 1`)
}

func TestHubSpotWebhook_V3(t *testing.T) {
	h := newHarness(t, nil)
	body := `[{"eventId":1,"portalId":7,"subscriptionType":"deal.creation"}]`
	ts := fmt.Sprint(time.Now().UnixMilli())

	header := http.Header{}
	header.Set(webhook.HeaderTimestamp, ts)
	header.Set(webhook.HeaderSignatureV3, webhook.SignV3("app-secret", http.MethodPost,
		"https://attribution.example.com/webhooks/hubspot", []byte(body), ts))
	rec := h.do(http.MethodPost, "/webhooks/hubspot", strings.NewReader(body), header)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	h.launcher.Wait()
}

func TestHubSpotWebhook_Rejected(t *testing.T) {
	h := newHarness(t, nil)
	body := `[{"portalId":1}]`

	rec := h.do(http.MethodPost, "/webhooks/hubspot", strings.NewReader(body), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid signature", decode(t, rec)["error"])

	header := http.Header{}
	header.Set(webhook.HeaderTimestamp, fmt.Sprint(time.Now().Add(-time.Hour).UnixMilli()))
	header.Set(webhook.HeaderSignatureV3, "whatever")
	rec = h.do(http.MethodPost, "/webhooks/hubspot", strings.NewReader(body), header)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "stale timestamp", decode(t, rec)["error"])

	bad := `{"not":"array"}`
	header = http.Header{}
	header.Set(webhook.HeaderSignatureV1, webhook.SignV1("app-secret", []byte(bad)))
	rec = h.do(http.MethodPost, "/webhooks/hubspot", strings.NewReader(bad), header)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.mu.Lock()
	assert.Empty(t, h.builds)
	h.mu.Unlock()
}

func TestOAuth_NotConfigured(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/oauth/authorize", nil, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/oauth/callback?code=x", nil, nil).Code)
}

func TestOAuth_Flow(t *testing.T) {
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/oauth/v1/token":
			fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":1800}`)
		case strings.HasPrefix(r.URL.Path, "/oauth/v1/access-tokens/"):
			fmt.Fprint(w, `{"hub_id":4242}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer hub.Close()

	creds := store.NewMemory()
	mgr := auth.NewManager(config.HubSpotConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/oauth/callback",
		AuthURL:      "https://app.hubspot.test/oauth/authorize",
		BaseURL:      hub.URL,
	}, creds, auth.WithHTTPClient(hub.Client()))
	h := newHarness(t, func(d *Deps) { d.Auth = mgr })

	rec := h.do(http.MethodGet, "/oauth/authorize", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://app.hubspot.test/oauth/authorize?"))

	var state *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Contains(t, rec.Header().Get("Location"), "state="+state.Value)

	// Wrong state is rejected.
	header := http.Header{}
	header.Set("Cookie", stateCookie+"="+state.Value)
	rec = h.do(http.MethodGet, "/oauth/callback?code=abc&state=forged", nil, header)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/oauth/callback?code=abc&state="+state.Value, nil, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "4242", body["portalId"])
	assert.Equal(t, true, body["syncStarted"])
	h.launcher.Wait()

	cred, err := creds.Get(context.Background(), "4242")
	require.NoError(t, err)
	assert.Equal(t, "at", cred.AccessToken)
}

func TestOAuth_Denied(t *testing.T) {
	mgr := auth.NewManager(config.HubSpotConfig{AuthURL: "https://app.hubspot.test/oauth/authorize", BaseURL: "http://unused"}, store.NewMemory())
	h := newHarness(t, func(d *Deps) { d.Auth = mgr })

	rec := h.do(http.MethodGet, "/oauth/callback?error=access_denied", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "access_denied")
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.AllowedOrigins = []string{"https://app.example.com"} })

	header := http.Header{}
	header.Set("Origin", "https://app.example.com")
	header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := h.do(http.MethodOptions, "/api/score", nil, header)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	header.Set("Origin", "https://evil.example.com")
	rec = h.do(http.MethodOptions, "/api/score", nil, header)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
