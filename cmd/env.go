package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/analytics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/auth"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/config"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/crm"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/metrics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/resilience"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/store"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/syncer"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/hubspot"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/salesforce"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/trackerrms"
)

// env holds the shared collaborators of the networked commands.
type env struct {
	Store   store.Store
	Source  trackerrms.Client
	Auth    *auth.Manager
	Deals   crm.Factory
	Metrics *metrics.Manager
	Engine  *analytics.Engine
}

func (e *env) Close() {
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}

func weights(c *config.Config) scoring.Weights {
	return scoring.Weights{Velocity: c.Scoring.VelocityWeight, ROI: c.Scoring.ROIWeight}
}

func retryConfig(c *config.Config) resilience.RetryConfig {
	s := c.Sync
	return resilience.FromSettings(s.MaxAttempts, s.InitialBackoffMs, s.MaxBackoffMs, s.Multiplier)
}

// initEnv opens the credential store and builds the vendor clients.
func initEnv(ctx context.Context, c *config.Config) (*env, error) {
	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open credential store")
	}

	e := &env{
		Store:   st,
		Source:  initSource(c),
		Metrics: metrics.New(metrics.WithProcessMetrics()),
		Engine:  analytics.New(analytics.WithWeights(weights(c))),
	}
	if c.HubSpot.ClientID != "" && c.HubSpot.ClientSecret != "" {
		e.Auth = auth.NewManager(c.HubSpot, st)
	}

	deals, err := initDeals(c, e.Auth)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Deals = deals
	return e, nil
}

func initSource(c *config.Config) trackerrms.Client {
	if c.TrackerRMS.APIKey == "" {
		return nil
	}
	return trackerrms.NewClient(c.TrackerRMS.APIKey,
		trackerrms.WithBaseURL(c.TrackerRMS.BaseURL),
		trackerrms.WithPageSize(c.TrackerRMS.PageSize),
		trackerrms.WithRateLimit(c.TrackerRMS.RateLimit),
		trackerrms.WithRetry(retryConfig(c)),
	)
}

// initDeals returns the per-portal deal factory of the configured CRM.
func initDeals(c *config.Config, mgr *auth.Manager) (crm.Factory, error) {
	switch c.CRM.Provider {
	case "", "hubspot":
		// HubSpot rate limits apply per app.
		limiter := rate.NewLimiter(rate.Limit(max(c.HubSpot.RateLimit, 1)), max(int(c.HubSpot.RateLimit), 1))
		return func(ctx context.Context, portalID string) (crm.Deals, error) {
			var hc *http.Client
			switch {
			case c.HubSpot.AccessToken != "":
				hc = auth.StaticClient(ctx, c.HubSpot.AccessToken)
			case mgr != nil:
				var err error
				if hc, err = mgr.Client(ctx, portalID); err != nil {
					return nil, err
				}
			default:
				return nil, eris.New("hubspot: no access token or oauth app configured")
			}
			hc.Timeout = 30 * time.Second
			return crm.NewHubSpot(hubspot.NewClient(hc,
				hubspot.WithBaseURL(c.HubSpot.BaseURL),
				hubspot.WithLimiter(limiter),
			)), nil
		}, nil
	case "salesforce":
		pem, err := os.ReadFile(c.Salesforce.KeyPath)
		if err != nil {
			return nil, eris.Wrap(err, "read salesforce JWT private key")
		}
		sf, err := salesforce.Connect(salesforce.Creds{
			LoginURL:   c.Salesforce.LoginURL,
			Username:   c.Salesforce.Username,
			ClientID:   c.Salesforce.ClientID,
			PrivateKey: string(pem),
		}, salesforce.WithRateLimit(c.Salesforce.RateLimit))
		if err != nil {
			return nil, err
		}
		deals := crm.NewSalesforce(sf)
		return func(context.Context, string) (crm.Deals, error) { return deals, nil }, nil
	default:
		return nil, eris.Errorf("unsupported crm provider %q", c.CRM.Provider)
	}
}

// builder creates the per-portal sync orchestrator.
func (e *env) builder(c *config.Config) syncer.Builder {
	return func(ctx context.Context, portalID string) (*syncer.Orchestrator, error) {
		if e.Source == nil {
			return nil, eris.New("trackerrms api key is not configured")
		}
		deals, err := e.Deals(ctx, portalID)
		if err != nil {
			return nil, eris.Wrapf(err, "crm for portal %s", portalID)
		}
		return syncer.New(e.Source, deals,
			syncer.WithPortal(portalID),
			syncer.WithWeights(weights(c)),
			syncer.WithConcurrency(c.Sync.Concurrency),
			syncer.WithRetry(retryConfig(c)),
			syncer.WithMetrics(e.Metrics),
		), nil
	}
}
