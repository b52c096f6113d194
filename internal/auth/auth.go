// Package auth handles the HubSpot OAuth flow and hands out per-portal
// authenticated HTTP clients backed by the credential store.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/config"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/store"
)

// Manager exchanges authorization codes and refreshes tokens per portal.
type Manager struct {
	oauth   *oauth2.Config
	store   store.Store
	baseURL string
	http    *http.Client

	mu sync.Mutex // serializes refreshes
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for token calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) {
		m.http = hc
	}
}

// NewManager creates a Manager for the HubSpot app described by cfg.
func NewManager(cfg config.HubSpotConfig, s store.Store, opts ...Option) *Manager {
	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.BaseURL + "/oauth/v1/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:   s,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AuthCodeURL returns the consent URL the installing user is sent to.
func (m *Manager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens, resolves the portal
// they belong to, and stores them. It returns the portal ID.
func (m *Manager) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", eris.New("auth: authorization code is required")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.http)

	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return "", eris.Wrap(err, "auth: exchange code")
	}

	portalID, err := m.portalID(ctx, tok.AccessToken)
	if err != nil {
		return "", err
	}

	if err := m.store.Put(ctx, credentialFromToken(portalID, tok)); err != nil {
		return "", eris.Wrap(err, "auth: store credential")
	}
	zap.L().Info("auth: portal connected", zap.String("portal_id", portalID))
	return portalID, nil
}

// tokenInfo is the access-token metadata response.
type tokenInfo struct {
	HubID int64  `json:"hub_id"`
	User  string `json:"user"`
}

func (m *Manager) portalID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/oauth/v1/access-tokens/"+accessToken, nil)
	if err != nil {
		return "", eris.Wrap(err, "auth: build token info request")
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "auth: token info")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("auth: token info status %d", resp.StatusCode)
	}
	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", eris.Wrap(err, "auth: decode token info")
	}
	if info.HubID == 0 {
		return "", eris.New("auth: token info has no hub id")
	}
	return strconv.FormatInt(info.HubID, 10), nil
}

// TokenSource returns a token source for portalID that refreshes expired
// tokens and writes refreshed tokens back to the store.
func (m *Manager) TokenSource(ctx context.Context, portalID string) (oauth2.TokenSource, error) {
	cred, err := m.store.Get(ctx, portalID)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("auth: load credential %s", portalID))
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.http)
	return &persistingSource{
		m:        m,
		ctx:      ctx,
		portalID: portalID,
		last:     cred.AccessToken,
		base:     m.oauth.TokenSource(ctx, tokenFromCredential(cred)),
	}, nil
}

// Client returns an HTTP client that authenticates as portalID.
func (m *Manager) Client(ctx context.Context, portalID string) (*http.Client, error) {
	ts, err := m.TokenSource(ctx, portalID)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// StaticClient returns an HTTP client for a private-app access token.
func StaticClient(ctx context.Context, accessToken string) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

// persistingSource stores a token whenever the wrapped source refreshes it.
type persistingSource struct {
	m        *Manager
	ctx      context.Context
	portalID string
	base     oauth2.TokenSource
	last     string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("auth: refresh token for portal %s", s.portalID))
	}
	if tok.AccessToken != s.last {
		if err := s.m.store.Put(s.ctx, credentialFromToken(s.portalID, tok)); err != nil {
			zap.L().Error("auth: persist refreshed token",
				zap.String("portal_id", s.portalID),
				zap.Error(err),
			)
		} else {
			zap.L().Debug("auth: token refreshed", zap.String("portal_id", s.portalID))
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

func credentialFromToken(portalID string, tok *oauth2.Token) store.Credential {
	return store.Credential{
		PortalID:     portalID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
}

func tokenFromCredential(c *store.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.ExpiresAt,
	}
}
