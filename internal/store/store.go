// Package store persists per-portal OAuth credentials. Each request looks up
// the credential for its portal, so there is no process-wide token state.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/config"
)

// ErrNotFound is returned when no credential exists for a portal.
var ErrNotFound = eris.New("store: credential not found")

// Credential is the OAuth token pair of one CRM portal.
type Credential struct {
	PortalID     string    `json:"portal_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store is a keyed credential store.
type Store interface {
	Get(ctx context.Context, portalID string) (*Credential, error)
	Put(ctx context.Context, cred Credential) error
	Delete(ctx context.Context, portalID string) error
	List(ctx context.Context) ([]Credential, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		s = NewMemory()
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func validate(cred Credential) error {
	if cred.PortalID == "" {
		return eris.New("store: portal id is required")
	}
	if cred.AccessToken == "" {
		return eris.New("store: access token is required")
	}
	return nil
}
