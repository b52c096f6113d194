package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS portal_credentials (
	portal_id     TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT 'bearer',
	expires_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, portalID string) (*Credential, error) {
	var c Credential
	err := s.pool.QueryRow(ctx,
		`SELECT portal_id, access_token, refresh_token, token_type, expires_at, updated_at FROM portal_credentials WHERE portal_id = $1`,
		portalID,
	).Scan(&c.PortalID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.ExpiresAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get credential %s", portalID)
	}
	return &c, nil
}

func (s *PostgresStore) Put(ctx context.Context, cred Credential) error {
	if err := validate(cred); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO portal_credentials (portal_id, access_token, refresh_token, token_type, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (portal_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()`,
		cred.PortalID, cred.AccessToken, cred.RefreshToken, cred.TokenType, cred.ExpiresAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: put credential %s", cred.PortalID)
}

func (s *PostgresStore) Delete(ctx context.Context, portalID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM portal_credentials WHERE portal_id = $1`, portalID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete credential %s", portalID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Credential, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT portal_id, access_token, refresh_token, token_type, expires_at, updated_at FROM portal_credentials ORDER BY portal_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list credentials")
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.PortalID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.ExpiresAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan credential")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate credentials")
}
