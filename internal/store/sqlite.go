package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS portal_credentials (
	portal_id     TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT 'bearer',
	expires_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, portalID string) (*Credential, error) {
	var c Credential
	err := s.db.QueryRowContext(ctx,
		`SELECT portal_id, access_token, refresh_token, token_type, expires_at, updated_at
		 FROM portal_credentials WHERE portal_id = ?`,
		portalID,
	).Scan(&c.PortalID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.ExpiresAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get credential %s", portalID)
	}
	return &c, nil
}

func (s *SQLiteStore) Put(ctx context.Context, cred Credential) error {
	if err := validate(cred); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portal_credentials (portal_id, access_token, refresh_token, token_type, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (portal_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		cred.PortalID, cred.AccessToken, cred.RefreshToken, cred.TokenType, cred.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put credential %s", cred.PortalID)
}

func (s *SQLiteStore) Delete(ctx context.Context, portalID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portal_credentials WHERE portal_id = ?`, portalID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete credential %s", portalID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT portal_id, access_token, refresh_token, token_type, expires_at, updated_at
		 FROM portal_credentials ORDER BY portal_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list credentials")
	}
	defer rows.Close() //nolint:errcheck

	var out []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.PortalID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.ExpiresAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan credential")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate credentials")
}
