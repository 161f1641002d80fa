package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/pkg/metrics"
)

const (
	schemaName         = "calmate"
	defaultBusyTimeout = 5 * time.Second
)

// migrations[i] moves the schema from version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS sessions_user ON sessions (user_id)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at INTEGER NOT NULL DEFAULT 0,
			scope TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, provider_id)
		)`,
	},
	{
		`ALTER TABLE accounts ADD COLUMN updated_at INTEGER NOT NULL DEFAULT 0`,
	},
}

// SQLiteStore implements Store on a sqlite database file.
type SQLiteStore struct {
	db          *sql.DB
	now         func() time.Time
	busyTimeout time.Duration
	closed      atomic.Bool
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{now: time.Now, busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(s)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	s.db = db
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Version returns the applied schema version.
func (s *SQLiteStore) Version(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM db_version WHERE name = ?`, schemaName).Scan(&v)
	return v, err
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	version, err := s.Version(ctx)
	if err != nil {
		if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER
		)`); err != nil {
			return fmt.Errorf("create db_version: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO db_version (name, version) VALUES (?, 0)`, schemaName); err != nil {
			return fmt.Errorf("init db_version: %w", err)
		}
		version = 0
	}

	for v := version; v < len(migrations); v++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrate to %d: %w", v+1, err)
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migrate to %d: %w", v+1, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE db_version SET version = ? WHERE name = ?`, v+1, schemaName); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate to %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to %d: %w", v+1, err)
		}
	}
	return nil
}

func (s *SQLiteStore) observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Milliseconds()))
}

// ResolveSession implements Store.
func (s *SQLiteStore) ResolveSession(ctx context.Context, token string) (model.Session, error) {
	const op = "repository.resolve_session"
	if s.closed.Load() {
		return model.Session{}, apperr.Wrap(op, apperr.ErrInternal, ErrClosed)
	}
	defer s.observe("resolve_session", time.Now())

	sess := model.Session{Token: token}
	var expires int64
	err := s.db.QueryRowContext(ctx, `SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).Scan(&sess.UserID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, apperr.Wrap(op, apperr.ErrUnauthorized, ErrSessionNotFound)
	}
	if err != nil {
		return model.Session{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	sess.ExpiresAt = fromUnix(expires)
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		return model.Session{}, apperr.Wrap(op, apperr.ErrUnauthorized, ErrSessionExpired)
	}
	return sess, nil
}

// PutSession implements Store.
func (s *SQLiteStore) PutSession(ctx context.Context, sess model.Session) error {
	const op = "repository.put_session"
	if sess.Token == "" || sess.UserID == "" {
		return apperr.Invalid(op, "session token and user id are required")
	}
	defer s.observe("put_session", time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		sess.Token, sess.UserID, toUnix(sess.ExpiresAt))
	return apperr.Wrap(op, apperr.ErrInternal, err)
}

// DeleteSession implements Store.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	const op = "repository.delete_session"
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return apperr.Wrap(op, apperr.ErrInternal, err)
}

// PurgeExpiredSessions deletes sessions past their expiry and reports how many.
func (s *SQLiteStore) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	const op = "repository.purge_sessions"
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Credential implements Store.
func (s *SQLiteStore) Credential(ctx context.Context, userID string) (model.Credential, error) {
	const op = "repository.credential"
	if s.closed.Load() {
		return model.Credential{}, apperr.Wrap(op, apperr.ErrInternal, ErrClosed)
	}
	defer s.observe("credential", time.Now())

	c := model.Credential{UserID: userID, ProviderID: model.GoogleProvider}
	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, scope FROM accounts WHERE user_id = ? AND provider_id = ?`,
		userID, model.GoogleProvider,
	).Scan(&c.AccessToken, &c.RefreshToken, &expires, &c.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, apperr.Wrap(op, apperr.ErrNotFound, ErrNoAccount)
	}
	if err != nil {
		return model.Credential{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	c.ExpiresAt = fromUnix(expires)
	return c, nil
}

// SaveCredential implements Store.
func (s *SQLiteStore) SaveCredential(ctx context.Context, c model.Credential) error {
	const op = "repository.save_credential"
	if c.UserID == "" {
		return apperr.Invalid(op, "user id is required")
	}
	if c.ProviderID == "" {
		c.ProviderID = model.GoogleProvider
	}
	defer s.observe("save_credential", time.Now())
	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts
			(user_id, provider_id, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = excluded.updated_at`,
		c.UserID, c.ProviderID, c.AccessToken, c.RefreshToken, toUnix(c.ExpiresAt), c.Scope, s.now().Unix())
	return apperr.Wrap(op, apperr.ErrInternal, err)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
