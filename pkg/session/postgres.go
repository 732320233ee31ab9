package session

import (
	"context"
	"embed"
	"errors"
	"maps"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations for PostgresStore under "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	loadQuery = `UPDATE sessions SET touched_at = now()
WHERE token = $1 AND touched_at + timeout > now()
RETURNING data`

	saveQuery = `INSERT INTO sessions (token, data, timeout, touched_at)
VALUES ($1, $2, make_interval(secs => $3), now())
ON CONFLICT (token) DO UPDATE
SET data = EXCLUDED.data, timeout = EXCLUDED.timeout, touched_at = EXCLUDED.touched_at`

	deleteQuery = `DELETE FROM sessions WHERE token = $1`

	sweepQuery = `DELETE FROM sessions WHERE touched_at + timeout <= now()`
)

// PostgresStore keeps sessions in the "sessions" table. Each statement is
// atomic, so concurrent loads and saves of one token never interleave.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store over a pgx pool (or any DB).
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load fetches the data of an unexpired session and touches it.
func (s *PostgresStore) Load(ctx context.Context, token string) (map[string]any, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var data map[string]any
	if err := s.db.QueryRow(ctx, loadQuery, token).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if data == nil {
		data = make(map[string]any)
	}
	return data, nil
}

// Save upserts the session. A non-positive timeout is stored as 100 years.
func (s *PostgresStore) Save(ctx context.Context, token string, data map[string]any, timeout time.Duration) error {
	if token == "" {
		return ErrInvalidToken
	}
	if timeout <= 0 {
		timeout = 100 * 365 * 24 * time.Hour
	}
	if data == nil {
		data = map[string]any{}
	}
	_, err := s.db.Exec(ctx, saveQuery, token, maps.Clone(data), timeout.Seconds())
	return err
}

// Delete removes the session.
func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, deleteQuery, token)
	return err
}

// Sweep deletes expired sessions.
func (s *PostgresStore) Sweep(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, sweepQuery)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

var (
	_ Store   = (*PostgresStore)(nil)
	_ Deleter = (*PostgresStore)(nil)
	_ Sweeper = (*PostgresStore)(nil)
)
