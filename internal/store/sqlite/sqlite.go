// Package sqlite is the single-file run store used by the CLI by default.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"citypulse/internal/models"
	"citypulse/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	cities         TEXT NOT NULL,
	pillars        TEXT NOT NULL,
	started_at     TIMESTAMP NOT NULL,
	finished_at    TIMESTAMP,
	item_count     INTEGER NOT NULL DEFAULT 0,
	mean_sentiment REAL NOT NULL DEFAULT 0,
	cancelled      BOOLEAN NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	payload        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs (started_at DESC);`

var _ store.RunStore = (*Store)(nil)

type Store struct {
	db      *sql.DB
	queries store.RunQueries
}

// Open opens or creates the database at dsn (a file path or ":memory:").
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlite DSN cannot be empty")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One connection so ":memory:" is a single database and writes serialise.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db, queries: store.NewRunQueries(sq.Question)}, nil
}

func (s *Store) SaveRun(ctx context.Context, run *models.Run) error {
	query, args, err := s.queries.Upsert(run)
	if err != nil {
		return fmt.Errorf("build save run query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query, args, err := s.queries.Get(id)
	if err != nil {
		return nil, fmt.Errorf("build get run query: %w", err)
	}
	var payload string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return store.DecodeRun([]byte(payload))
}

func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]models.RunOverview, error) {
	query, args, err := s.queries.List(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("build list runs query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []models.RunOverview{}
	for rows.Next() {
		o, err := store.ScanOverview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	query, args, err := s.queries.Delete(id)
	if err != nil {
		return fmt.Errorf("build delete run query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }
