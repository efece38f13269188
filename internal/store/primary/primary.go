package primary

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"citypulse/internal/models"
	"citypulse/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	cities         TEXT NOT NULL,
	pillars        TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ,
	item_count     INTEGER NOT NULL DEFAULT 0,
	mean_sentiment DOUBLE PRECISION NOT NULL DEFAULT 0,
	cancelled      BOOLEAN NOT NULL DEFAULT FALSE,
	error          TEXT NOT NULL DEFAULT '',
	payload        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs (started_at DESC);`

var _ store.RunStore = (*StoreImpl)(nil)

// StoreImpl implements store.RunStore using PostgreSQL.
type StoreImpl struct {
	db      *pgxpool.Pool
	queries store.RunQueries
}

// NewPrimaryStore connects, pings and ensures the runs table exists.
func NewPrimaryStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	if dsn == "" {
		return nil, errors.New("database DSN cannot be empty")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := dbpool.Exec(ctx, schema); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to create runs table: %w", err)
	}

	return &StoreImpl{db: dbpool, queries: store.NewRunQueries(sq.Dollar)}, nil
}

func (s *StoreImpl) SaveRun(ctx context.Context, run *models.Run) error {
	query, args, err := s.queries.Upsert(run)
	if err != nil {
		return fmt.Errorf("build save run query: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (s *StoreImpl) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query, args, err := s.queries.Get(id)
	if err != nil {
		return nil, fmt.Errorf("build get run query: %w", err)
	}
	var payload []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return store.DecodeRun(payload)
}

func (s *StoreImpl) ListRuns(ctx context.Context, limit, offset int) ([]models.RunOverview, error) {
	query, args, err := s.queries.List(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("build list runs query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
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

func (s *StoreImpl) DeleteRun(ctx context.Context, id uuid.UUID) error {
	query, args, err := s.queries.Delete(id)
	if err != nil {
		return fmt.Errorf("build delete run query: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection pool.
func (s *StoreImpl) Close() error {
	s.db.Close()
	return nil
}
