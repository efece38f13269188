package store

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"citypulse/internal/models"
)

// RunsTable is shared by the SQL backends.
const RunsTable = "runs"

var overviewColumns = []string{
	"id", "status", "cities", "pillars", "started_at", "finished_at",
	"item_count", "mean_sentiment", "cancelled",
}

// RunQueries builds the run statements for one placeholder dialect.
type RunQueries struct {
	sb sq.StatementBuilderType
}

func NewRunQueries(format sq.PlaceholderFormat) RunQueries {
	return RunQueries{sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

// Upsert inserts the run or replaces the stored row with the same ID.
func (q RunQueries) Upsert(run *models.Run) (string, []any, error) {
	payload, err := EncodeRun(run)
	if err != nil {
		return "", nil, err
	}
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	return q.sb.Insert(RunsTable).
		Columns("id", "status", "cities", "pillars", "started_at", "finished_at",
			"item_count", "mean_sentiment", "cancelled", "error", "payload").
		Values(run.ID.String(), string(run.Status), JoinList(run.Request.Cities), JoinList(run.Request.Pillars),
			run.StartedAt.UTC(), finished, len(run.Items), run.Aggregates.Summary.MeanSentiment,
			run.Cancelled, run.Error, string(payload)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			item_count = excluded.item_count,
			mean_sentiment = excluded.mean_sentiment,
			cancelled = excluded.cancelled,
			error = excluded.error,
			payload = excluded.payload`).
		ToSql()
}

func (q RunQueries) Get(id uuid.UUID) (string, []any, error) {
	return q.sb.Select("payload").From(RunsTable).Where(sq.Eq{"id": id.String()}).ToSql()
}

// List orders newest first. A non-positive limit means no limit.
func (q RunQueries) List(limit, offset int) (string, []any, error) {
	b := q.sb.Select(overviewColumns...).From(RunsTable).OrderBy("started_at DESC", "id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	return b.ToSql()
}

func (q RunQueries) Delete(id uuid.UUID) (string, []any, error) {
	return q.sb.Delete(RunsTable).Where(sq.Eq{"id": id.String()}).ToSql()
}

// ScanOverview reads one row produced by List. scan is rows.Scan from either driver.
func ScanOverview(scan func(dest ...any) error) (models.RunOverview, error) {
	var (
		o               models.RunOverview
		id, status      string
		cities, pillars string
		started         time.Time
		finished        *time.Time
	)
	if err := scan(&id, &status, &cities, &pillars, &started, &finished,
		&o.ItemCount, &o.MeanSentiment, &o.Cancelled); err != nil {
		return o, fmt.Errorf("scan run overview: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return o, fmt.Errorf("scan run overview: bad id %q: %w", id, err)
	}
	o.ID = parsed
	o.Status = models.RunStatus(status)
	o.Cities = SplitList(cities)
	o.Pillars = SplitList(pillars)
	o.StartedAt = started.UTC()
	if finished != nil {
		t := finished.UTC()
		o.FinishedAt = &t
	}
	return o, nil
}
