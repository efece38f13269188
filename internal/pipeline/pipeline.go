// Package pipeline runs the city sentiment analysis: it fans retrieval out per city and
// source, scores and classifies every item, and aggregates the flat item table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"citypulse/internal/models"
	"citypulse/internal/taxonomy"
	"citypulse/pkg/sentiment"
)

const (
	DefaultItemsPerCityCap    = 100
	DefaultCityConcurrency    = 4
	DefaultScoringConcurrency = 8

	MinTimeWindowMonths = 1
	MaxTimeWindowMonths = 120

	daysPerMonth = 30
)

// ContentSource retrieves candidate items for one query. Implementations return at most
// req.MaxItems items and a *models.RetrievalError on failure.
type ContentSource interface {
	Name() string
	Kind() models.SourceKind
	Fetch(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error)
}

type Options struct {
	// CityConcurrency bounds how many city×source tasks run at once.
	CityConcurrency int
	// ScoringConcurrency bounds in-flight oracle calls across the whole run.
	ScoringConcurrency int
	// Now is the clock used to compute the time window.
	Now func() time.Time
}

// Pipeline is safe for concurrent use; every Run works on its own state.
type Pipeline struct {
	taxonomy *taxonomy.Taxonomy
	catalog  *taxonomy.Catalog
	sources  []ContentSource
	oracle   sentiment.Oracle
	opts     Options
}

func New(tax *taxonomy.Taxonomy, catalog *taxonomy.Catalog, sources []ContentSource, oracle sentiment.Oracle, opts Options) *Pipeline {
	if opts.CityConcurrency <= 0 {
		opts.CityConcurrency = DefaultCityConcurrency
	}
	if opts.ScoringConcurrency <= 0 {
		opts.ScoringConcurrency = DefaultScoringConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{taxonomy: tax, catalog: catalog, sources: sources, oracle: oracle, opts: opts}
}

// Result is the outcome of one run: the flat item table, the warnings recovered along the
// way and the aggregates derived from the table.
type Result struct {
	Items      []models.ScoredItem
	Warnings   []models.Warning
	Aggregates models.Aggregates
	Window     models.TimeWindow
	// Cancelled is set when ctx ended before every task finished; Items holds whatever
	// completed.
	Cancelled bool
}

// Sources returns the configured content sources.
func (p *Pipeline) Sources() []ContentSource { return p.sources }

// Taxonomy returns the pillar taxonomy the pipeline classifies against.
func (p *Pipeline) Taxonomy() *taxonomy.Taxonomy { return p.taxonomy }

// Catalog returns the city catalog.
func (p *Pipeline) Catalog() *taxonomy.Catalog { return p.catalog }

// Run executes one analysis. Only a *models.ConfigurationError is returned as an error;
// retrieval and scoring failures become warnings, and cancellation yields a partial
// result with Cancelled set.
func (p *Pipeline) Run(ctx context.Context, req models.RunRequest) (*Result, error) {
	cities, pillars, limit, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	end := p.opts.Now().UTC()
	window := models.TimeWindow{
		Start: end.AddDate(0, 0, -req.TimeWindowMonths*daysPerMonth),
		End:   end,
	}
	keywords := p.taxonomy.KeywordUnion(pillars)

	type task struct {
		city   taxonomy.City
		source ContentSource
	}
	var tasks []task
	for _, c := range cities {
		for _, s := range p.sources {
			tasks = append(tasks, task{city: c, source: s})
		}
	}

	log.Infof("Starting analysis run: cities=%s pillars=%d months=%d cap=%d tasks=%d",
		strings.Join(cityNames(cities), ","), len(pillars), req.TimeWindowMonths, limit, len(tasks))

	// Each task owns one slot; the table is assembled in task order once all are done.
	outputs := make([]taskOutput, len(tasks))
	var cancelled atomic.Bool
	scoring := semaphore.NewWeighted(int64(p.opts.ScoringConcurrency))

	g := new(errgroup.Group)
	g.SetLimit(p.opts.CityConcurrency)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if ctx.Err() != nil {
				cancelled.Store(true)
				return nil
			}
			r := &taskRun{
				pipeline: p,
				city:     t.city,
				source:   t.source,
				pillars:  pillars,
				keywords: keywords,
				limit:    limit,
				window:   window,
				scoring:  scoring,
			}
			outputs[i] = r.execute(ctx)
			if outputs[i].cancelled {
				cancelled.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Window: window, Cancelled: cancelled.Load()}
	for _, out := range outputs {
		res.Items = append(res.Items, out.items...)
		res.Warnings = append(res.Warnings, out.warnings...)
	}
	if res.Cancelled {
		msg := "run cancelled before completion"
		if cause := ctx.Err(); cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, cause)
		}
		res.Warnings = append(res.Warnings, models.Warning{Message: msg})
		log.Warnf("Analysis run cancelled, keeping %d completed items", len(res.Items))
	}
	if res.Items == nil {
		res.Items = []models.ScoredItem{}
	}
	res.Aggregates = Aggregate(res.Items)

	log.Infof("Analysis run finished: items=%d warnings=%d cancelled=%t", len(res.Items), len(res.Warnings), res.Cancelled)
	return res, nil
}

// Validate checks a request without running it.
func (p *Pipeline) Validate(req models.RunRequest) error {
	_, _, _, err := p.validate(req)
	return err
}

func (p *Pipeline) validate(req models.RunRequest) ([]taxonomy.City, []string, int, error) {
	if p.oracle == nil {
		return nil, nil, 0, models.NewConfigurationError("oracle", "no sentiment oracle configured")
	}
	if len(p.sources) == 0 {
		return nil, nil, 0, models.NewConfigurationError("sources", "no content sources configured")
	}
	if len(req.Cities) == 0 {
		return nil, nil, 0, models.NewConfigurationError("cities", "at least one city is required")
	}
	if len(req.Pillars) == 0 {
		return nil, nil, 0, models.NewConfigurationError("pillars", "at least one pillar is required")
	}
	if req.TimeWindowMonths < MinTimeWindowMonths || req.TimeWindowMonths > MaxTimeWindowMonths {
		return nil, nil, 0, models.NewConfigurationError("time_window_months", "must be between %d and %d, got %d",
			MinTimeWindowMonths, MaxTimeWindowMonths, req.TimeWindowMonths)
	}
	if req.ItemsPerCityCap < 0 {
		return nil, nil, 0, models.NewConfigurationError("items_per_city_cap", "cannot be negative, got %d", req.ItemsPerCityCap)
	}

	cities, err := p.catalog.Resolve(req.Cities)
	if err != nil {
		return nil, nil, 0, err
	}
	pillars, err := p.taxonomy.Resolve(req.Pillars)
	if err != nil {
		return nil, nil, 0, err
	}

	limit := req.ItemsPerCityCap
	if limit == 0 {
		limit = DefaultItemsPerCityCap
	}
	return cities, pillars, limit, nil
}

type taskOutput struct {
	items     []models.ScoredItem
	warnings  []models.Warning
	cancelled bool
}

// taskRun is one city against one source. It writes only to its own taskOutput.
type taskRun struct {
	pipeline *Pipeline
	city     taxonomy.City
	source   ContentSource
	pillars  []string
	keywords []string
	limit    int
	window   models.TimeWindow
	scoring  *semaphore.Weighted

	out taskOutput
}

func (r *taskRun) execute(ctx context.Context) taskOutput {
	items := r.retrieve(ctx)
	r.score(ctx, items)
	return r.out
}

func (r *taskRun) warn(query, msg string) {
	r.out.warnings = append(r.out.warnings, models.Warning{
		City:    r.city.Name,
		Source:  r.source.Name(),
		Query:   query,
		Message: msg,
	})
}

// retrieve runs the planned queries concurrently, each bounded by its own quota, and
// merges them in plan order dropping repeats.
func (r *taskRun) retrieve(ctx context.Context) []models.ContentItem {
	plan := PlanQueries(r.source.Kind(), r.city.Keyword, r.keywords, r.limit)
	results := make([][]models.ContentItem, len(plan))
	errs := make([]error, len(plan))

	g := new(errgroup.Group)
	for i, q := range plan {
		i, q := i, q
		g.Go(func() error {
			log.Debugf("%s: querying %q for %s (max %d)", r.source.Name(), q.Text, r.city.Name, q.Quota)
			items, err := r.source.Fetch(ctx, models.FetchRequest{
				City:        r.city.Name,
				CityKeyword: r.city.Keyword,
				Keywords:    r.keywords,
				Query:       q.Text,
				MaxItems:    q.Quota,
				Window:      r.window,
			})
			if err != nil {
				errs[i] = err
				return nil
			}
			if len(items) > q.Quota {
				items = items[:q.Quota]
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var merged []models.ContentItem
	for i, q := range plan {
		if err := errs[i]; err != nil {
			if ctx.Err() != nil {
				r.out.cancelled = true
				continue
			}
			log.Warnf("%s: query %q for %s failed: %v", r.source.Name(), q.Text, r.city.Name, err)
			r.warn(q.Text, err.Error())
			continue
		}
		for _, it := range results[i] {
			if strings.TrimSpace(it.Title) == "" {
				continue
			}
			key := dedupeKey(it)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			it.City = r.city.Name
			if it.SourceKind == "" {
				it.SourceKind = r.source.Kind()
			}
			if it.SourceName == "" {
				it.SourceName = r.source.Name()
			}
			merged = append(merged, it)
		}
	}
	return merged
}

func dedupeKey(it models.ContentItem) string {
	if it.OriginURL != "" {
		return "url:" + it.OriginURL
	}
	return "title:" + strings.ToLower(strings.TrimSpace(it.Title))
}

// score calls the oracle for every item, bounded by the run-wide semaphore. Items whose call
// is abandoned because ctx ended are dropped; every other item is kept.
func (r *taskRun) score(ctx context.Context, items []models.ContentItem) {
	if len(items) == 0 {
		return
	}
	scored := make([]models.ScoredItem, len(items))
	kept := make([]bool, len(items))
	failures := make([]error, len(items))

	g := new(errgroup.Group)
	for i, it := range items {
		if err := r.scoring.Acquire(ctx, 1); err != nil {
			r.out.cancelled = true
			break
		}
		i, it := i, it
		g.Go(func() error {
			defer r.scoring.Release(1)
			s, ok, failure := r.scoreOne(ctx, it)
			scored[i], kept[i], failures[i] = s, ok, failure
			return nil
		})
	}
	_ = g.Wait()

	for i := range items {
		if failures[i] != nil {
			r.warn("", failures[i].Error())
		}
		if kept[i] {
			r.out.items = append(r.out.items, scored[i])
		} else if ctx.Err() != nil {
			r.out.cancelled = true
		}
	}
}

// scoreOne returns the scored item, whether to keep it, and the scoring failure that was
// replaced by the neutral default, if any.
func (r *taskRun) scoreOne(ctx context.Context, it models.ContentItem) (models.ScoredItem, bool, error) {
	out := models.ScoredItem{
		ContentItem:    it,
		RelatedPillars: taxonomy.ClassifyNormalized(it, r.pipeline.taxonomy, r.pillars),
	}

	verdict, err := r.pipeline.oracle.Score(ctx, sentiment.Request{Text: it.Title, Subject: r.city.Keyword})
	if err == nil {
		err = checkScore(it.Title, verdict.Value)
	}
	if err != nil {
		if ctx.Err() != nil {
			return models.ScoredItem{}, false, nil
		}
		var se *models.ScoringError
		if !errors.As(err, &se) {
			err = &models.ScoringError{Text: it.Title, Reason: "oracle call failed", Err: err}
		}
		log.Warnf("Scoring failed for %q (%s): %v", truncate(it.Title, 60), r.city.Name, err)
		out.SentimentScore = 0
		out.SentimentReason = err.Error()
		out.Band = models.BandFor(0)
		out.Scored = false
		return out, true, err
	}

	out.SentimentScore = verdict.Value
	out.SentimentReason = verdict.Reason
	out.Band = models.BandFor(verdict.Value)
	out.Scored = true
	return out, true, nil
}

// checkScore rejects oracle scores that are not finite or fall outside [-1, 1].
func checkScore(text string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -1 || v > 1 {
		return &models.ScoringError{Text: text, Reason: fmt.Sprintf("score %v outside [-1, 1]", v)}
	}
	return nil
}

func cityNames(cities []taxonomy.City) []string {
	names := make([]string, len(cities))
	for i, c := range cities {
		names[i] = c.Name
	}
	return names
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
