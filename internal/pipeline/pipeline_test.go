package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"citypulse/internal/models"
	"citypulse/internal/taxonomy"
	"citypulse/pkg/sentiment"
)

// --- Stubs ---

type stubSource struct {
	name  string
	kind  models.SourceKind
	fetch func(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error)

	mu       sync.Mutex
	requests []models.FetchRequest
}

func (s *stubSource) Name() string            { return s.name }
func (s *stubSource) Kind() models.SourceKind { return s.kind }
func (s *stubSource) Fetch(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.fetch(ctx, req)
}

func (s *stubSource) totalMaxItems(city string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.City == city {
			n += r.MaxItems
		}
	}
	return n
}

// mockSource is a testify mock of ContentSource.
type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string            { return "mock" }
func (m *mockSource) Kind() models.SourceKind { return models.SourceSocial }
func (m *mockSource) Fetch(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
	args := m.Called(ctx, req)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

type stubOracle struct {
	scores map[string]float64
	errs   map[string]error
	hook   func(ctx context.Context, req sentiment.Request) error
}

func (o *stubOracle) Name() string { return "stub" }
func (o *stubOracle) Score(ctx context.Context, req sentiment.Request) (sentiment.Score, error) {
	if o.hook != nil {
		if err := o.hook(ctx, req); err != nil {
			return sentiment.Score{}, err
		}
	}
	if err, ok := o.errs[req.Text]; ok {
		return sentiment.Score{}, err
	}
	return sentiment.Score{Value: o.scores[req.Text], Reason: "stub reason for " + req.Subject}, nil
}

// bareQueryOnly returns items for the bare city keyword query and nothing for the rest.
func bareQueryOnly(items ...models.ContentItem) func(context.Context, models.FetchRequest) ([]models.ContentItem, error) {
	return func(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
		if req.Query != req.CityKeyword {
			return nil, nil
		}
		return items, nil
	}
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(oracle sentiment.Oracle, sources ...ContentSource) *Pipeline {
	return New(taxonomy.Default(), taxonomy.DefaultCatalog(), sources, oracle, Options{
		CityConcurrency:    3,
		ScoringConcurrency: 4,
		Now:                func() time.Time { return fixedNow },
	})
}

// --- End Stubs ---

func TestRun_EndToEndSingapore(t *testing.T) {
	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: bareQueryOnly(
		models.ContentItem{Title: "New mayor announces governance reform", OriginURL: "https://example.com/1"},
		models.ContentItem{Title: "Weather forecast sunny", OriginURL: "https://example.com/2"},
	)}
	oracle := &stubOracle{scores: map[string]float64{
		"New mayor announces governance reform": 0.5,
		"Weather forecast sunny":                0.0,
	}}

	res, err := newTestPipeline(oracle, src).Run(context.Background(), models.RunRequest{
		Cities:           []string{"Singapore"},
		Pillars:          []string{taxonomy.LeadershipGovernance},
		TimeWindowMonths: 12,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.False(t, res.Cancelled)
	assert.Empty(t, res.Warnings)

	first, second := res.Items[0], res.Items[1]
	assert.Equal(t, []string{taxonomy.LeadershipGovernance}, first.RelatedPillars)
	assert.Equal(t, models.BandPositive, first.Band)
	assert.Equal(t, "Singapore", first.City)
	assert.Equal(t, "reddit", first.SourceName)
	assert.Equal(t, models.SourceSocial, first.SourceKind)
	assert.True(t, first.Scored)
	assert.Equal(t, "stub reason for singapore", first.SentimentReason)

	assert.Equal(t, []string{models.GeneralPillar}, second.RelatedPillars)
	assert.Equal(t, models.BandNeutral, second.Band)

	require.Len(t, res.Aggregates.ByCity, 1)
	assert.InDelta(t, 0.25, res.Aggregates.ByCity[0].MeanSentiment, 1e-12)
	assert.Equal(t, 2, res.Aggregates.ByCity[0].Count)

	assert.Equal(t, fixedNow, res.Window.End)
	assert.Equal(t, fixedNow.AddDate(0, 0, -360), res.Window.Start)
}

func TestRun_PartialRetrievalFailure(t *testing.T) {
	src := new(mockSource)
	src.On("Fetch", mock.Anything, mock.MatchedBy(func(r models.FetchRequest) bool { return r.City == "Bilbao" })).
		Return(nil, &models.RetrievalError{Source: "mock", Query: "bilbao", Reason: "status 503"})
	src.On("Fetch", mock.Anything, mock.MatchedBy(func(r models.FetchRequest) bool { return r.City != "Bilbao" && r.Query == r.CityKeyword })).
		Return([]models.ContentItem{{Title: "City council approves plan"}}, nil)
	src.On("Fetch", mock.Anything, mock.Anything).Return(nil, nil)

	res, err := newTestPipeline(&stubOracle{scores: map[string]float64{"City council approves plan": 0.4}}, src).
		Run(context.Background(), models.RunRequest{
			Cities:           []string{"Seoul", "Bilbao", "Melbourne"},
			Pillars:          []string{taxonomy.LeadershipGovernance},
			TimeWindowMonths: 6,
		})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Seoul", res.Items[0].City)
	assert.Equal(t, "Melbourne", res.Items[1].City)

	require.NotEmpty(t, res.Warnings)
	for _, w := range res.Warnings {
		assert.Equal(t, "Bilbao", w.City)
		assert.Contains(t, w.Message, "status 503")
	}
	_, ok := findRow(res.Aggregates.ByCity, "Bilbao", "", "")
	assert.False(t, ok)
}

func TestRun_ScoringFailureSubstitutesNeutral(t *testing.T) {
	src := &stubSource{name: "news", kind: models.SourceNews, fetch: bareQueryOnly(
		models.ContentItem{Title: "Metro expansion praised", OriginURL: "u1"},
		models.ContentItem{Title: "Oracle chokes on this", OriginURL: "u2"},
	)}
	oracle := &stubOracle{
		scores: map[string]float64{"Metro expansion praised": 0.7},
		errs:   map[string]error{"Oracle chokes on this": &models.ScoringError{Text: "Oracle chokes on this", Reason: "response has no score"}},
	}

	res, err := newTestPipeline(oracle, src).Run(context.Background(), models.RunRequest{
		Cities: []string{"Seoul"}, Pillars: []string{taxonomy.IntegrationOfPlans}, TimeWindowMonths: 3,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2, "failed items are retained")

	failed := res.Items[1]
	assert.False(t, failed.Scored)
	assert.Zero(t, failed.SentimentScore)
	assert.Equal(t, models.BandNeutral, failed.Band)
	assert.Contains(t, failed.SentimentReason, "response has no score")

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "Seoul", res.Warnings[0].City)

	assert.Equal(t, 2, res.Aggregates.Summary.TotalItems)
	assert.Equal(t, 1, res.Aggregates.Summary.ScoredItems)
	assert.InDelta(t, 0.7, res.Aggregates.ByCity[0].MeanSentiment, 1e-12)
}

func TestRun_OutOfRangeScoreIsRejected(t *testing.T) {
	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: bareQueryOnly(
		models.ContentItem{Title: "Rated on the wrong scale", OriginURL: "u1"},
		models.ContentItem{Title: "Not a number", OriginURL: "u2"},
		models.ContentItem{Title: "Unbounded", OriginURL: "u3"},
		models.ContentItem{Title: "Upper edge", OriginURL: "u4"},
		models.ContentItem{Title: "Mildly negative", OriginURL: "u5"},
	)}
	oracle := &stubOracle{scores: map[string]float64{
		"Rated on the wrong scale": 8,
		"Not a number":             math.NaN(),
		"Unbounded":                math.Inf(-1),
		"Upper edge":               1,
		"Mildly negative":          -0.2,
	}}

	res, err := newTestPipeline(oracle, src).Run(context.Background(), models.RunRequest{
		Cities: []string{"Amsterdam"}, Pillars: []string{taxonomy.Replicability}, TimeWindowMonths: 2,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 5)

	for _, it := range res.Items[:3] {
		assert.False(t, it.Scored, it.Title)
		assert.Zero(t, it.SentimentScore, it.Title)
		assert.Equal(t, models.BandNeutral, it.Band, it.Title)
		assert.Contains(t, it.SentimentReason, "outside [-1, 1]", it.Title)
	}
	assert.True(t, res.Items[3].Scored)
	assert.Equal(t, 1.0, res.Items[3].SentimentScore)
	assert.Equal(t, models.BandStronglyPositive, res.Items[3].Band)

	assert.Len(t, res.Warnings, 3)
	assert.Equal(t, 2, res.Aggregates.Summary.ScoredItems)
	require.Len(t, res.Aggregates.ByCity, 1)
	assert.InDelta(t, 0.4, res.Aggregates.ByCity[0].MeanSentiment, 1e-12)
}

func TestRun_NonScoringErrorIsWrapped(t *testing.T) {
	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: bareQueryOnly(models.ContentItem{Title: "x"})}
	oracle := &stubOracle{errs: map[string]error{"x": errors.New("boom")}}

	res, err := newTestPipeline(oracle, src).Run(context.Background(), models.RunRequest{
		Cities: []string{"Seoul"}, Pillars: []string{taxonomy.Replicability}, TimeWindowMonths: 1,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Contains(t, res.Items[0].SentimentReason, "boom")
	assert.Contains(t, res.Items[0].SentimentReason, "scoring failed")
}

func TestRun_CapIsNeverExceeded(t *testing.T) {
	var counter int
	var mu sync.Mutex
	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: func(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
		mu.Lock()
		defer mu.Unlock()
		// Sources that ignore MaxItems are truncated to the quota.
		var items []models.ContentItem
		for i := 0; i < req.MaxItems+5; i++ {
			counter++
			items = append(items, models.ContentItem{Title: fmt.Sprintf("item %d", counter), OriginURL: fmt.Sprintf("u%d", counter)})
		}
		return items, nil
	}}

	res, err := newTestPipeline(&stubOracle{}, src).Run(context.Background(), models.RunRequest{
		Cities: []string{"Seoul", "Bilbao"}, Pillars: []string{taxonomy.LeadershipGovernance}, TimeWindowMonths: 12, ItemsPerCityCap: 10,
	})
	require.NoError(t, err)

	perCity := map[string]int{}
	for _, it := range res.Items {
		perCity[it.City]++
	}
	assert.Equal(t, 10, perCity["Seoul"])
	assert.Equal(t, 10, perCity["Bilbao"])
	assert.Equal(t, 10, src.totalMaxItems("Seoul"))
}

func TestRun_CapAppliesPerSource(t *testing.T) {
	flood := func(prefix string) func(context.Context, models.FetchRequest) ([]models.ContentItem, error) {
		var mu sync.Mutex
		n := 0
		return func(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
			mu.Lock()
			defer mu.Unlock()
			var items []models.ContentItem
			for i := 0; i < req.MaxItems+3; i++ {
				n++
				items = append(items, models.ContentItem{Title: fmt.Sprintf("%s %d", prefix, n), OriginURL: fmt.Sprintf("%s/%d", prefix, n)})
			}
			return items, nil
		}
	}
	social := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: flood("post")}
	news := &stubSource{name: "newsapi", kind: models.SourceNews, fetch: flood("article")}

	res, err := newTestPipeline(&stubOracle{}, social, news).Run(context.Background(), models.RunRequest{
		Cities: []string{"Barcelona"}, Pillars: []string{taxonomy.LeadershipGovernance}, TimeWindowMonths: 12, ItemsPerCityCap: 6,
	})
	require.NoError(t, err)

	perSource := map[string]int{}
	for _, it := range res.Items {
		perSource[it.SourceName]++
	}
	assert.Equal(t, map[string]int{"reddit": 6, "newsapi": 6}, perSource)
	assert.Len(t, res.Items, 12)
}

func TestRun_DefaultCapAndDedupe(t *testing.T) {
	same := []models.ContentItem{
		{Title: "Seoul smart city pilot", OriginURL: "https://a"},
		{Title: "Seoul smart city pilot (repost)", OriginURL: "https://a"},
		{Title: "No url here"},
		{Title: "no URL here "},
		{Title: "   "},
	}
	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: func(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
		return same, nil
	}}

	res, err := newTestPipeline(&stubOracle{}, src).Run(context.Background(), models.RunRequest{
		Cities: []string{"seoul"}, Pillars: []string{taxonomy.CreativityInnovation}, TimeWindowMonths: 12,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Seoul smart city pilot", res.Items[0].Title)
	assert.Equal(t, "No url here", res.Items[1].Title)
	assert.Equal(t, DefaultItemsPerCityCap, src.totalMaxItems("Seoul"))
}

func TestRun_MultipleSourcesKeepTaskOrder(t *testing.T) {
	social := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: bareQueryOnly(models.ContentItem{Title: "social post"})}
	news := &stubSource{name: "newsapi", kind: models.SourceNews, fetch: bareQueryOnly(models.ContentItem{Title: "news story"})}

	res, err := newTestPipeline(&stubOracle{scores: map[string]float64{"social post": -0.5, "news story": 0.5}}, social, news).
		Run(context.Background(), models.RunRequest{Cities: []string{"Amsterdam", "Copenhagen"}, Pillars: []string{taxonomy.Replicability}, TimeWindowMonths: 12})
	require.NoError(t, err)

	require.Len(t, res.Items, 4)
	assert.Equal(t, []string{"Amsterdam/reddit", "Amsterdam/newsapi", "Copenhagen/reddit", "Copenhagen/newsapi"}, []string{
		res.Items[0].City + "/" + res.Items[0].SourceName,
		res.Items[1].City + "/" + res.Items[1].SourceName,
		res.Items[2].City + "/" + res.Items[2].SourceName,
		res.Items[3].City + "/" + res.Items[3].SourceName,
	})
	row, ok := findRow(res.Aggregates.BySourceCity, "Amsterdam", "", string(models.SourceNews))
	require.True(t, ok)
	assert.InDelta(t, 0.5, row.MeanSentiment, 1e-12)
}

func TestRun_CancellationKeepsCompletedItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: bareQueryOnly(
		models.ContentItem{Title: "first", OriginURL: "1"},
		models.ContentItem{Title: "trigger", OriginURL: "2"},
		models.ContentItem{Title: "third", OriginURL: "3"},
	)}
	oracle := &stubOracle{
		scores: map[string]float64{"first": 0.3},
		hook: func(ctx context.Context, req sentiment.Request) error {
			if req.Text == "trigger" {
				cancel()
			}
			return ctx.Err()
		},
	}
	p := New(taxonomy.Default(), taxonomy.DefaultCatalog(), []ContentSource{src}, oracle, Options{CityConcurrency: 1, ScoringConcurrency: 1})

	res, err := p.Run(ctx, models.RunRequest{Cities: []string{"Seoul"}, Pillars: []string{taxonomy.Replicability}, TimeWindowMonths: 12})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "first", res.Items[0].Title)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1].Message, "cancelled")
	assert.Equal(t, 1, res.Aggregates.Summary.TotalItems)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: bareQueryOnly()}
	valid := models.RunRequest{Cities: []string{"Seoul"}, Pillars: []string{taxonomy.Replicability}, TimeWindowMonths: 12}

	tests := []struct {
		name     string
		pipeline *Pipeline
		mutate   func(r *models.RunRequest)
		target   error
	}{
		{"no cities", newTestPipeline(&stubOracle{}, src), func(r *models.RunRequest) { r.Cities = nil }, models.ErrConfiguration},
		{"no pillars", newTestPipeline(&stubOracle{}, src), func(r *models.RunRequest) { r.Pillars = []string{} }, models.ErrConfiguration},
		{"unknown city", newTestPipeline(&stubOracle{}, src), func(r *models.RunRequest) { r.Cities = []string{"Atlantis"} }, models.ErrUnknownCity},
		{"unknown pillar", newTestPipeline(&stubOracle{}, src), func(r *models.RunRequest) { r.Pillars = []string{"Nightlife"} }, models.ErrUnknownPillar},
		{"months zero", newTestPipeline(&stubOracle{}, src), func(r *models.RunRequest) { r.TimeWindowMonths = 0 }, models.ErrConfiguration},
		{"months too large", newTestPipeline(&stubOracle{}, src), func(r *models.RunRequest) { r.TimeWindowMonths = 121 }, models.ErrConfiguration},
		{"negative cap", newTestPipeline(&stubOracle{}, src), func(r *models.RunRequest) { r.ItemsPerCityCap = -1 }, models.ErrConfiguration},
		{"no oracle", newTestPipeline(nil, src), func(r *models.RunRequest) {}, models.ErrConfiguration},
		{"no sources", newTestPipeline(&stubOracle{}), func(r *models.RunRequest) {}, models.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			res, err := tt.pipeline.Run(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.target)
		})
	}
	assert.Empty(t, src.requests, "no retrieval happens when the run is rejected")
}

func TestRun_EmptyResultsYieldEmptyAggregates(t *testing.T) {
	src := &stubSource{name: "reddit", kind: models.SourceSocial, fetch: bareQueryOnly()}

	res, err := newTestPipeline(&stubOracle{}, src).Run(context.Background(), models.RunRequest{
		Cities: []string{"Seoul"}, Pillars: []string{taxonomy.Replicability}, TimeWindowMonths: 12,
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Aggregates.ByCity)
	assert.Zero(t, res.Aggregates.Summary.MeanSentiment)
}

func TestRun_FetchRequestCarriesWindowAndKeywords(t *testing.T) {
	src := &stubSource{name: "newsapi", kind: models.SourceNews, fetch: bareQueryOnly()}

	_, err := newTestPipeline(&stubOracle{}, src).Run(context.Background(), models.RunRequest{
		Cities: []string{"New York"}, Pillars: []string{taxonomy.IntegrationOfPlans}, TimeWindowMonths: 2, ItemsPerCityCap: 20,
	})
	require.NoError(t, err)
	require.Len(t, src.requests, 2)

	for _, r := range src.requests {
		assert.Equal(t, "New York", r.City)
		assert.Equal(t, "new york", r.CityKeyword)
		assert.Equal(t, 10, r.MaxItems)
		assert.Equal(t, fixedNow.AddDate(0, 0, -60), r.Window.Start)
		assert.IsIncreasing(t, r.Keywords)
	}
}
