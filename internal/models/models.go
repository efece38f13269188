package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind distinguishes social posts from news articles.
type SourceKind string

const (
	SourceSocial SourceKind = "social"
	SourceNews   SourceKind = "news"
)

// GeneralPillar is the sentinel pillar assigned to items that match no active pillar.
const GeneralPillar = "General"

// Engagement holds social metadata. News items carry none.
type Engagement struct {
	Upvotes  int `json:"upvotes"`
	Comments int `json:"comments"`
}

// ContentItem is one scraped post or article. It is never mutated after a source returns it.
type ContentItem struct {
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	City        string      `json:"city"`
	SourceKind  SourceKind  `json:"source_kind"`
	SourceName  string      `json:"source_name"`
	Publisher   string      `json:"publisher,omitempty"`
	OriginURL   string      `json:"origin_url"`
	Engagement  *Engagement `json:"engagement,omitempty"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
}

// Text joins title and body for keyword matching.
func (c ContentItem) Text() string {
	if c.Body == "" {
		return c.Title
	}
	return c.Title + " " + c.Body
}

// ScoredItem is a ContentItem after one oracle call and pillar classification.
type ScoredItem struct {
	ContentItem
	SentimentScore  float64  `json:"sentiment_score"`
	SentimentReason string   `json:"sentiment_reason"`
	Band            Band     `json:"band"`
	RelatedPillars  []string `json:"related_pillars"`
	// Scored is false when the oracle failed and the neutral default was substituted.
	Scored bool `json:"scored"`
}

// TimeWindow bounds the publication dates a source is asked for.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FetchRequest is one query sent to a content source.
type FetchRequest struct {
	City        string
	CityKeyword string
	Keywords    []string
	Query       string
	MaxItems    int
	Window      TimeWindow
}

// Warning is a recovered failure surfaced next to the data it affected.
type Warning struct {
	City    string `json:"city,omitempty"`
	Source  string `json:"source,omitempty"`
	Query   string `json:"query,omitempty"`
	Message string `json:"message"`
}

// AggregateRow is one group mean. Only the key fields relevant to the view are set.
type AggregateRow struct {
	City          string  `json:"city,omitempty"`
	Pillar        string  `json:"pillar,omitempty"`
	Source        string  `json:"source,omitempty"`
	MeanSentiment float64 `json:"mean_sentiment"`
	Count         int     `json:"count"`
}

// Summary holds run-wide headline numbers.
type Summary struct {
	TotalItems      int          `json:"total_items"`
	ScoredItems     int          `json:"scored_items"`
	MeanSentiment   float64      `json:"mean_sentiment"`
	PositivePercent float64      `json:"positive_percent"`
	BandCounts      map[Band]int `json:"band_counts"`
	CitiesWithData  int          `json:"cities_with_data"`
	PillarsWithData int          `json:"pillars_with_data"`
}

// Aggregates are the derived views over a run's item table. They are always recomputed
// from the full table.
type Aggregates struct {
	ByCity       []AggregateRow `json:"by_city"`
	ByPillar     []AggregateRow `json:"by_pillar"`
	ByCityPillar []AggregateRow `json:"by_city_pillar"`
	BySourceCity []AggregateRow `json:"by_source_city"`
	Summary      Summary        `json:"summary"`
}

// RunRequest is the immutable selection a run is executed with.
type RunRequest struct {
	Cities           []string `json:"cities"`
	Pillars          []string `json:"pillars"`
	TimeWindowMonths int      `json:"time_window_months"`
	ItemsPerCityCap  int      `json:"items_per_city_cap"`
}

// Run is a stored analysis run.
type Run struct {
	ID         uuid.UUID    `json:"id"`
	Status     RunStatus    `json:"status"`
	Request    RunRequest   `json:"request"`
	Window     TimeWindow   `json:"window"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Items      []ScoredItem `json:"items"`
	Warnings   []Warning    `json:"warnings"`
	Aggregates Aggregates   `json:"aggregates"`
	Cancelled  bool         `json:"cancelled"`
	Error      string       `json:"error,omitempty"`
}

// RunOverview is the listing form of a Run, without its item table.
type RunOverview struct {
	ID            uuid.UUID  `json:"id"`
	Status        RunStatus  `json:"status"`
	Cities        []string   `json:"cities"`
	Pillars       []string   `json:"pillars"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	ItemCount     int        `json:"item_count"`
	MeanSentiment float64    `json:"mean_sentiment"`
	Cancelled     bool       `json:"cancelled"`
}

// Overview summarises the run for listings.
func (r *Run) Overview() RunOverview {
	return RunOverview{
		ID:            r.ID,
		Status:        r.Status,
		Cities:        r.Request.Cities,
		Pillars:       r.Request.Pillars,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		ItemCount:     len(r.Items),
		MeanSentiment: r.Aggregates.Summary.MeanSentiment,
		Cancelled:     r.Cancelled,
	}
}

// Research is the output of one deep-research completion.
type Research struct {
	Content        string    `json:"content"`
	GeneratedAt    time.Time `json:"generated_at"`
	Cities         []string  `json:"cities"`
	Pillars        []string  `json:"pillars"`
	Period         string    `json:"period"`
	Model          string    `json:"model"`
	PromptLength   int       `json:"prompt_length"`
	ResponseLength int       `json:"response_length"`
	Status         string    `json:"status"`
}
