package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"citypulse/internal/models"
	"citypulse/internal/util"
)

const redditPageLimit = 100

// RedditSource searches r/all by relevance.
type RedditSource struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

type redditPost struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Created     float64 `json:"created_utc"`
	SelfText    string  `json:"selftext"`
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewRedditSource(baseURL, userAgent string, timeout time.Duration) *RedditSource {
	if baseURL == "" {
		baseURL = "https://www.reddit.com"
	}
	if userAgent == "" {
		userAgent = "citypulse/1.0"
	}
	return &RedditSource{
		HTTPClient: newHTTPClient(timeout),
		BaseURL:    baseURL,
		UserAgent:  userAgent,
	}
}

func (s *RedditSource) Name() string            { return "reddit" }
func (s *RedditSource) Kind() models.SourceKind { return models.SourceSocial }

// Fetch pages through search results until MaxItems posts inside the window are collected
// or the listing runs out.
func (s *RedditSource) Fetch(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
	var items []models.ContentItem
	after := ""
	for len(items) < req.MaxItems {
		listing, err := s.search(ctx, req, minInt(req.MaxItems-len(items), redditPageLimit), after)
		if err != nil {
			return nil, err
		}
		for _, child := range listing.Data.Children {
			if len(items) >= req.MaxItems {
				break
			}
			if it, ok := s.toItem(child.Data, req); ok {
				items = append(items, it)
			}
		}
		after = listing.Data.After
		if after == "" || len(listing.Data.Children) == 0 {
			break
		}
	}
	log.Debugf("reddit: %d posts for %q", len(items), req.Query)
	return items, nil
}

func (s *RedditSource) search(ctx context.Context, req models.FetchRequest, limit int, after string) (*redditListing, error) {
	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("sort", "relevance")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("t", redditTimeRange(req.Window))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	endpoint := fmt.Sprintf("%s/r/all/search.json?%s", s.BaseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retrievalError(s.Name(), req, "failed to create request", err)
	}
	httpReq.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, retrievalError(s.Name(), req, "failed to connect to Reddit API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(s.Name(), req, resp)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, retrievalError(s.Name(), req, "failed to decode Reddit API response", err)
	}
	return &listing, nil
}

func (s *RedditSource) toItem(p redditPost, req models.FetchRequest) (models.ContentItem, bool) {
	title := util.CleanText(p.Title)
	if title == "" {
		return models.ContentItem{}, false
	}
	var published *time.Time
	if p.Created > 0 {
		t := time.Unix(int64(p.Created), 0).UTC()
		if !inWindow(t, req.Window) {
			return models.ContentItem{}, false
		}
		published = &t
	}
	link := p.URL
	if link == "" && p.Permalink != "" {
		link = "https://www.reddit.com" + p.Permalink
	}
	return models.ContentItem{
		Title:       title,
		Body:        util.CleanText(p.SelfText),
		City:        req.City,
		SourceKind:  models.SourceSocial,
		SourceName:  s.Name(),
		Publisher:   "r/" + p.Subreddit,
		OriginURL:   link,
		Engagement:  &models.Engagement{Upvotes: p.Score, Comments: p.NumComments},
		PublishedAt: published,
	}, true
}

// redditTimeRange picks the narrowest search range that still covers the window.
func redditTimeRange(w models.TimeWindow) string {
	if w.Start.IsZero() {
		return "all"
	}
	span := w.End.Sub(w.Start)
	switch {
	case span <= 24*time.Hour:
		return "day"
	case span <= 7*24*time.Hour:
		return "week"
	case span <= 31*24*time.Hour:
		return "month"
	case span <= 366*24*time.Hour:
		return "year"
	default:
		return "all"
	}
}
