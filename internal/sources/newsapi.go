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

// NewsAPIPageLimit is the largest pageSize NewsAPI accepts.
const NewsAPIPageLimit = 100

// NewsAPISource queries the NewsAPI /v2/everything endpoint.
type NewsAPISource struct {
	HTTPClient *http.Client
	BaseURL    string
	apiKey     string
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
		Content     string    `json:"content"`
	} `json:"articles"`
}

func NewNewsAPISource(baseURL, apiKey string, timeout time.Duration) *NewsAPISource {
	if baseURL == "" {
		baseURL = "https://newsapi.org"
	}
	return &NewsAPISource{
		HTTPClient: newHTTPClient(timeout),
		BaseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (s *NewsAPISource) Name() string            { return "newsapi" }
func (s *NewsAPISource) Kind() models.SourceKind { return models.SourceNews }

func (s *NewsAPISource) Fetch(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
	if s.apiKey == "" {
		return nil, retrievalError(s.Name(), req, "NewsAPI key is not configured", nil)
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("pageSize", strconv.Itoa(minInt(req.MaxItems, NewsAPIPageLimit)))
	q.Set("language", "en")
	q.Set("sortBy", "relevancy")
	if !req.Window.Start.IsZero() {
		q.Set("from", req.Window.Start.Format("2006-01-02"))
	}
	if !req.Window.End.IsZero() {
		q.Set("to", req.Window.End.Format("2006-01-02"))
	}
	endpoint := fmt.Sprintf("%s/v2/everything?%s", s.BaseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retrievalError(s.Name(), req, "failed to create request", err)
	}
	httpReq.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, retrievalError(s.Name(), req, "failed to connect to NewsAPI", err)
	}
	defer resp.Body.Close()

	var apiResp newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, retrievalError(s.Name(), req, fmt.Sprintf("NewsAPI returned status %d", resp.StatusCode), nil)
		}
		return nil, retrievalError(s.Name(), req, "failed to decode NewsAPI response", err)
	}
	if apiResp.Status != "ok" {
		reason := apiResp.Message
		if reason == "" {
			reason = fmt.Sprintf("status %q (HTTP %d)", apiResp.Status, resp.StatusCode)
		}
		return nil, retrievalError(s.Name(), req, "NewsAPI error: "+reason, nil)
	}

	items := make([]models.ContentItem, 0, len(apiResp.Articles))
	for _, a := range apiResp.Articles {
		if len(items) >= req.MaxItems {
			break
		}
		title := util.CleanText(a.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		body := a.Description
		if body == "" {
			body = a.Content
		}
		item := models.ContentItem{
			Title:      title,
			Body:       util.StripHTML(body),
			City:       req.City,
			SourceKind: models.SourceNews,
			SourceName: s.Name(),
			Publisher:  a.Source.Name,
			OriginURL:  a.URL,
		}
		if !a.PublishedAt.IsZero() {
			t := a.PublishedAt.UTC()
			item.PublishedAt = &t
		}
		items = append(items, item)
	}
	log.Debugf("newsapi: %d articles for %q (total %d)", len(items), req.Query, apiResp.TotalResults)
	return items, nil
}
