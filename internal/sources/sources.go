// Package sources implements the content source adapters: Reddit search, NewsAPI and
// Bluesky post search.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"citypulse/internal/models"
)

const defaultTimeout = 20 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// retrievalError wraps a failure for one query.
func retrievalError(source string, req models.FetchRequest, reason string, err error) error {
	return &models.RetrievalError{Source: source, Query: req.Query, Reason: reason, Err: err}
}

func statusError(source string, req models.FetchRequest, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return retrievalError(source, req, fmt.Sprintf("%s API returned status %d: %s", source, resp.StatusCode, string(body)), nil)
}

func inWindow(t time.Time, w models.TimeWindow) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// StaticSource serves a fixed list of items, used by the doctor command and tests.
type StaticSource struct {
	SourceName string
	SourceKind models.SourceKind
	Items      []models.ContentItem
}

func (s *StaticSource) Name() string            { return s.SourceName }
func (s *StaticSource) Kind() models.SourceKind { return s.SourceKind }

func (s *StaticSource) Fetch(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, retrievalError(s.SourceName, req, "cancelled", err)
	}
	n := minInt(len(s.Items), req.MaxItems)
	return append([]models.ContentItem(nil), s.Items[:n]...), nil
}
