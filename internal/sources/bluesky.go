package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/xrpc"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/models"
	"citypulse/internal/util"
)

const (
	searchPostsMethod = "app.bsky.feed.searchPosts"
	blueskyPageLimit  = 100
)

// BlueskySource searches public Bluesky posts through the AppView XRPC API.
type BlueskySource struct {
	client *xrpc.Client
}

type searchPostsOutput struct {
	Cursor string `json:"cursor"`
	Posts  []struct {
		URI    string `json:"uri"`
		Author struct {
			Handle      string `json:"handle"`
			DisplayName string `json:"displayName"`
		} `json:"author"`
		Record struct {
			Text      string `json:"text"`
			CreatedAt string `json:"createdAt"`
		} `json:"record"`
		LikeCount  int `json:"likeCount"`
		ReplyCount int `json:"replyCount"`
	} `json:"posts"`
}

func NewBlueskySource(host string, timeout time.Duration) *BlueskySource {
	if host == "" {
		host = "https://public.api.bsky.app"
	}
	return &BlueskySource{client: &xrpc.Client{
		Client: newHTTPClient(timeout),
		Host:   host,
	}}
}

func (s *BlueskySource) Name() string            { return "bluesky" }
func (s *BlueskySource) Kind() models.SourceKind { return models.SourceSocial }

func (s *BlueskySource) Fetch(ctx context.Context, req models.FetchRequest) ([]models.ContentItem, error) {
	var items []models.ContentItem
	cursor := ""
	for len(items) < req.MaxItems {
		params := map[string]interface{}{
			"q":     req.Query,
			"limit": minInt(req.MaxItems-len(items), blueskyPageLimit),
			"sort":  "top",
			"lang":  "en",
		}
		if !req.Window.Start.IsZero() {
			params["since"] = req.Window.Start.Format(time.RFC3339)
		}
		if !req.Window.End.IsZero() {
			params["until"] = req.Window.End.Format(time.RFC3339)
		}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var out searchPostsOutput
		if err := s.client.Do(ctx, xrpc.Query, "json", searchPostsMethod, params, nil, &out); err != nil {
			return nil, retrievalError(s.Name(), req, "searchPosts failed", err)
		}

		for _, p := range out.Posts {
			if len(items) >= req.MaxItems {
				break
			}
			text := util.CleanText(p.Record.Text)
			if text == "" {
				continue
			}
			item := models.ContentItem{
				Title:      util.Truncate(text, 300),
				City:       req.City,
				SourceKind: models.SourceSocial,
				SourceName: s.Name(),
				Publisher:  p.Author.Handle,
				OriginURL:  PostURL(p.URI, p.Author.Handle),
				Engagement: &models.Engagement{Upvotes: p.LikeCount, Comments: p.ReplyCount},
			}
			if t, err := time.Parse(time.RFC3339, p.Record.CreatedAt); err == nil {
				if !inWindow(t, req.Window) {
					continue
				}
				t = t.UTC()
				item.PublishedAt = &t
			}
			items = append(items, item)
		}

		cursor = out.Cursor
		if cursor == "" || len(out.Posts) == 0 {
			break
		}
	}
	log.Debugf("bluesky: %d posts for %q", len(items), req.Query)
	return items, nil
}

// PostURL turns at://did/app.bsky.feed.post/rkey into a bsky.app link.
func PostURL(atURI, handle string) string {
	rest := strings.TrimPrefix(atURI, "at://")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "app.bsky.feed.post" {
		return atURI
	}
	actor := parts[0]
	if handle != "" {
		actor = handle
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", actor, parts[2])
}
