// Package anilist looks up anime metadata on the AniList GraphQL API.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultEndpoint = "https://graphql.anilist.co"

// Anime is the subset of AniList media data the tracker cares about
type Anime struct {
	ID                int
	TitleRomaji       string
	TitleEnglish      string
	NextAiringEpisode int
	NextAirDate       time.Time
}

// Client queries the AniList GraphQL endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates an AniList client
func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

const searchQuery = `query ($search: String) {
  Media(search: $search, type: ANIME) {
    id
    title { romaji english }
    nextAiringEpisode { episode airingAt }
  }
}`

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type searchResponse struct {
	Data struct {
		Media *struct {
			ID    int `json:"id"`
			Title struct {
				Romaji  string `json:"romaji"`
				English string `json:"english"`
			} `json:"title"`
			NextAiringEpisode *struct {
				Episode  int   `json:"episode"`
				AiringAt int64 `json:"airingAt"`
			} `json:"nextAiringEpisode"`
		} `json:"Media"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SearchAnime resolves a title to its AniList entry
func (c *Client) SearchAnime(ctx context.Context, title string) (*Anime, error) {
	payload, err := json.Marshal(graphqlRequest{
		Query:     searchQuery,
		Variables: map[string]interface{}{"search": title},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("AniList request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read AniList response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AniList returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode AniList response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("AniList error: %s", parsed.Errors[0].Message)
	}
	if parsed.Data.Media == nil {
		return nil, fmt.Errorf("no AniList entry for %q", title)
	}

	media := parsed.Data.Media
	anime := &Anime{
		ID:           media.ID,
		TitleRomaji:  media.Title.Romaji,
		TitleEnglish: media.Title.English,
	}
	if media.NextAiringEpisode != nil {
		anime.NextAiringEpisode = media.NextAiringEpisode.Episode
		anime.NextAirDate = time.Unix(media.NextAiringEpisode.AiringAt, 0).UTC()
	}

	c.logger.WithFields(logrus.Fields{
		"title":        title,
		"anilist_id":   anime.ID,
		"next_episode": anime.NextAiringEpisode,
	}).Debug("Resolved anime metadata")

	return anime, nil
}
