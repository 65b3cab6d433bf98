package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/utils"
)

// SubsPleaseSource fetches the SubsPlease direct RSS feed. The feed is
// site-wide per quality, so results are filtered down to the show here.
type SubsPleaseSource struct {
	client *Client
}

type subsPleaseFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []subsPleaseItem `xml:"item"`
	} `xml:"channel"`
}

type subsPleaseItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
	Size    string `xml:"size"`
}

// Kind identifies this source
func (s *SubsPleaseSource) Kind() models.SourceKind {
	return models.SourceSubsPlease
}

// Fetch pulls the quality-scoped site feed and keeps the items whose
// title contains the show's search title
func (s *SubsPleaseSource) Fetch(ctx context.Context, show *models.Show) (*Result, error) {
	quality := strings.TrimSuffix(show.Quality, "p")
	if quality == "" {
		quality = "1080"
	}
	feedURL := fmt.Sprintf("%s/rss/?t&r=%s", s.client.subsPleaseBase, quality)

	s.client.logger.WithFields(logrus.Fields{
		"url":  feedURL,
		"show": show.Title,
	}).Debug("Fetching SubsPlease RSS feed")

	body, err := s.client.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var feed subsPleaseFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse SubsPlease RSS: %w", err)
	}

	want := strings.ToLower(utils.NormalizeSearchTitle(show.SearchTitle()))

	result := &Result{}
	for _, item := range feed.Channel.Items {
		if item.Title == "" || item.Link == "" {
			result.Skipped++
			continue
		}
		if !strings.Contains(strings.ToLower(item.Title), want) {
			continue
		}

		// Links point at nyaa view pages; derive the .torrent URL from
		// the view ID.
		torrentLink := item.Link
		if id, ok := nyaaViewID(item.Link); ok {
			torrentLink = fmt.Sprintf("%s/download/%s.torrent", s.client.nyaaBaseURL, id)
		}

		result.Items = append(result.Items, Item{
			Title:       item.Title,
			TorrentLink: torrentLink,
			ViewURL:     item.Link,
			Size:        item.Size,
			PubDate:     parsePubDate(item.PubDate),
			Origin:      models.SourceSubsPlease,
		})
	}

	return result, nil
}

// nyaaViewID extracts the numeric ID from a nyaa.si/view/<id> URL
func nyaaViewID(link string) (string, bool) {
	idx := strings.Index(link, "/view/")
	if idx < 0 {
		return "", false
	}
	id := link[idx+len("/view/"):]
	if j := strings.IndexAny(id, "/?#"); j >= 0 {
		id = id[:j]
	}
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}
