package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/utils"
)

// NyaaSource fetches the nyaa.si RSS search feed for an uploader + show
type NyaaSource struct {
	client   *Client
	uploader string
}

// nyaaFeed mirrors the nyaa.si RSS document, including the nyaa:
// namespaced elements. Numeric fields stay strings so one malformed item
// cannot fail the whole document.
type nyaaFeed struct {
	XMLName xml.Name    `xml:"rss"`
	Channel nyaaChannel `xml:"channel"`
}

type nyaaChannel struct {
	Title string     `xml:"title"`
	Items []nyaaItem `xml:"item"`
}

type nyaaItem struct {
	Title      string `xml:"title"`
	Link       string `xml:"link"`
	GUID       string `xml:"guid"`
	PubDate    string `xml:"pubDate"`
	Seeders    string `xml:"seeders"`
	Leechers   string `xml:"leechers"`
	InfoHash   string `xml:"infoHash"`
	CategoryID string `xml:"categoryId"`
	Size       string `xml:"size"`
}

// Kind identifies this source
func (s *NyaaSource) Kind() models.SourceKind {
	return models.SourceNyaa
}

// Fetch queries the nyaa RSS search endpoint with "<uploader> <title>"
// scoped to the English-translated anime category
func (s *NyaaSource) Fetch(ctx context.Context, show *models.Show) (*Result, error) {
	query := s.uploader + " " + utils.NormalizeSearchTitle(show.SearchTitle())
	feedURL := fmt.Sprintf("%s/?page=rss&q=%s&c=1_2&f=0", s.client.nyaaBaseURL, url.QueryEscape(query))

	s.client.logger.WithFields(logrus.Fields{
		"url":   feedURL,
		"query": query,
	}).Debug("Fetching nyaa RSS feed")

	body, err := s.client.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	return parseNyaaFeed(body)
}

func parseNyaaFeed(body []byte) (*Result, error) {
	var feed nyaaFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse nyaa RSS: %w", err)
	}

	result := &Result{}
	for _, item := range feed.Channel.Items {
		if item.Title == "" || item.Link == "" {
			result.Skipped++
			continue
		}

		seeders, _ := strconv.Atoi(item.Seeders)
		leechers, _ := strconv.Atoi(item.Leechers)

		result.Items = append(result.Items, Item{
			Title:       item.Title,
			TorrentLink: item.Link,
			ViewURL:     item.GUID,
			InfoHash:    item.InfoHash,
			Size:        item.Size,
			Seeders:     seeders,
			Leechers:    leechers,
			PubDate:     parsePubDate(item.PubDate),
			Origin:      models.SourceNyaa,
		})
	}

	return result, nil
}
