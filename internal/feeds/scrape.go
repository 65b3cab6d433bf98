package feeds

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/utils"
)

// NyaaScrapeSource parses the nyaa.si HTML listing for an uploader. It is
// the fallback when the RSS feed is unavailable and carries the lowest
// source priority.
type NyaaScrapeSource struct {
	client   *Client
	uploader string
}

var reBtih = regexp.MustCompile(`btih:([0-9a-fA-F]{40})`)

// Kind identifies this source
func (s *NyaaScrapeSource) Kind() models.SourceKind {
	return models.SourceNyaaScrape
}

// Fetch scrapes the uploader's listing page filtered by the show title
func (s *NyaaScrapeSource) Fetch(ctx context.Context, show *models.Show) (*Result, error) {
	query := utils.NormalizeSearchTitle(show.SearchTitle())
	pageURL := fmt.Sprintf("%s/user/%s?f=0&c=1_2&q=%s&s=id&o=desc",
		s.client.nyaaBaseURL, url.PathEscape(s.uploader), url.QueryEscape(query))

	s.client.logger.WithFields(logrus.Fields{
		"url":      pageURL,
		"uploader": s.uploader,
	}).Debug("Scraping nyaa listing")

	body, err := s.client.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	return s.parseListing(body)
}

func (s *NyaaScrapeSource) parseListing(body []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nyaa listing: %w", err)
	}

	result := &Result{}
	doc.Find("table.torrent-list tbody tr").Each(func(_ int, row *goquery.Selection) {
		viewLink := row.Find(`a[href^="/view/"]`).FilterFunction(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return !strings.Contains(href, "#comments")
		}).First()

		title := strings.TrimSpace(viewLink.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(viewLink.Text())
		}
		viewHref := viewLink.AttrOr("href", "")

		torrentHref := row.Find(`a[href$=".torrent"]`).First().AttrOr("href", "")
		magnetHref := row.Find(`a[href^="magnet:"]`).First().AttrOr("href", "")

		if title == "" || (torrentHref == "" && magnetHref == "") {
			result.Skipped++
			return
		}

		torrentLink := magnetHref
		if torrentHref != "" {
			torrentLink = s.client.nyaaBaseURL + torrentHref
		}

		var infoHash string
		if m := reBtih.FindStringSubmatch(magnetHref); m != nil {
			infoHash = strings.ToLower(m[1])
		}

		var seeders int
		cells := row.Find("td")
		if cells.Length() >= 6 {
			seeders, _ = strconv.Atoi(strings.TrimSpace(cells.Eq(5).Text()))
		}

		item := Item{
			Title:       title,
			TorrentLink: torrentLink,
			InfoHash:    infoHash,
			Seeders:     seeders,
			Origin:      models.SourceNyaaScrape,
		}
		if viewHref != "" {
			item.ViewURL = s.client.nyaaBaseURL + viewHref
		}
		if cells.Length() >= 4 {
			item.Size = strings.TrimSpace(cells.Eq(3).Text())
		}
		result.Items = append(result.Items, item)
	})

	return result, nil
}
