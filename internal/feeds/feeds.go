// Package feeds fetches release listings from upstream sources and
// normalizes them into a common item representation. Sources are
// re-fetched in full every cycle; dedup happens downstream against the
// download history.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
)

const (
	defaultNyaaBaseURL       = "https://nyaa.si"
	defaultSubsPleaseBaseURL = "https://subsplease.org"

	maxFetchRetries = 2
	maxBodySize     = 8 * 1024 * 1024 // 8MB
)

// Item is a normalized release listing entry
type Item struct {
	Title       string
	TorrentLink string
	ViewURL     string
	InfoHash    string
	Size        string
	Seeders     int
	Leechers    int
	PubDate     time.Time
	Origin      models.SourceKind
}

// Result is one fetch: the normalized items plus how many malformed
// entries were skipped
type Result struct {
	Items   []Item
	Skipped int
}

// Source fetches release candidates for a show
type Source interface {
	Kind() models.SourceKind
	Fetch(ctx context.Context, show *models.Show) (*Result, error)
}

// Client holds the HTTP plumbing shared by all sources
type Client struct {
	httpClient     *http.Client
	nyaaBaseURL    string
	subsPleaseBase string
	logger         *logrus.Logger
}

// NewClient creates a feed client with a bounded request timeout
func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		nyaaBaseURL:    defaultNyaaBaseURL,
		subsPleaseBase: defaultSubsPleaseBaseURL,
		logger:         logger,
	}
}

// SetBaseURLs overrides the upstream endpoints, for mirror deployments.
// Empty strings keep the defaults.
func (c *Client) SetBaseURLs(nyaa, subsPlease string) {
	if nyaa != "" {
		c.nyaaBaseURL = nyaa
	}
	if subsPlease != "" {
		c.subsPleaseBase = subsPlease
	}
}

// get fetches a URL with bounded exponential backoff on transient
// failures. 4xx responses are not retried; a hung upstream is cut off by
// the client timeout.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", "animarr/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("fetch returned status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxFetchRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	return body, nil
}

// Registry maps a show's source string to a feed source
type Registry struct {
	client *Client
}

// NewRegistry creates a source registry backed by one shared client
func NewRegistry(client *Client) *Registry {
	return &Registry{client: client}
}

// ForShow resolves the source for a show. Recognized forms:
//
//	"subsplease" / "subsplease_direct"  -> SubsPlease direct RSS
//	"nyaa:<uploader>"                   -> nyaa RSS search
//	"nyaa_scrape:<uploader>"            -> nyaa HTML listing
//	"<uploader>"                        -> nyaa RSS search (legacy form)
func (r *Registry) ForShow(show *models.Show) Source {
	source := strings.ToLower(strings.TrimSpace(show.Source))

	switch {
	case source == "subsplease" || source == "subsplease_direct":
		return &SubsPleaseSource{client: r.client}
	case strings.HasPrefix(source, "nyaa_scrape:"):
		return &NyaaScrapeSource{client: r.client, uploader: strings.TrimPrefix(strings.TrimSpace(show.Source), "nyaa_scrape:")}
	case strings.HasPrefix(source, "nyaa:"):
		return &NyaaSource{client: r.client, uploader: strings.TrimPrefix(strings.TrimSpace(show.Source), "nyaa:")}
	case source == "":
		return &NyaaSource{client: r.client, uploader: "subsplease"}
	default:
		return &NyaaSource{client: r.client, uploader: strings.TrimSpace(show.Source)}
	}
}

func parsePubDate(value string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
