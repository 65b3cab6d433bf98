package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
)

func testClient() *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(5*time.Second, logger)
}

const sampleNyaaRSS = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:nyaa="https://nyaa.si/xmlns/nyaa">
  <channel>
    <title>Nyaa - "subsplease frieren" - Torrent File RSS</title>
    <item>
      <title>[SubsPlease] Frieren - 05 (1080p) [ABCD1234].mkv</title>
      <link>https://nyaa.si/download/1800001.torrent</link>
      <guid isPermaLink="true">https://nyaa.si/view/1800001</guid>
      <pubDate>Fri, 03 Nov 2023 14:02:11 -0000</pubDate>
      <nyaa:seeders>842</nyaa:seeders>
      <nyaa:leechers>31</nyaa:leechers>
      <nyaa:infoHash>aaaabbbbccccddddeeeeffff0000111122223333</nyaa:infoHash>
      <nyaa:categoryId>1_2</nyaa:categoryId>
      <nyaa:size>1.4 GiB</nyaa:size>
    </item>
    <item>
      <title>[SubsPlease] Frieren - 05 (720p) [99887766].mkv</title>
      <link>https://nyaa.si/download/1800002.torrent</link>
      <guid isPermaLink="true">https://nyaa.si/view/1800002</guid>
      <pubDate>Fri, 03 Nov 2023 14:01:45 -0000</pubDate>
      <nyaa:seeders>not-a-number</nyaa:seeders>
      <nyaa:leechers>12</nyaa:leechers>
      <nyaa:infoHash>ffffeeeeddddccccbbbbaaaa9999888877776666</nyaa:infoHash>
      <nyaa:categoryId>1_2</nyaa:categoryId>
      <nyaa:size>700 MiB</nyaa:size>
    </item>
    <item>
      <title></title>
      <link>https://nyaa.si/download/1800003.torrent</link>
    </item>
  </channel>
</rss>`

func TestParseNyaaFeed(t *testing.T) {
	result, err := parseNyaaFeed([]byte(sampleNyaaRSS))
	if err != nil {
		t.Fatalf("parseNyaaFeed: %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped item, got %d", result.Skipped)
	}

	first := result.Items[0]
	if first.Title != "[SubsPlease] Frieren - 05 (1080p) [ABCD1234].mkv" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.TorrentLink != "https://nyaa.si/download/1800001.torrent" {
		t.Errorf("unexpected torrent link: %q", first.TorrentLink)
	}
	if first.ViewURL != "https://nyaa.si/view/1800001" {
		t.Errorf("unexpected view URL: %q", first.ViewURL)
	}
	if first.Seeders != 842 {
		t.Errorf("expected 842 seeders, got %d", first.Seeders)
	}
	if first.InfoHash != "aaaabbbbccccddddeeeeffff0000111122223333" {
		t.Errorf("unexpected info hash: %q", first.InfoHash)
	}
	if first.PubDate.IsZero() {
		t.Error("expected pubDate to parse")
	}
	if first.Origin != models.SourceNyaa {
		t.Errorf("unexpected origin: %q", first.Origin)
	}

	// Malformed seeder count must not fail the item
	if result.Items[1].Seeders != 0 {
		t.Errorf("expected 0 seeders for malformed count, got %d", result.Items[1].Seeders)
	}
}

func TestParseNyaaFeedInvalidXML(t *testing.T) {
	if _, err := parseNyaaFeed([]byte("not xml at all <<<")); err == nil {
		t.Fatal("expected error for invalid XML")
	}
}

func TestNyaaSourceFetch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleNyaaRSS))
	}))
	defer server.Close()

	client := testClient()
	client.nyaaBaseURL = server.URL

	source := &NyaaSource{client: client, uploader: "subsplease"}
	show := &models.Show{Title: "Frieren 2nd Season", Quality: "1080p"}

	result, err := source.Fetch(context.Background(), show)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	// Season suffix is stripped from the search query
	if gotQuery != "subsplease Frieren" {
		t.Errorf("unexpected query: %q", gotQuery)
	}
}

func TestClientGetClientErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient()
	if _, err := client.get(context.Background(), server.URL); err == nil {
		t.Fatal("expected error on 404")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 request for a 4xx response, got %d", calls)
	}
}

func TestRegistryForShow(t *testing.T) {
	registry := NewRegistry(testClient())

	tests := []struct {
		source string
		want   models.SourceKind
	}{
		{"subsplease", models.SourceSubsPlease},
		{"subsplease_direct", models.SourceSubsPlease},
		{"nyaa:Erai-raws", models.SourceNyaa},
		{"nyaa_scrape:subsplease", models.SourceNyaaScrape},
		{"Erai-raws", models.SourceNyaa},
		{"", models.SourceNyaa},
	}
	for _, tt := range tests {
		src := registry.ForShow(&models.Show{Source: tt.source})
		if src.Kind() != tt.want {
			t.Errorf("ForShow(%q) = %q, want %q", tt.source, src.Kind(), tt.want)
		}
	}

	if s, ok := registry.ForShow(&models.Show{Source: "nyaa:Erai-raws"}).(*NyaaSource); !ok || s.uploader != "Erai-raws" {
		t.Errorf("expected nyaa source with uploader Erai-raws")
	}
}
