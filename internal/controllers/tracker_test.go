package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/animarr/animarr/internal/feeds"
	"github.com/animarr/animarr/internal/filters"
	"github.com/animarr/animarr/internal/models"
)

func rssDocument(titles []string) string {
	var items strings.Builder
	for i, title := range titles {
		fmt.Fprintf(&items, `<item>
  <title>%s</title>
  <link>https://nyaa.si/download/%d.torrent</link>
  <guid isPermaLink="true">https://nyaa.si/view/%d</guid>
  <pubDate>Fri, 03 Nov 2023 14:02:11 -0000</pubDate>
  <nyaa:seeders>100</nyaa:seeders>
  <nyaa:leechers>5</nyaa:leechers>
  <nyaa:infoHash>%040d</nyaa:infoHash>
  <nyaa:categoryId>1_2</nyaa:categoryId>
  <nyaa:size>1.4 GiB</nyaa:size>
</item>`, title, 1000+i, 1000+i, 1000+i)
	}
	return `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:nyaa="https://nyaa.si/xmlns/nyaa"><channel><title>search</title>` +
		items.String() + `</channel></rss>`
}

// trackerFixture wires a tracker against an httptest nyaa feed
type trackerFixture struct {
	db      *models.Database
	client  *fakeTorrentClient
	tracker *Tracker
}

func newTrackerFixture(t *testing.T, handler http.Handler) *trackerFixture {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := testLogger()
	db := newTestDB(t)

	feedClient := feeds.NewClient(5*time.Second, logger)
	feedClient.SetBaseURLs(server.URL, server.URL)

	client := &fakeTorrentClient{}
	dispatcher := NewDispatcher(db, client, "/data/Anime", logger)
	selector := defaultSelector()
	engine := filters.NewEngine(logger)

	return &trackerFixture{
		db:      db,
		client:  client,
		tracker: NewTracker(db, feeds.NewRegistry(feedClient), engine, selector, dispatcher, 4, logger),
	}
}

func TestRunCycleEpisodeGap(t *testing.T) {
	// Feed offers episodes 4 and 6 at 1080p and episode 5 only at 720p.
	// With a 1080p minimum, 5 is rejected but 4 and 6 still download.
	feed := rssDocument([]string{
		"[SubsPlease] Frieren - 04 (1080p) [AAAA1111].mkv",
		"[SubsPlease] Frieren - 05 (720p) [BBBB2222].mkv",
		"[SubsPlease] Frieren - 06 (1080p) [CCCC3333].mkv",
	})
	fx := newTrackerFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))

	show := createShow(t, fx.db, &models.Show{
		Title: "Frieren", Source: "nyaa:subsplease", Quality: "1080p",
		Tracked: true, LastDownloadedEpisode: 3,
	})

	result, err := fx.tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if result.Shows != 1 {
		t.Errorf("expected 1 show, got %d", result.Shows)
	}
	if result.ItemsSeen != 3 {
		t.Errorf("expected 3 items seen, got %d", result.ItemsSeen)
	}
	if result.Accepted != 2 {
		t.Errorf("expected 2 accepted, got %d", result.Accepted)
	}
	if result.Downloaded != 2 {
		t.Errorf("expected 2 downloads, got %d", result.Downloaded)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	// Episodes dispatched in ascending order
	if fx.client.callCount() != 2 {
		t.Fatalf("expected 2 AddTorrent calls, got %d", fx.client.callCount())
	}

	updated, _ := fx.db.GetShowByID(show.ID)
	if updated.LastDownloadedEpisode != 6 {
		t.Errorf("expected watermark 6 despite the gap at 5, got %d", updated.LastDownloadedEpisode)
	}
}

func TestRunCycleIdempotent(t *testing.T) {
	feed := rssDocument([]string{
		"[SubsPlease] Frieren - 04 (1080p) [AAAA1111].mkv",
	})
	fx := newTrackerFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))

	createShow(t, fx.db, &models.Show{
		Title: "Frieren", Source: "nyaa:subsplease", Quality: "1080p", Tracked: true,
	})

	first, err := fx.tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first RunCycle: %v", err)
	}
	if first.Downloaded != 1 {
		t.Fatalf("expected 1 download in the first cycle, got %d", first.Downloaded)
	}

	// Unchanged feed: the second cycle dispatches nothing
	second, err := fx.tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunCycle: %v", err)
	}
	if second.Downloaded != 0 {
		t.Errorf("expected 0 downloads in the second cycle, got %d", second.Downloaded)
	}
	if fx.client.callCount() != 1 {
		t.Errorf("expected no new AddTorrent calls, got %d total", fx.client.callCount())
	}

	history, err := fx.db.GetAllHistory()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("expected exactly 1 history record, got %d", len(history))
	}
}

func TestRunCycleShowErrorIsolated(t *testing.T) {
	goodFeed := rssDocument([]string{
		"[SubsPlease] Frieren - 04 (1080p) [AAAA1111].mkv",
	})
	fx := newTrackerFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "Broken") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(goodFeed))
	}))

	createShow(t, fx.db, &models.Show{
		Title: "Broken Show", Source: "nyaa:subsplease", Quality: "1080p", Tracked: true,
	})
	createShow(t, fx.db, &models.Show{
		Title: "Frieren", Source: "nyaa:subsplease", Quality: "1080p", Tracked: true,
	})

	result, err := fx.tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if _, ok := result.Errors["Broken Show"]; !ok {
		t.Errorf("expected an error entry for the failing show, got %v", result.Errors)
	}
	// The healthy show still downloaded
	if result.Downloaded != 1 {
		t.Errorf("expected the healthy show to download, got %d", result.Downloaded)
	}
}

func TestRunCycleBatchAndSeasonMismatchSkipped(t *testing.T) {
	feed := rssDocument([]string{
		"[SubsPlease] Frieren - 04 (1080p) [AAAA1111].mkv",
		"[Judas] Frieren S1 01-28 Batch (1080p)",
		"[SubsPlease] Frieren S2 - 01 (1080p) [DDDD4444].mkv",
	})
	fx := newTrackerFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))

	createShow(t, fx.db, &models.Show{
		Title: "Frieren", Source: "nyaa:subsplease", Season: 1, Quality: "1080p", Tracked: true,
	})

	result, err := fx.tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	// Batch rejected at parse, season 2 release skipped for a season-1 show
	if result.Downloaded != 1 {
		t.Errorf("expected only episode 4 to download, got %d", result.Downloaded)
	}
	if result.Skipped != 2 {
		t.Errorf("expected 2 skipped items, got %d", result.Skipped)
	}

	updated, _ := fx.db.GetShowByID(1)
	if updated.LastDownloadedEpisode != 4 {
		t.Errorf("expected watermark 4, got %d", updated.LastDownloadedEpisode)
	}
}

func TestRunCycleNoTrackedShows(t *testing.T) {
	fx := newTrackerFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no fetch expected with no tracked shows")
	}))

	result, err := fx.tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Shows != 0 || result.Downloaded != 0 {
		t.Errorf("expected an empty cycle, got %+v", result)
	}
}
