package models

import "time"

// Candidate is a discovered release annotated with parsed metadata.
// It lives for one poll cycle and is never persisted.
type Candidate struct {
	// Raw feed fields
	Title       string
	TorrentLink string
	ViewURL     string
	InfoHash    string
	Size        string
	Seeders     int
	PubDate     time.Time
	Origin      SourceKind

	// Parsed annotation
	ShowGuess  string
	Season     int // 0 when the title carries no season marker
	Episode    int
	Resolution string // empty when not present in the title
	Group      string // "unknown" when no bracket prefix

	// Position in the fetched batch, used as the first-seen tiebreaker
	FirstSeen int
}

// ContentID returns the stable identifier used for dedup. Feeds without an
// info hash fall back to the torrent link.
func (c *Candidate) ContentID() string {
	if c.InfoHash != "" {
		return c.InfoHash
	}
	return "url:" + c.TorrentLink
}

// CycleResult aggregates what one poll cycle did, for observability only.
type CycleResult struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Shows      int               `json:"shows"`
	ItemsSeen  int               `json:"items_seen"`
	Skipped    int               `json:"skipped"`
	Accepted   int               `json:"accepted"`
	Downloaded int               `json:"downloaded"`
	Errors     map[string]string `json:"errors,omitempty"` // show title -> error
}
