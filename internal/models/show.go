package models

import "time"

// Show represents a tracked show and its download progress
type Show struct {
	ID uint64 `boltholdKey:"ID"`

	Title     string `boltholdIndex:"Title"` // Canonical title (from metadata lookup or user)
	Alternate string // Search title used against feeds; falls back to Title when empty
	Aliases   []string

	Season int // Season being tracked (1 for long-running shows)

	// Source selects the feed adapter, e.g. "subsplease",
	// "nyaa:subsplease", "nyaa:Erai-raws", "nyaa_scrape:subsplease"
	Source string

	Quality        string // Minimum resolution, e.g. "1080p"
	PreferredGroup string // Release group preference, empty for none
	DownloadDir    string // Override for the destination folder, empty for default

	// Watermark: highest episode successfully handed to the download client
	LastDownloadedEpisode int
	LastDownloadedHash    string

	Tracked bool `boltholdIndex:"Tracked"`

	// Cached metadata from the lookup boundary (informational only)
	NextAiringEpisode int
	NextAirDate       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchTitle returns the title to use in feed queries
func (s *Show) SearchTitle() string {
	if s.Alternate != "" {
		return s.Alternate
	}
	return s.Title
}
