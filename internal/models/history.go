package models

import "time"

// DownloadRecord is one dispatch attempt for a (show, episode) pair.
// At most one record with OutcomeSuccess exists per pair; the dispatcher
// checks before submitting.
type DownloadRecord struct {
	ID      uint64 `boltholdKey:"ID"`
	ShowID  uint64 `boltholdIndex:"ShowID"`
	Episode int

	InfoHash   string `boltholdIndex:"InfoHash"` // content identifier; synthetic for hashless feeds
	TorrentURL string

	Outcome Outcome `boltholdIndex:"Outcome"`
	Reason  string  // failure reason, empty on success

	CreatedAt time.Time
}
