package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = bolthold.ErrNotFound

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase opens the database and seeds default filter rules on first run
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &Database{store: store}
	if err := db.seedDefaultRules(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to seed default filter rules: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// seedDefaultRules inserts the out-of-the-box rule set when no rules exist:
// reject batch releases, accept anything at or above the show's minimum
// resolution. An empty at_least pattern means "the show's own minimum".
func (db *Database) seedDefaultRules() error {
	var rules []*FilterRule
	if err := db.store.Find(&rules, nil); err != nil {
		return err
	}
	if len(rules) > 0 {
		return nil
	}

	defaults := []*FilterRule{
		{Name: "Reject batch releases", Field: FieldTitle, Op: OpContains, Pattern: "batch", Action: ActionReject, Priority: 100, Enabled: true},
		{Name: "Accept at show minimum resolution", Field: FieldResolution, Op: OpAtLeast, Pattern: "", Action: ActionAccept, Priority: 10, Enabled: true},
	}

	for _, rule := range defaults {
		if err := db.CreateFilterRule(rule); err != nil {
			return err
		}
	}
	return nil
}

// Show operations

// CreateShow creates a new tracked show
func (db *Database) CreateShow(show *Show) error {
	show.CreatedAt = time.Now()
	show.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), show)
}

// UpdateShow updates an existing show
func (db *Database) UpdateShow(show *Show) error {
	show.UpdatedAt = time.Now()
	return db.store.Update(show.ID, show)
}

// GetShowByID retrieves a show by ID
func (db *Database) GetShowByID(id uint64) (*Show, error) {
	var show Show
	if err := db.store.Get(id, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// GetTrackedShows retrieves all shows with tracking enabled
func (db *Database) GetTrackedShows() ([]*Show, error) {
	var shows []*Show
	err := db.store.Find(&shows, bolthold.Where("Tracked").Eq(true))
	return shows, err
}

// GetAllShows retrieves every show
func (db *Database) GetAllShows() ([]*Show, error) {
	var shows []*Show
	err := db.store.Find(&shows, nil)
	return shows, err
}

// DeleteShow deletes a show by ID
func (db *Database) DeleteShow(id uint64) error {
	return db.store.Delete(id, &Show{})
}

// AdvanceWatermark moves the show's last downloaded episode forward, never
// backward, and records the hash of the release that advanced it.
func (db *Database) AdvanceWatermark(showID uint64, episode int, hash string) error {
	show, err := db.GetShowByID(showID)
	if err != nil {
		return err
	}
	if episode <= show.LastDownloadedEpisode {
		return nil
	}
	show.LastDownloadedEpisode = episode
	show.LastDownloadedHash = hash
	return db.UpdateShow(show)
}

// FilterRule operations

// CreateFilterRule creates a new filter rule
func (db *Database) CreateFilterRule(rule *FilterRule) error {
	rule.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), rule)
}

// UpdateFilterRule updates an existing filter rule
func (db *Database) UpdateFilterRule(rule *FilterRule) error {
	return db.store.Update(rule.ID, rule)
}

// DeleteFilterRule deletes a filter rule by ID
func (db *Database) DeleteFilterRule(id uint64) error {
	return db.store.Delete(id, &FilterRule{})
}

// GetGlobalFilterRules retrieves all global rules
func (db *Database) GetGlobalFilterRules() ([]*FilterRule, error) {
	var rules []*FilterRule
	err := db.store.Find(&rules, bolthold.Where("ShowID").Eq(uint64(0)))
	return rules, err
}

// GetShowFilterRules retrieves the rules scoped to one show
func (db *Database) GetShowFilterRules(showID uint64) ([]*FilterRule, error) {
	var rules []*FilterRule
	err := db.store.Find(&rules, bolthold.Where("ShowID").Eq(showID))
	return rules, err
}

// GetAllFilterRules retrieves every rule
func (db *Database) GetAllFilterRules() ([]*FilterRule, error) {
	var rules []*FilterRule
	err := db.store.Find(&rules, nil)
	return rules, err
}

// DownloadRecord operations

// RecordDownload persists a dispatch attempt
func (db *Database) RecordDownload(rec *DownloadRecord) error {
	rec.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), rec)
}

// HasSuccessfulDownload reports whether a success record exists for the
// (show, episode) pair. This is the at-most-once pre-check.
func (db *Database) HasSuccessfulDownload(showID uint64, episode int) (bool, error) {
	var recs []*DownloadRecord
	err := db.store.Find(&recs,
		bolthold.Where("ShowID").Eq(showID).
			And("Episode").Eq(episode).
			And("Outcome").Eq(OutcomeSuccess))
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

// IsHashDownloaded reports whether the content identifier was already
// successfully downloaded, regardless of show
func (db *Database) IsHashDownloaded(hash string) (bool, error) {
	var recs []*DownloadRecord
	err := db.store.Find(&recs,
		bolthold.Where("InfoHash").Eq(hash).
			And("Outcome").Eq(OutcomeSuccess))
	if err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(recs) > 0, nil
}

// GetShowHistory retrieves the download history for one show
func (db *Database) GetShowHistory(showID uint64) ([]*DownloadRecord, error) {
	var recs []*DownloadRecord
	err := db.store.Find(&recs, bolthold.Where("ShowID").Eq(showID))
	return recs, err
}

// GetAllHistory retrieves the full download history
func (db *Database) GetAllHistory() ([]*DownloadRecord, error) {
	var recs []*DownloadRecord
	err := db.store.Find(&recs, nil)
	return recs, err
}
