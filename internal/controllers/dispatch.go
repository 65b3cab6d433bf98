package controllers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/utils"
)

// TorrentClient submits releases to the download client
type TorrentClient interface {
	AddTorrent(ctx context.Context, link, downloadDir string) (string, error)
}

// Dispatcher hands selected candidates to the torrent client and records
// the outcome. Dispatches for one show are serialized by a per-show lock
// so the at-most-once check and the submission are atomic with respect to
// each other; distinct shows dispatch in parallel.
type Dispatcher struct {
	db      *models.Database
	client  TorrentClient
	baseDir string
	logger  *logrus.Logger

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// NewDispatcher creates a dispatcher
func NewDispatcher(db *models.Database, client TorrentClient, baseDir string, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		db:      db,
		client:  client,
		baseDir: baseDir,
		logger:  logger,
		locks:   make(map[uint64]*sync.Mutex),
	}
}

func (d *Dispatcher) showLock(showID uint64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[showID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[showID] = lock
	}
	return lock
}

// Dispatch submits a candidate. A (show, episode) pair or content hash
// that already succeeded is skipped silently and returns (nil, nil).
// On success the show's watermark advances; on failure it does not, so
// the episode is retried next cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, show *models.Show, cand *models.Candidate) (*models.DownloadRecord, error) {
	lock := d.showLock(show.ID)
	lock.Lock()
	defer lock.Unlock()

	done, err := d.db.HasSuccessfulDownload(show.ID, cand.Episode)
	if err != nil {
		return nil, fmt.Errorf("failed to check download history: %w", err)
	}
	if done {
		d.logger.WithFields(logrus.Fields{
			"show":    show.Title,
			"episode": cand.Episode,
		}).Debug("Episode already downloaded, skipping")
		return nil, nil
	}

	hash := strings.ToLower(cand.InfoHash)
	if hash != "" {
		dup, err := d.db.IsHashDownloaded(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to check hash history: %w", err)
		}
		if dup {
			d.logger.WithFields(logrus.Fields{
				"show": show.Title,
				"hash": hash,
			}).Debug("Content already downloaded, skipping")
			return nil, nil
		}
	}

	link := cand.TorrentLink
	if hash != "" {
		link = utils.MagnetURL(hash, cand.Title)
	}

	dir := d.downloadDir(show, cand)

	d.logger.WithFields(logrus.Fields{
		"show":    show.Title,
		"episode": cand.Episode,
		"title":   cand.Title,
		"dir":     dir,
	}).Info("Dispatching download")

	returnedHash, err := d.client.AddTorrent(ctx, link, dir)
	if err != nil {
		rec := &models.DownloadRecord{
			ShowID:     show.ID,
			Episode:    cand.Episode,
			InfoHash:   hash,
			TorrentURL: cand.TorrentLink,
			Outcome:    models.OutcomeFailed,
			Reason:     err.Error(),
		}
		if recErr := d.db.RecordDownload(rec); recErr != nil {
			d.logger.WithError(recErr).Error("Failed to record failed download")
		}
		return rec, fmt.Errorf("failed to dispatch %q: %w", cand.Title, err)
	}

	if hash == "" {
		hash = strings.ToLower(returnedHash)
	}

	rec := &models.DownloadRecord{
		ShowID:     show.ID,
		Episode:    cand.Episode,
		InfoHash:   hash,
		TorrentURL: cand.TorrentLink,
		Outcome:    models.OutcomeSuccess,
	}
	if err := d.db.RecordDownload(rec); err != nil {
		return rec, fmt.Errorf("failed to record download: %w", err)
	}
	if err := d.db.AdvanceWatermark(show.ID, cand.Episode, hash); err != nil {
		return rec, fmt.Errorf("failed to advance watermark: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"show":    show.Title,
		"episode": cand.Episode,
		"hash":    hash,
	}).Info("Download dispatched")

	return rec, nil
}

// downloadDir resolves the destination folder for a candidate
func (d *Dispatcher) downloadDir(show *models.Show, cand *models.Candidate) string {
	if show.DownloadDir != "" {
		return show.DownloadDir
	}
	season := cand.Season
	if season == 0 {
		season = show.Season
	}
	if season == 0 {
		season = 1
	}
	return filepath.Join(d.baseDir, show.Title, fmt.Sprintf("Season %d", season))
}
