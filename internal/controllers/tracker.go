package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/animarr/animarr/internal/feeds"
	"github.com/animarr/animarr/internal/filters"
	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/utils"
)

// Tracker runs the per-cycle pipeline: fetch, parse, filter, select,
// dispatch, for every tracked show
type Tracker struct {
	db          *models.Database
	registry    *feeds.Registry
	engine      *filters.Engine
	selector    *Selector
	dispatcher  *Dispatcher
	concurrency int
	logger      *logrus.Logger
}

// NewTracker creates a tracker
func NewTracker(db *models.Database, registry *feeds.Registry, engine *filters.Engine, selector *Selector, dispatcher *Dispatcher, concurrency int, logger *logrus.Logger) *Tracker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Tracker{
		db:          db,
		registry:    registry,
		engine:      engine,
		selector:    selector,
		dispatcher:  dispatcher,
		concurrency: concurrency,
		logger:      logger,
	}
}

// showStats is what one show contributes to the cycle result
type showStats struct {
	itemsSeen  int
	skipped    int
	accepted   int
	downloaded int
}

// RunCycle processes every tracked show once. Shows run in parallel up to
// the concurrency limit; a failing show is reported in the result and
// never aborts the others. Cycles are idempotent: re-running against
// unchanged feeds dispatches nothing.
func (t *Tracker) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	result := &models.CycleResult{
		StartedAt: time.Now(),
		Errors:    make(map[string]string),
	}

	shows, err := t.db.GetTrackedShows()
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked shows: %w", err)
	}
	result.Shows = len(shows)

	rules, err := t.db.GetAllFilterRules()
	if err != nil {
		return nil, fmt.Errorf("failed to load filter rules: %w", err)
	}
	ruleSet := make([]models.FilterRule, len(rules))
	for i, r := range rules {
		ruleSet[i] = *r
	}

	t.logger.WithFields(logrus.Fields{
		"shows": len(shows),
		"rules": len(ruleSet),
	}).Info("Starting poll cycle")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for _, show := range shows {
		show := show
		g.Go(func() error {
			stats, err := t.processShow(gctx, show, ruleSet)

			mu.Lock()
			defer mu.Unlock()
			result.ItemsSeen += stats.itemsSeen
			result.Skipped += stats.skipped
			result.Accepted += stats.accepted
			result.Downloaded += stats.downloaded
			if err != nil {
				t.logger.WithError(err).WithField("show", show.Title).Error("Show processing failed")
				result.Errors[show.Title] = err.Error()
			}
			return nil
		})
	}

	// The group never returns an error; per-show failures land in the
	// result. Wait can only be interrupted by ctx.
	_ = g.Wait()

	result.FinishedAt = time.Now()

	t.logger.WithFields(logrus.Fields{
		"shows":      result.Shows,
		"items":      result.ItemsSeen,
		"skipped":    result.Skipped,
		"accepted":   result.Accepted,
		"downloaded": result.Downloaded,
		"errors":     len(result.Errors),
		"duration":   result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	}).Info("Poll cycle finished")

	return result, ctx.Err()
}

// processShow runs the pipeline for one show
func (t *Tracker) processShow(ctx context.Context, show *models.Show, rules []models.FilterRule) (showStats, error) {
	var stats showStats

	source := t.registry.ForShow(show)
	fetched, err := source.Fetch(ctx, show)
	if err != nil {
		return stats, fmt.Errorf("fetch failed: %w", err)
	}

	stats.itemsSeen = len(fetched.Items)
	stats.skipped = fetched.Skipped

	// Parse and filter, keeping only episodes above the watermark
	byEpisode := make(map[int][]models.Candidate)
	for i, item := range fetched.Items {
		parsed, err := utils.ParseRelease(item.Title)
		if err != nil {
			if !errors.Is(err, utils.ErrNoEpisode) && !errors.Is(err, utils.ErrBatchRelease) {
				t.logger.WithError(err).WithField("title", item.Title).Warn("Unexpected parse failure")
			}
			stats.skipped++
			continue
		}

		if show.Season > 0 && parsed.Season > 0 && parsed.Season != show.Season {
			stats.skipped++
			continue
		}
		if parsed.Episode <= show.LastDownloadedEpisode {
			stats.skipped++
			continue
		}

		cand := models.Candidate{
			Title:       item.Title,
			TorrentLink: item.TorrentLink,
			ViewURL:     item.ViewURL,
			InfoHash:    item.InfoHash,
			Size:        item.Size,
			Seeders:     item.Seeders,
			PubDate:     item.PubDate,
			Origin:      item.Origin,
			ShowGuess:   parsed.Show,
			Season:      parsed.Season,
			Episode:     parsed.Episode,
			Resolution:  parsed.Resolution,
			Group:       parsed.Group,
			FirstSeen:   i,
		}

		decision := t.engine.Evaluate(&cand, show, rules)
		if !decision.Accept {
			t.logger.WithFields(logrus.Fields{
				"title":  cand.Title,
				"reason": decision.Reason,
			}).Debug("Candidate rejected")
			stats.skipped++
			continue
		}

		stats.accepted++
		byEpisode[cand.Episode] = append(byEpisode[cand.Episode], cand)
	}

	if len(byEpisode) == 0 {
		return stats, nil
	}

	// Dispatch in ascending episode order; gaps in the feed are fine,
	// whatever exists above the watermark is taken
	episodes := make([]int, 0, len(byEpisode))
	for ep := range byEpisode {
		episodes = append(episodes, ep)
	}
	sort.Ints(episodes)

	var firstErr error
	for _, ep := range episodes {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		chosen, err := t.selector.SelectCandidate(show, byEpisode[ep])
		if err != nil {
			continue
		}

		rec, err := t.dispatcher.Dispatch(ctx, show, chosen)
		if err != nil {
			t.logger.WithError(err).WithFields(logrus.Fields{
				"show":    show.Title,
				"episode": ep,
			}).Error("Dispatch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if rec != nil && rec.Outcome == models.OutcomeSuccess {
			stats.downloaded++
		}
	}

	return stats, firstErr
}
