package controllers

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/utils"
)

// ErrNoCandidate is returned when selection runs on an empty candidate set
var ErrNoCandidate = errors.New("no candidate available")

// Selector picks the best release among the accepted candidates for one
// episode
type Selector struct {
	sourceRank map[models.SourceKind]int
	logger     *logrus.Logger
}

// NewSelector creates a selector. sourcePriority lists source kinds from
// most to least preferred; kinds not listed rank last.
func NewSelector(sourcePriority []string, logger *logrus.Logger) *Selector {
	rank := make(map[models.SourceKind]int, len(sourcePriority))
	for i, kind := range sourcePriority {
		rank[models.SourceKind(kind)] = i
	}
	return &Selector{sourceRank: rank, logger: logger}
}

// SelectCandidate returns the best candidate for an episode. Ranking:
// preferred group, then higher resolution, then source priority, then
// first seen, then smallest content ID. The final key is total, so
// selection is deterministic for any input order.
func (s *Selector) SelectCandidate(show *models.Show, cands []models.Candidate) (*models.Candidate, error) {
	if len(cands) == 0 {
		return nil, ErrNoCandidate
	}

	best := 0
	for i := 1; i < len(cands); i++ {
		if s.better(show, &cands[i], &cands[best]) {
			best = i
		}
	}

	chosen := cands[best]
	s.logger.WithFields(logrus.Fields{
		"show":    show.Title,
		"episode": chosen.Episode,
		"title":   chosen.Title,
		"source":  chosen.Origin,
	}).Debug("Selected candidate")

	return &chosen, nil
}

// better reports whether a should be picked over b
func (s *Selector) better(show *models.Show, a, b *models.Candidate) bool {
	if show.PreferredGroup != "" {
		aPref := strings.EqualFold(a.Group, show.PreferredGroup)
		bPref := strings.EqualFold(b.Group, show.PreferredGroup)
		if aPref != bPref {
			return aPref
		}
	}

	aRes := utils.ResolutionHeight(a.Resolution)
	bRes := utils.ResolutionHeight(b.Resolution)
	if aRes != bRes {
		return aRes > bRes
	}

	aRank := s.rank(a.Origin)
	bRank := s.rank(b.Origin)
	if aRank != bRank {
		return aRank < bRank
	}

	if a.FirstSeen != b.FirstSeen {
		return a.FirstSeen < b.FirstSeen
	}

	return a.ContentID() < b.ContentID()
}

func (s *Selector) rank(kind models.SourceKind) int {
	if r, ok := s.sourceRank[kind]; ok {
		return r
	}
	return len(s.sourceRank)
}
