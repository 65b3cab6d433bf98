package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
)

// CycleRunner exposes the scheduler operations the API needs
type CycleRunner interface {
	RunNow() (*models.CycleResult, error)
	History() []*models.CycleResult
}

// StatusHandler handles status requests
type StatusHandler struct {
	db     *models.Database
	cycles CycleRunner
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, cycles CycleRunner, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		cycles: cycles,
		logger: logger,
	}
}

// showStatus summarizes one show's progress
type showStatus struct {
	ID                    uint64 `json:"id"`
	Title                 string `json:"title"`
	Season                int    `json:"season,omitempty"`
	LastDownloadedEpisode int    `json:"last_downloaded_episode"`
	NextAiringEpisode     int    `json:"next_airing_episode,omitempty"`
	Tracked               bool   `json:"tracked"`
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalShows   int                   `json:"total_shows"`
	TrackedShows int                   `json:"tracked_shows"`
	Shows        []showStatus          `json:"shows"`
	RecentCycles []*models.CycleResult `json:"recent_cycles"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shows, err := h.db.GetAllShows()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get shows")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalShows:   len(shows),
		Shows:        make([]showStatus, 0, len(shows)),
		RecentCycles: h.cycles.History(),
	}

	for _, show := range shows {
		if show.Tracked {
			response.TrackedShows++
		}
		response.Shows = append(response.Shows, showStatus{
			ID:                    show.ID,
			Title:                 show.Title,
			Season:                show.Season,
			LastDownloadedEpisode: show.LastDownloadedEpisode,
			NextAiringEpisode:     show.NextAiringEpisode,
			Tracked:               show.Tracked,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
