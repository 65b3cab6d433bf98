package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/services/anilist"
)

// MetadataClient resolves show metadata during creation. Lookup failures
// are non-fatal; the show is created from user input.
type MetadataClient interface {
	SearchAnime(ctx context.Context, title string) (*anilist.Anime, error)
}

// ShowsHandler handles show management requests
type ShowsHandler struct {
	db             *models.Database
	meta           MetadataClient
	defaultQuality string
	logger         *logrus.Logger
}

// NewShowsHandler creates a new shows handler
func NewShowsHandler(db *models.Database, meta MetadataClient, defaultQuality string, logger *logrus.Logger) *ShowsHandler {
	return &ShowsHandler{
		db:             db,
		meta:           meta,
		defaultQuality: defaultQuality,
		logger:         logger,
	}
}

// showPayload is the request body for creating or updating a show
type showPayload struct {
	Title                 string `json:"title"`
	Alternate             string `json:"alternate"`
	Season                int    `json:"season"`
	Source                string `json:"source"`
	Quality               string `json:"quality"`
	PreferredGroup        string `json:"preferred_group"`
	DownloadDir           string `json:"download_dir"`
	Tracked               *bool  `json:"tracked"`
	LastDownloadedEpisode int    `json:"last_downloaded_episode"`
}

// showResponse is the API representation of a show
type showResponse struct {
	ID                    uint64 `json:"id"`
	Title                 string `json:"title"`
	Alternate             string `json:"alternate,omitempty"`
	Season                int    `json:"season,omitempty"`
	Source                string `json:"source"`
	Quality               string `json:"quality"`
	PreferredGroup        string `json:"preferred_group,omitempty"`
	DownloadDir           string `json:"download_dir,omitempty"`
	LastDownloadedEpisode int    `json:"last_downloaded_episode"`
	Tracked               bool   `json:"tracked"`
	NextAiringEpisode     int    `json:"next_airing_episode,omitempty"`
	NextAirDate           string `json:"next_air_date,omitempty"`
}

func toShowResponse(show *models.Show) showResponse {
	return showResponse{
		ID:                    show.ID,
		Title:                 show.Title,
		Alternate:             show.Alternate,
		Season:                show.Season,
		Source:                show.Source,
		Quality:               show.Quality,
		PreferredGroup:        show.PreferredGroup,
		DownloadDir:           show.DownloadDir,
		LastDownloadedEpisode: show.LastDownloadedEpisode,
		Tracked:               show.Tracked,
		NextAiringEpisode:     show.NextAiringEpisode,
		NextAirDate:           show.NextAirDate,
	}
}

// ServeHTTP routes show requests
func (h *ShowsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/shows")
	rest = strings.Trim(rest, "/")

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		http.Error(w, "Invalid show ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ShowsHandler) list(w http.ResponseWriter, r *http.Request) {
	shows, err := h.db.GetAllShows()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get shows")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]showResponse, 0, len(shows))
	for _, show := range shows {
		response = append(response, toShowResponse(show))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *ShowsHandler) get(w http.ResponseWriter, r *http.Request, id uint64) {
	show, err := h.db.GetShowByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Show not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to get show")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toShowResponse(show))
}

func (h *ShowsHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload showPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	show := &models.Show{
		Title:                 payload.Title,
		Alternate:             payload.Alternate,
		Season:                payload.Season,
		Source:                payload.Source,
		Quality:               payload.Quality,
		PreferredGroup:        payload.PreferredGroup,
		DownloadDir:           payload.DownloadDir,
		LastDownloadedEpisode: payload.LastDownloadedEpisode,
		Tracked:               true,
	}
	if payload.Tracked != nil {
		show.Tracked = *payload.Tracked
	}
	if show.Quality == "" {
		show.Quality = h.defaultQuality
	}

	// Resolve canonical metadata; failure only means we keep user input
	if h.meta != nil {
		anime, err := h.meta.SearchAnime(r.Context(), payload.Title)
		if err != nil {
			h.logger.WithError(err).WithField("title", payload.Title).Warn("Metadata lookup failed")
		} else {
			if anime.TitleEnglish != "" {
				show.Title = anime.TitleEnglish
			} else if anime.TitleRomaji != "" {
				show.Title = anime.TitleRomaji
			}
			if show.Alternate == "" && anime.TitleRomaji != "" && anime.TitleRomaji != show.Title {
				show.Alternate = anime.TitleRomaji
			}
			show.NextAiringEpisode = anime.NextAiringEpisode
			if !anime.NextAirDate.IsZero() {
				show.NextAirDate = anime.NextAirDate.Format("2006-01-02")
			}
		}
	}

	if err := h.db.CreateShow(show); err != nil {
		h.logger.WithError(err).Error("Failed to create show")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"show_id": show.ID,
		"title":   show.Title,
	}).Info("Show created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toShowResponse(show))
}

func (h *ShowsHandler) update(w http.ResponseWriter, r *http.Request, id uint64) {
	show, err := h.db.GetShowByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Show not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to get show")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var payload showPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.Title != "" {
		show.Title = payload.Title
	}
	if payload.Alternate != "" {
		show.Alternate = payload.Alternate
	}
	if payload.Season != 0 {
		show.Season = payload.Season
	}
	if payload.Source != "" {
		show.Source = payload.Source
	}
	if payload.Quality != "" {
		show.Quality = payload.Quality
	}
	if payload.PreferredGroup != "" {
		show.PreferredGroup = payload.PreferredGroup
	}
	if payload.DownloadDir != "" {
		show.DownloadDir = payload.DownloadDir
	}
	if payload.LastDownloadedEpisode != 0 {
		show.LastDownloadedEpisode = payload.LastDownloadedEpisode
	}
	if payload.Tracked != nil {
		show.Tracked = *payload.Tracked
	}

	if err := h.db.UpdateShow(show); err != nil {
		h.logger.WithError(err).Error("Failed to update show")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toShowResponse(show))
}

func (h *ShowsHandler) delete(w http.ResponseWriter, r *http.Request, id uint64) {
	if err := h.db.DeleteShow(id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Show not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to delete show")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
