package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
)

// HistoryHandler serves the download history
type HistoryHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(db *models.Database, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{db: db, logger: logger}
}

type historyEntry struct {
	ID        uint64    `json:"id"`
	ShowID    uint64    `json:"show_id"`
	Episode   int       `json:"episode"`
	InfoHash  string    `json:"info_hash,omitempty"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ServeHTTP handles the history endpoint; ?show_id=N narrows to one show
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var recs []*models.DownloadRecord
	var err error

	if raw := r.URL.Query().Get("show_id"); raw != "" {
		showID, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			http.Error(w, "Invalid show_id", http.StatusBadRequest)
			return
		}
		recs, err = h.db.GetShowHistory(showID)
	} else {
		recs, err = h.db.GetAllHistory()
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get download history")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]historyEntry, 0, len(recs))
	for _, rec := range recs {
		response = append(response, historyEntry{
			ID:        rec.ID,
			ShowID:    rec.ShowID,
			Episode:   rec.Episode,
			InfoHash:  rec.InfoHash,
			Outcome:   string(rec.Outcome),
			Reason:    rec.Reason,
			CreatedAt: rec.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
