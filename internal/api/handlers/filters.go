package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
)

// FiltersHandler handles filter rule management requests
type FiltersHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewFiltersHandler creates a new filters handler
func NewFiltersHandler(db *models.Database, logger *logrus.Logger) *FiltersHandler {
	return &FiltersHandler{db: db, logger: logger}
}

// filterPayload is the request body for creating a filter rule
type filterPayload struct {
	Name     string `json:"name"`
	ShowID   uint64 `json:"show_id"`
	Field    string `json:"field"`
	Op       string `json:"op"`
	Pattern  string `json:"pattern"`
	Action   string `json:"action"`
	Priority int    `json:"priority"`
	Enabled  *bool  `json:"enabled"`
}

// filterResponse is the API representation of a filter rule
type filterResponse struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	ShowID    uint64    `json:"show_id,omitempty"`
	Field     string    `json:"field"`
	Op        string    `json:"op"`
	Pattern   string    `json:"pattern"`
	Action    string    `json:"action"`
	Priority  int       `json:"priority"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

func toFilterResponse(rule *models.FilterRule) filterResponse {
	return filterResponse{
		ID:        rule.ID,
		Name:      rule.Name,
		ShowID:    rule.ShowID,
		Field:     string(rule.Field),
		Op:        string(rule.Op),
		Pattern:   rule.Pattern,
		Action:    string(rule.Action),
		Priority:  rule.Priority,
		Enabled:   rule.Enabled,
		CreatedAt: rule.CreatedAt,
	}
}

var validFields = map[models.FilterField]bool{
	models.FieldTitle:      true,
	models.FieldGroup:      true,
	models.FieldResolution: true,
}

var validOps = map[models.FilterOp]bool{
	models.OpEquals:   true,
	models.OpContains: true,
	models.OpMatches:  true,
	models.OpAtLeast:  true,
}

// ServeHTTP routes filter requests
func (h *FiltersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/filters")
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
		http.Error(w, "Invalid filter ID", http.StatusBadRequest)
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, id)
}

func (h *FiltersHandler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.db.GetAllFilterRules()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get filter rules")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]filterResponse, 0, len(rules))
	for _, rule := range rules {
		response = append(response, toFilterResponse(rule))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *FiltersHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload filterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	field := models.FilterField(payload.Field)
	if !validFields[field] {
		http.Error(w, "field must be title, group or resolution", http.StatusBadRequest)
		return
	}
	op := models.FilterOp(payload.Op)
	if !validOps[op] {
		http.Error(w, "op must be equals, contains, matches or at_least", http.StatusBadRequest)
		return
	}
	action := models.FilterAction(payload.Action)
	if action != models.ActionAccept && action != models.ActionReject {
		http.Error(w, "action must be accept or reject", http.StatusBadRequest)
		return
	}

	rule := &models.FilterRule{
		Name:     payload.Name,
		ShowID:   payload.ShowID,
		Field:    field,
		Op:       op,
		Pattern:  payload.Pattern,
		Action:   action,
		Priority: payload.Priority,
		Enabled:  true,
	}
	if payload.Enabled != nil {
		rule.Enabled = *payload.Enabled
	}

	if err := h.db.CreateFilterRule(rule); err != nil {
		h.logger.WithError(err).Error("Failed to create filter rule")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"name":    rule.Name,
	}).Info("Filter rule created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFilterResponse(rule))
}

func (h *FiltersHandler) delete(w http.ResponseWriter, r *http.Request, id uint64) {
	if err := h.db.DeleteFilterRule(id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Filter not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to delete filter rule")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
