package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// PollHandler triggers a poll cycle on demand
type PollHandler struct {
	cycles CycleRunner
	logger *logrus.Logger
}

// NewPollHandler creates a new poll handler
func NewPollHandler(cycles CycleRunner, logger *logrus.Logger) *PollHandler {
	return &PollHandler{cycles: cycles, logger: logger}
}

// ServeHTTP handles the manual poll endpoint. The cycle runs to
// completion before responding, so the caller sees its result.
func (h *PollHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.logger.Info("Manual poll triggered")

	result, err := h.cycles.RunNow()
	if err != nil {
		h.logger.WithError(err).Error("Manual poll failed")
		http.Error(w, "Poll cycle failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
