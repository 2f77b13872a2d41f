package api

import (
	"encoding/json"
	"net/http"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/feedback"
)

type feedbackRequest struct {
	AgentID   string  `json:"agent_id"`
	Success   bool    `json:"success"`
	LatencyMs float64 `json:"latency_ms"`
	Rating    float64 `json:"rating"`
}

// handleFeedback implements POST /feedback (§4.4, §6): consumer-only.
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.ValidationError, "method not allowed"))
		return
	}

	claims := claimsFromContext(r.Context())

	var body feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierr.New(apierr.ValidationError, "invalid request body"))
		return
	}
	if body.AgentID == "" {
		writeError(w, apierr.New(apierr.ValidationError, "agent_id is required"))
		return
	}

	_, err := h.feedback.Submit(r.Context(), feedback.Request{
		AgentID:    body.AgentID,
		ConsumerID: claims.CallerID,
		Success:    body.Success,
		LatencyMs:  body.LatencyMs,
		Rating:     body.Rating,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
