package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/storage"
)

type livenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// handleHealth implements GET /health: public liveness.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.ValidationError, "method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, livenessResponse{Status: "ok", Timestamp: time.Now()})
}

// handleAgentHealth implements GET /agents/{id}/health (§4.5, §6): public.
func (h *Handler) handleAgentHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.ValidationError, "method not allowed"))
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/agents/"), "/health")
	if id == "" {
		writeError(w, apierr.New(apierr.ValidationError, "agent id is required"))
		return
	}

	report, err := h.quarantine.Health(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apierr.New(apierr.NotFound, "agent not found"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleAgentEvents implements the additive GET /agents/{id}/events
// exposing the audit timeline for one agent.
func (h *Handler) handleAgentEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.ValidationError, "method not allowed"))
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/agents/"), "/events")
	if id == "" {
		writeError(w, apierr.New(apierr.ValidationError, "agent id is required"))
		return
	}

	events, err := h.store.GetAgentEvents(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"agent_id": id, "events": events})
}
