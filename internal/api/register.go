package api

import (
	"encoding/json"
	"net/http"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/registry"
	"github.com/MendesCorporation/automata/internal/storage"
)

type registerResponse struct {
	ID       string `json:"id"`
	JWTToken string `json:"jwt_token"`
}

// handleRegister implements POST /register (§4.1, §6): provider-only.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.ValidationError, "method not allowed"))
		return
	}

	claims := claimsFromContext(r.Context())

	var req registry.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.New(apierr.ValidationError, "invalid request body"))
		return
	}

	agent, err := h.registry.Register(r.Context(), claims.CallerID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	bearer := r.Header.Get("Authorization")
	if len(bearer) > 7 {
		bearer = bearer[7:]
	}

	if err := h.store.RecordEvent(r.Context(), storage.EventAgentRegistered, agent.ID, "info", map[string]any{"name": agent.Name}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{ID: agent.ID, JWTToken: bearer})
}
