package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/ranking"
)

// handleSearch implements POST /search (§4.3, §6): consumer-only.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.ValidationError, "method not allowed"))
		return
	}

	claims := claimsFromContext(r.Context())

	var req ranking.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.New(apierr.ValidationError, "invalid request body"))
		return
	}
	if err := req.NormalizeIntents(); err != nil {
		writeError(w, err)
		return
	}

	items, err := h.ranking.Search(r.Context(), claims.CallerID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.searchDebug {
		slog.Debug("search completed", "consumer", claims.CallerID, "results", len(items))
	}

	writeJSON(w, http.StatusOK, items)
}
