package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/redaction"
)

var logRedactor = redaction.NewPatternRedactor()

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps any error to the §7 taxonomy. An *apierr.Error rides
// through with its own Kind; anything else is INTERNAL.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Kind.HTTPStatus(), map[string]string{"error": apiErr.Message})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, apierr.Timeout.HTTPStatus(), map[string]string{"error": "request timed out"})
		return
	}
	slog.Error("unhandled request error", "error", logRedactor.Redact(err.Error()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
