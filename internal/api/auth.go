package api

import (
	"encoding/json"
	"net/http"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/identity"
)

type tokenRequest struct {
	Type string `json:"type"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expires_in"`
	TokenType string `json:"token_type"`
}

// handleAuthToken implements POST /auth/token (§4.2, §6).
func (h *Handler) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.ValidationError, "method not allowed"))
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.New(apierr.ValidationError, "invalid request body"))
		return
	}

	var callerType identity.CallerType
	switch req.Type {
	case "consumer":
		callerType = identity.CallerConsumer
	case "provider":
		callerType = identity.CallerProvider
	default:
		writeError(w, apierr.New(apierr.ValidationError, "type must be consumer or provider"))
		return
	}

	ctx := r.Context()
	identifier := identity.DeriveIdentifier(r, h.trustProxy)

	if prefix := identity.ClientIDPrefix(r); prefix != "" {
		spoofed, err := h.store.FindSpoofedCaller(ctx, string(callerType), prefix, identifier)
		if err != nil {
			writeError(w, err)
			return
		}
		if spoofed != nil {
			if err := identity.CheckSpoofing(identifier, spoofed.Identifier); err != nil {
				writeError(w, err)
				return
			}
		}
	}

	callerID := identity.CallerID(callerType, identifier)
	caller, err := h.store.GetOrCreateCaller(ctx, callerID, string(callerType), identifier)
	if err != nil {
		writeError(w, err)
		return
	}

	if callerType == identity.CallerProvider {
		secret := r.Header.Get("X-Provider-Secret")
		if secret == "" {
			writeError(w, apierr.New(apierr.ValidationError, "x-provider-secret header is required for provider tokens"))
			return
		}
		ciphertext, err := identity.EncryptSecret(h.masterSecret, secret)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := h.store.UpdateCallerSecret(ctx, caller.CallerID, ciphertext); err != nil {
			writeError(w, err)
			return
		}
	}

	token, expiresAt, err := h.issuer.Issue(caller.CallerID, callerType, identifier)
	if err != nil {
		writeError(w, err)
		return
	}

	if callerType == identity.CallerConsumer {
		if err := h.store.UpdateCallerTokenHash(ctx, caller.CallerID, identity.HashSecret(token), expiresAt); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresIn: "24h", TokenType: "Bearer"})
}
