// Package api implements the HTTP request router of §4.6: session-token
// auth, role checks, and the endpoints of §6.
package api

import (
	"net/http"
	"strings"

	"github.com/MendesCorporation/automata/internal/feedback"
	"github.com/MendesCorporation/automata/internal/identity"
	"github.com/MendesCorporation/automata/internal/quarantine"
	"github.com/MendesCorporation/automata/internal/ranking"
	"github.com/MendesCorporation/automata/internal/registry"
	"github.com/MendesCorporation/automata/internal/storage"
)

// Handler routes inbound HTTP requests to the registry's components.
type Handler struct {
	store      *storage.Store
	issuer     *identity.TokenIssuer
	registry   *registry.Service
	ranking    *ranking.Engine
	feedback   *feedback.Pipeline
	quarantine *quarantine.Engine

	masterSecret string
	trustProxy   bool
	searchDebug  bool

	mux *http.ServeMux
}

// New constructs the Handler and registers every route.
func New(
	store *storage.Store,
	issuer *identity.TokenIssuer,
	registrySvc *registry.Service,
	rankingEngine *ranking.Engine,
	feedbackPipeline *feedback.Pipeline,
	quarantineEngine *quarantine.Engine,
	masterSecret string,
	trustProxy, searchDebug bool,
) *Handler {
	h := &Handler{
		store:        store,
		issuer:       issuer,
		registry:     registrySvc,
		ranking:      rankingEngine,
		feedback:     feedbackPipeline,
		quarantine:   quarantineEngine,
		masterSecret: masterSecret,
		trustProxy:   trustProxy,
		searchDebug:  searchDebug,
		mux:          http.NewServeMux(),
	}

	h.mux.HandleFunc("/auth/token", withTimeout(h.handleAuthToken))
	h.mux.HandleFunc("/register", withTimeout(h.requireAuth(identity.CallerProvider, h.handleRegister)))
	h.mux.HandleFunc("/search", withTimeout(h.requireAuth(identity.CallerConsumer, h.handleSearch)))
	h.mux.HandleFunc("/feedback", withTimeout(h.requireAuth(identity.CallerConsumer, h.handleFeedback)))
	h.mux.HandleFunc("/health", withTimeout(h.handleHealth))
	h.mux.HandleFunc("/agents/", withTimeout(h.routeAgentSubresource))

	return h
}

// routeAgentSubresource dispatches GET /agents/{id}/health (public) and
// the additive GET /agents/{id}/events, gated behind the same
// provider-session bearer as /register since no auth matrix entry in
// §4.6 covers it.
func (h *Handler) routeAgentSubresource(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/health"):
		h.handleAgentHealth(w, r)
	case strings.HasSuffix(r.URL.Path, "/events"):
		h.requireAuth(identity.CallerProvider, h.handleAgentEvents)(w, r)
	default:
		http.NotFound(w, r)
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}
