// Package registry implements agent registration (§4.1).
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/storage"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Endpoint       string          `json:"endpoint"`
	Description    string          `json:"description"`
	Intents        []string        `json:"intents"`
	Tasks          []string        `json:"tasks"`
	Tags           []string        `json:"tags"`
	Categories     []string        `json:"categories"`
	LocationScope  string          `json:"location_scope"`
	Languages      []string        `json:"languages"`
	Version        string          `json:"version"`
	InputSchema    json.RawMessage `json:"input_schema"`
	Meta           json.RawMessage `json:"meta"`
}

// Service registers agents against the persistent store.
type Service struct {
	store        *storage.Store
	isProduction bool
}

// NewService constructs a registration Service.
func NewService(store *storage.Store, isProduction bool) *Service {
	return &Service{store: store, isProduction: isProduction}
}

// Register implements register(identified_provider, payload) per §4.1:
// endpoint scheme validation (https required in production; https,
// localhost http, or 127.0.0.1 http allowed in development), and
// upsert semantics that overwrite every field including caller_id when
// the agent id already exists.
func (s *Service) Register(ctx context.Context, callerID string, req RegisterRequest) (*storage.Agent, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	agent := &storage.Agent{
		ID:            req.ID,
		Name:          req.Name,
		Endpoint:      req.Endpoint,
		Description:   req.Description,
		Intents:       req.Intents,
		Tasks:         nonNil(req.Tasks),
		Tags:          nonNil(req.Tags),
		Categories:    req.Categories,
		LocationScope: locationScopeOrDefault(req.LocationScope),
		Languages:     req.Languages,
		Version:       req.Version,
		InputSchema:   req.InputSchema,
		Meta:          req.Meta,
		CallerID:      callerID,
	}

	if err := s.store.UpsertAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("registering agent: %w", err)
	}

	return agent, nil
}

func (s *Service) validate(req RegisterRequest) error {
	if strings.TrimSpace(req.ID) == "" {
		return apierr.New(apierr.ValidationError, "id is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return apierr.New(apierr.ValidationError, "name is required")
	}
	if len(req.Intents) == 0 {
		return apierr.New(apierr.ValidationError, "at least one intent is required")
	}
	if len(req.Categories) == 0 {
		return apierr.New(apierr.ValidationError, "at least one category is required")
	}
	if len(req.Languages) == 0 {
		return apierr.New(apierr.ValidationError, "at least one language is required")
	}

	parsed, err := url.Parse(req.Endpoint)
	if err != nil || parsed.Host == "" {
		return apierr.New(apierr.ValidationError, "endpoint must be a valid URL")
	}

	if s.isProduction {
		if parsed.Scheme != "https" {
			return apierr.New(apierr.ValidationError, "endpoint must use https in production")
		}
		return nil
	}

	switch {
	case parsed.Scheme == "https":
	case parsed.Scheme == "http" && isLoopbackHost(parsed.Hostname()):
	default:
		return apierr.New(apierr.ValidationError, "endpoint must be https, or http on localhost/127.0.0.1 in development")
	}

	return nil
}

func isLoopbackHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

func locationScopeOrDefault(scope string) string {
	if scope == "" {
		return "Global"
	}
	return scope
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
