package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/identity"
	"github.com/MendesCorporation/automata/internal/storage"
)

// SearchRequest is the body of POST /search, per §4.3.
type SearchRequest struct {
	Intents     []string `json:"-"` // normalized from Intent below
	Intent      any      `json:"intent,omitempty"` // string | []string | absent
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags,omitempty"`
	Location    string   `json:"location,omitempty"`
	Language    string   `json:"language,omitempty"`
	Description string   `json:"description,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// NormalizeIntents flattens the polymorphic Intent field into Intents,
// accepting a single string, a list of strings, or absence.
func (r *SearchRequest) NormalizeIntents() error {
	switch v := r.Intent.(type) {
	case nil:
		r.Intents = nil
	case string:
		if v != "" {
			r.Intents = []string{v}
		}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return apierr.New(apierr.ValidationError, "intent must be a string or array of strings")
			}
			r.Intents = append(r.Intents, s)
		}
	default:
		return apierr.New(apierr.ValidationError, "intent must be a string or array of strings")
	}
	return nil
}

// ResultItem is one entry of a search response, per §4.3.
type ResultItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Endpoint      string          `json:"endpoint"`
	Description   string          `json:"description"`
	CallerID      string          `json:"caller_id"`
	Tags          []string        `json:"tags"`
	Intents       []string        `json:"intents"`
	Tasks         []string        `json:"tasks"`
	Categories    []string        `json:"categories"`
	LocationScope string          `json:"location_scope"`
	Score         float64         `json:"score"`
	InputSchema   any             `json:"input_schema,omitempty"`
	ExecutionKey  string          `json:"execution_key"`
	KeyExpiresAt  time.Time       `json:"key_expires_at"`
}

// Engine runs the candidate-set pipeline and scorer against the store.
type Engine struct {
	store        *storage.Store
	issuer       *identity.TokenIssuer
	masterSecret string
	isProduction bool
	searchDebug  bool
}

// NewEngine constructs a ranking Engine.
func NewEngine(store *storage.Store, issuer *identity.TokenIssuer, masterSecret string, isProduction, searchDebug bool) *Engine {
	return &Engine{store: store, issuer: issuer, masterSecret: masterSecret, isProduction: isProduction, searchDebug: searchDebug}
}

const (
	defaultLimit      = 10
	maxLimit          = 10
	fuzzyFallbackSize = 50
	minScore          = 0.4
	minGeoScore       = 0.3
)

// Search implements the 10-step candidate pipeline of §4.3.
func (e *Engine) Search(ctx context.Context, consumerCallerID string, req SearchRequest) ([]ResultItem, error) {
	if len(req.Categories) == 0 {
		return nil, apierr.New(apierr.ValidationError, "categories is required")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	candidates, err := e.candidates(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("finding candidates: %w", err)
	}

	var active []*storage.Agent
	for _, a := range candidates {
		if a.Status != "banned" {
			active = append(active, a)
		}
	}

	type scored struct {
		agent *storage.Agent
		stats *storage.AgentStats
		b     Breakdown
	}

	var results []scored
	for _, a := range active {
		stats, err := e.store.GetAgentStats(ctx, a.ID)
		if err != nil && err != storage.ErrNotFound {
			return nil, fmt.Errorf("loading agent stats: %w", err)
		}
		if err == storage.ErrNotFound {
			stats = nil
		}

		fraudPct, err := e.fraudPercentage(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("computing fraud percentage: %w", err)
		}

		b := Score(req, a, stats, fraudPct, e.isProduction)
		if e.searchDebug {
			slog.Debug("search candidate scored",
				"agent_id", a.ID, "final", b.Final, "intent", b.Intent, "geo", b.Geo,
				"success", b.Success, "description", b.Description, "category", b.Category,
				"rating", b.Rating, "tag", b.Tag, "latency", b.Latency, "fraud", b.Fraud,
				"raw", b.Raw,
			)
		}
		if b.Final < minScore {
			continue
		}
		if req.Location != "" && b.GeoScore < minGeoScore && a.LocationScope != "Global" {
			continue
		}

		results = append(results, scored{agent: a, stats: stats, b: b})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].b.Final > results[j].b.Final
	})
	if len(results) > limit {
		results = results[:limit]
	}

	items := make([]ResultItem, 0, len(results))
	for _, r := range results {
		var providerSecret *string
		caller, err := e.store.GetCaller(ctx, r.agent.CallerID)
		if err == nil && caller.SecretCipher != nil {
			plain, decErr := identity.DecryptSecret(e.masterSecret, *caller.SecretCipher)
			if decErr == nil {
				providerSecret = &plain
			}
		}

		key, expiresAt, _, err := e.issuer.MintExecKey(consumerCallerID, r.agent.ID, providerSecret)
		if err != nil {
			return nil, fmt.Errorf("minting execution key: %w", err)
		}

		var inputSchema any
		if len(r.agent.InputSchema) > 0 {
			inputSchema = r.agent.InputSchema
		}

		items = append(items, ResultItem{
			ID:            r.agent.ID,
			Name:          r.agent.Name,
			Endpoint:      r.agent.Endpoint,
			Description:   r.agent.Description,
			CallerID:      r.agent.CallerID,
			Tags:          r.agent.Tags,
			Intents:       r.agent.Intents,
			Tasks:         r.agent.Tasks,
			Categories:    r.agent.Categories,
			LocationScope: r.agent.LocationScope,
			Score:         roundScore(r.b.Final),
			InputSchema:   inputSchema,
			ExecutionKey:  key,
			KeyExpiresAt:  expiresAt,
		})
	}

	return items, nil
}

// candidates implements pipeline steps 1-4 of §4.3.
func (e *Engine) candidates(ctx context.Context, req SearchRequest) ([]*storage.Agent, error) {
	agents, err := e.store.FilterByOverlap(ctx, req.Intents, req.Categories, req.Language)
	if err != nil {
		return nil, err
	}
	if len(agents) > 0 || len(req.Intents) == 0 {
		if len(agents) > 0 {
			return agents, nil
		}
	}

	if len(req.Intents) > 0 {
		agents, err = e.store.FilterByIntentLanguage(ctx, req.Intents, req.Language)
		if err != nil {
			return nil, err
		}
		if len(agents) > 0 {
			return agents, nil
		}

		limit := req.Limit
		if limit <= 0 {
			limit = fuzzyFallbackSize
		}
		agents, err = e.store.FuzzyByIntentTrigram(ctx, req.Intents[0], limit)
		if err != nil {
			return nil, err
		}
		if len(agents) > 0 {
			return agents, nil
		}
	}

	return e.store.ListAllAgents(ctx)
}

func (e *Engine) fraudPercentage(ctx context.Context, agentID string) (float64, error) {
	if !e.isProduction {
		return 0, nil
	}

	total, err := e.store.CountFeedbackForAgent(ctx, agentID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	fraudCount, err := e.store.CountFraudForAgent(ctx, agentID)
	if err != nil {
		return 0, err
	}

	pct := (float64(fraudCount) / float64(total)) * 100
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

func roundScore(s float64) float64 {
	return float64(int(s*100+0.5)) / 100
}
