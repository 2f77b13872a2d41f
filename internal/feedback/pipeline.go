package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/config"
	"github.com/MendesCorporation/automata/internal/storage"
)

// globalRateLimitWindow and globalRateLimitMax implement §4.4 step 1:
// a consumer may submit at most 60 feedback rows across all agents per
// 60-second window.
const (
	globalRateLimitWindow = time.Minute
	globalRateLimitMax    = 60
)

// Request is the body of POST /feedback, per §4.4.
type Request struct {
	AgentID    string
	ConsumerID string
	Success    bool
	LatencyMs  float64
	Rating     float64
}

// Result is returned to the caller on a successful submission.
type Result struct {
	Stats *storage.AgentStats
}

// Pipeline runs the six-step feedback sequence: rate limit, load agent,
// fraud analysis, insert feedback, stats update, return.
type Pipeline struct {
	store        *storage.Store
	settings     *config.SettingsStore
	isProduction bool
}

// NewPipeline constructs a feedback Pipeline.
func NewPipeline(store *storage.Store, settings *config.SettingsStore, isProduction bool) *Pipeline {
	return &Pipeline{store: store, settings: settings, isProduction: isProduction}
}

// Submit runs the pipeline for one feedback submission.
func (p *Pipeline) Submit(ctx context.Context, req Request) (*Result, error) {
	if req.Rating < 0 || req.Rating > 1 {
		return nil, apierr.New(apierr.ValidationError, "rating must be between 0 and 1")
	}
	if req.LatencyMs < 0 {
		return nil, apierr.New(apierr.ValidationError, "latency_ms must be non-negative")
	}

	now := time.Now()

	// Step 1: global rate limit.
	count, err := p.store.CountFeedbackSince(ctx, req.ConsumerID, now.Add(-globalRateLimitWindow))
	if err != nil {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}
	if count >= globalRateLimitMax {
		return nil, apierr.New(apierr.RateLimited, "feedback rate limit exceeded")
	}

	// Step 2: load agent.
	agent, err := p.store.GetAgent(ctx, req.AgentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, apierr.New(apierr.NotFound, "agent not found")
		}
		return nil, fmt.Errorf("loading agent: %w", err)
	}

	// Step 3: fraud analysis.
	check := &fraudCheck{store: p.store, settings: p.settings.GetMerged().Fraud, isProduction: p.isProduction}
	weight, blocked, err := check.analyze(ctx, agent, req.ConsumerID, now)
	if err != nil {
		return nil, fmt.Errorf("running fraud analysis: %w", err)
	}
	if blocked {
		if err := p.store.RecordEvent(ctx, storage.EventFeedbackBlockedSpam, agent.ID, "high", map[string]any{
			"consumer_id": req.ConsumerID,
		}); err != nil {
			return nil, fmt.Errorf("recording blocked-spam event: %w", err)
		}
		return nil, apierr.New(apierr.BlockedSpam, "feedback blocked as spam")
	}

	// Step 4-5: insert feedback row, update stats under the weighted
	// running-mean formula.
	stats, err := p.store.RecordFeedback(ctx, &storage.Feedback{
		AgentID:    agent.ID,
		ConsumerID: req.ConsumerID,
		Success:    req.Success,
		LatencyMs:  req.LatencyMs,
		Rating:     req.Rating,
	}, weight)
	if err != nil {
		return nil, fmt.Errorf("recording feedback: %w", err)
	}

	return &Result{Stats: stats}, nil
}
