// Package quarantine implements the health report and auto-review
// control loop of §4.5: active -> quarantine -> banned, with
// quarantine -> active reactivation.
package quarantine

import (
	"context"
	"fmt"
	"math"

	"github.com/MendesCorporation/automata/internal/config"
	"github.com/MendesCorporation/automata/internal/storage"
)

// Metrics is the metrics{} object of a health report.
type Metrics struct {
	SuccessRate          float64 `json:"success_rate"`
	AvgRating            float64 `json:"avg_rating"`
	AvgLatencyMs         float64 `json:"avg_latency_ms"`
	TotalFeedbacks       int64   `json:"total_feedbacks"`
	FraudDetected        int64   `json:"fraud_detected"`
	FraudPercentage      float64 `json:"fraud_percentage"`
	SelfRatingPercentage float64 `json:"self_rating_percentage"`
}

// Report is the result of health(agent_id).
type Report struct {
	AgentID          string   `json:"agent_id"`
	Status           string   `json:"status"`
	HealthScore      float64  `json:"health_score"`
	Metrics          Metrics  `json:"metrics"`
	Warnings         []string `json:"warnings"`
	QuarantineRisk   string   `json:"quarantine_risk"`
	QuarantineReason *string  `json:"quarantine_reason,omitempty"`
}

// Engine runs health reports and the auto-review sweep against the
// store, reading thresholds from the layered settings store (§4.9).
type Engine struct {
	store        *storage.Store
	settings     *config.SettingsStore
	isProduction bool
}

// NewEngine constructs a quarantine Engine.
func NewEngine(store *storage.Store, settings *config.SettingsStore, isProduction bool) *Engine {
	return &Engine{store: store, settings: settings, isProduction: isProduction}
}

// Health computes the on-demand health report for one agent (§4.5).
func (e *Engine) Health(ctx context.Context, agentID string) (*Report, error) {
	agent, err := e.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("loading agent: %w", err)
	}

	m, err := e.metrics(ctx, agent)
	if err != nil {
		return nil, err
	}

	healthScore := 0.4*m.SuccessRate +
		0.3*m.AvgRating +
		0.1*(1-math.Min(m.AvgLatencyMs/10000, 1)) +
		0.2*(1-m.FraudPercentage/100)

	risk := "low"
	var warnings []string
	if e.isProduction {
		risk, warnings = e.assessRisk(agent, m)
	}

	return &Report{
		AgentID:          agent.ID,
		Status:           agent.Status,
		HealthScore:      healthScore,
		Metrics:          m,
		Warnings:         warnings,
		QuarantineRisk:   risk,
		QuarantineReason: agent.QuarantineReason,
	}, nil
}

func (e *Engine) metrics(ctx context.Context, agent *storage.Agent) (Metrics, error) {
	stats, err := e.store.GetAgentStats(ctx, agent.ID)
	if err != nil && err != storage.ErrNotFound {
		return Metrics{}, fmt.Errorf("loading agent stats: %w", err)
	}

	var m Metrics
	if stats != nil && stats.CallsTotal > 0 {
		m.SuccessRate = float64(stats.CallsSuccess) / float64(stats.CallsTotal)
		m.AvgRating = stats.AvgRating
		m.AvgLatencyMs = stats.AvgLatencyMs
		m.TotalFeedbacks = stats.CallsTotal
	}

	if e.isProduction {
		fraudCount, err := e.store.CountFraudForAgent(ctx, agent.ID)
		if err != nil {
			return Metrics{}, fmt.Errorf("counting fraud: %w", err)
		}
		m.FraudDetected = fraudCount
		if m.TotalFeedbacks > 0 {
			m.FraudPercentage = math.Min(100, (float64(fraudCount)/float64(m.TotalFeedbacks))*100)
		}
	}

	selfRatingCount, err := e.store.CountSelfRatingForAgent(ctx, agent.ID)
	if err != nil {
		return Metrics{}, fmt.Errorf("counting self-ratings: %w", err)
	}
	if m.TotalFeedbacks > 0 {
		m.SelfRatingPercentage = math.Min(100, (float64(selfRatingCount)/float64(m.TotalFeedbacks))*100)
	}

	return m, nil
}

// assessRisk reports a coarse risk level plus human-readable warnings
// for how close an active/quarantined agent is to its next threshold.
func (e *Engine) assessRisk(agent *storage.Agent, m Metrics) (string, []string) {
	t := e.settings.GetMerged().Quarantine
	var warnings []string

	switch agent.Status {
	case "quarantine":
		triggered := bannedTriggers(t, m)
		if len(triggered) > 0 {
			warnings = append(warnings, triggered...)
			return "high", warnings
		}
		return "medium", warnings
	default:
		triggered := quarantineTriggers(t, m)
		if len(triggered) > 0 {
			warnings = append(warnings, triggered...)
			return "medium", warnings
		}
		if m.TotalFeedbacks >= int64(*t.ToQuarantineMinCalls)/2 && m.SuccessRate < *t.ToQuarantineSuccessRate+0.1 {
			warnings = append(warnings, "success rate trending toward the quarantine threshold")
			return "low", warnings
		}
		return "low", warnings
	}
}
