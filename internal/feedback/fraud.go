// Package feedback implements the anti-fraud feedback pipeline of §4.4.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/MendesCorporation/automata/internal/config"
	"github.com/MendesCorporation/automata/internal/storage"
)

// fraudCheck is one detection run against a single submission, prior to
// the feedback row being inserted.
type fraudCheck struct {
	store        *storage.Store
	settings     config.FraudSettings
	isProduction bool
}

// analyze runs the self-rating, spam, and rating-pattern checks of
// §4.4 step 3, logging any hit. It returns the anti-fraud confidence
// weight to apply to this submission's rating (step 4) and whether the
// submission must be rejected outright (SPAM only). Outside production
// every check short-circuits: weight=1, no block, nothing logged.
func (f *fraudCheck) analyze(ctx context.Context, agent *storage.Agent, consumerID string, submittedAt time.Time) (weight float64, blocked bool, err error) {
	weight = 1.0

	if !f.isProduction {
		return weight, false, nil
	}

	if consumerID == agent.CallerID {
		if err := f.logFraud(ctx, agent.ID, consumerID, "SELF_RATING", "high", nil); err != nil {
			return 0, false, err
		}
		weight = valueOr(f.settings.SelfRatingWeight, 0.1)
	}

	since := submittedAt.Add(-time.Hour)
	countLastHour, err := f.store.CountFeedbackForPairSince(ctx, consumerID, agent.ID, since)
	if err != nil {
		return 0, false, fmt.Errorf("counting hourly feedback: %w", err)
	}
	spamThreshold := int64(intValueOr(f.settings.SpamThresholdPerHour, 10))
	if countLastHour >= spamThreshold {
		if err := f.logFraud(ctx, agent.ID, consumerID, "SPAM", "high", map[string]any{"count_last_hour": countLastHour}); err != nil {
			return 0, false, err
		}
		return weight, true, nil
	}

	n, err := f.store.CountFeedbackForPair(ctx, consumerID, agent.ID)
	if err != nil {
		return 0, false, fmt.Errorf("counting pair feedback: %w", err)
	}
	floor := valueOr(f.settings.DecreasingWeightFloor, 0.1)
	decreasing := decreasingWeight(n, floor)
	if decreasing < weight {
		weight = decreasing
	}

	total, extreme, err := f.store.FeedbackRatingCounts(ctx, agent.ID)
	if err != nil {
		return 0, false, fmt.Errorf("counting rating pattern: %w", err)
	}
	if total >= 10 && float64(extreme)/float64(total) > 0.8 {
		if err := f.logFraud(ctx, agent.ID, "", "RATING_PATTERN", "medium", map[string]any{"extreme_ratio": float64(extreme) / float64(total)}); err != nil {
			return 0, false, err
		}
	}

	return weight, false, nil
}

// decreasingWeight implements §4.4's confidence decay for repeated
// feedback between the same consumer/agent pair: weight = max(floor,
// 1/(1+ln(1+n))) where n is the number of prior submissions from this
// pair.
func decreasingWeight(priorCount int64, floor float64) float64 {
	w := 1.0 / (1.0 + math.Log(1.0+float64(priorCount)))
	return math.Max(floor, w)
}

func (f *fraudCheck) logFraud(ctx context.Context, agentID, consumerID, fraudType, severity string, details map[string]any) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling fraud details: %w", err)
		}
		raw = b
	}

	var consumerPtr *string
	if consumerID != "" {
		consumerPtr = &consumerID
	}

	return f.store.InsertFraudLog(ctx, &storage.FraudDetection{
		AgentID:    agentID,
		ConsumerID: consumerPtr,
		FraudType:  fraudType,
		Severity:   severity,
		Details:    raw,
	})
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intValueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
