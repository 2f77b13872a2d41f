package quarantine

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MendesCorporation/automata/internal/config"
	"github.com/MendesCorporation/automata/internal/storage"
)

// quarantineTriggers implements Threshold 1 (active -> quarantine) of
// §4.5: any one condition triggers, and the returned strings double as
// both warning text and the persisted quarantine_reason.
func quarantineTriggers(t config.QuarantineSettings, m Metrics) []string {
	var reasons []string
	if m.TotalFeedbacks >= int64(*t.ToQuarantineMinCalls) && m.SuccessRate < *t.ToQuarantineSuccessRate {
		reasons = append(reasons, "Success rate below threshold")
	}
	if m.TotalFeedbacks >= int64(*t.ToQuarantineRatingMinCalls) && m.AvgRating < *t.ToQuarantineMinRating {
		reasons = append(reasons, "Average rating below threshold")
	}
	if m.TotalFeedbacks >= int64(*t.ToQuarantineLatencyMinCalls) && m.AvgLatencyMs > *t.ToQuarantineMaxLatencyMs {
		reasons = append(reasons, "Average latency above threshold")
	}
	if m.FraudPercentage > *t.ToQuarantineMaxFraudPct {
		reasons = append(reasons, "Fraud percentage above threshold")
	}
	return reasons
}

// bannedTriggers implements Threshold 2 (quarantine -> banned) of §4.5.
func bannedTriggers(t config.QuarantineSettings, m Metrics) []string {
	var reasons []string
	if m.TotalFeedbacks >= int64(*t.ToBannedMinCalls) && m.SuccessRate < *t.ToBannedSuccessRate {
		reasons = append(reasons, "Success rate below banned threshold")
	}
	if m.TotalFeedbacks >= int64(*t.ToBannedRatingMinCalls) && m.AvgRating < *t.ToBannedMinRating {
		reasons = append(reasons, "Average rating below banned threshold")
	}
	if m.FraudPercentage > *t.ToBannedMaxFraudPct {
		reasons = append(reasons, "Fraud percentage above banned threshold")
	}
	if m.SelfRatingPercentage > *t.ToBannedMaxSelfRatePct {
		reasons = append(reasons, "Self-rating percentage above banned threshold")
	}
	return reasons
}

// canReactivate implements the quarantine -> active reactivation
// requirement of §4.5: all three conditions must hold.
func canReactivate(t config.QuarantineSettings, m Metrics) bool {
	return m.SuccessRate >= *t.ReactivateMinSuccessRate &&
		m.AvgRating >= *t.ReactivateMinRating &&
		m.FraudPercentage < *t.ReactivateMaxFraudPct
}

// Summary is the {quarantined, reactivated, banned} result of one sweep.
type Summary struct {
	Quarantined int `json:"quarantined"`
	Reactivated int `json:"reactivated"`
	Banned      int `json:"banned"`
}

// fraudLogRetentionDays and eventRetentionDays implement §3's "retained
// 30 days" window, enforced opportunistically from the auto-review
// sweep rather than a separate scheduled job.
const (
	fraudLogRetentionDays = 30
	eventRetentionDays    = 30
)

// RunAutoReview scans every agent and evaluates the relevant threshold
// set for its current state, per §4.5. It is invoked on a schedule by
// an external timer; this function itself is a single sweep.
func (e *Engine) RunAutoReview(ctx context.Context) (*Summary, error) {
	if !e.isProduction {
		return &Summary{}, nil
	}

	ids, err := e.store.ListAgentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}

	thresholds := e.settings.GetMerged().Quarantine
	summary := &Summary{}

	for _, id := range ids {
		agent, err := e.store.GetAgent(ctx, id)
		if err != nil {
			if err == storage.ErrNotFound {
				continue
			}
			return nil, fmt.Errorf("loading agent %s: %w", id, err)
		}
		if agent.Status == "banned" {
			continue
		}

		m, err := e.metrics(ctx, agent)
		if err != nil {
			return nil, err
		}

		switch agent.Status {
		case "active":
			if reasons := quarantineTriggers(thresholds, m); len(reasons) > 0 {
				reason := reasons[0]
				if err := e.store.UpdateAgentStatus(ctx, agent.ID, "quarantine", &reason); err != nil {
					return nil, fmt.Errorf("quarantining agent %s: %w", agent.ID, err)
				}
				if err := e.store.RecordEvent(ctx, storage.EventAgentQuarantined, agent.ID, "high", storage.AgentQuarantinedData{
					Reason: reason, SuccessRate: m.SuccessRate, AvgRating: m.AvgRating, CallsTotal: m.TotalFeedbacks,
				}); err != nil {
					return nil, fmt.Errorf("recording quarantine event: %w", err)
				}
				summary.Quarantined++
			}
		case "quarantine":
			if reasons := bannedTriggers(thresholds, m); len(reasons) > 0 {
				reason := reasons[0]
				if err := e.store.UpdateAgentStatus(ctx, agent.ID, "banned", &reason); err != nil {
					return nil, fmt.Errorf("banning agent %s: %w", agent.ID, err)
				}
				if err := e.store.RecordEvent(ctx, storage.EventAgentBanned, agent.ID, "critical", storage.AgentQuarantinedData{
					Reason: reason, SuccessRate: m.SuccessRate, AvgRating: m.AvgRating, CallsTotal: m.TotalFeedbacks,
				}); err != nil {
					return nil, fmt.Errorf("recording banned event: %w", err)
				}
				summary.Banned++
				continue
			}
			if canReactivate(thresholds, m) {
				if err := e.store.UpdateAgentStatus(ctx, agent.ID, "active", nil); err != nil {
					return nil, fmt.Errorf("reactivating agent %s: %w", agent.ID, err)
				}
				if err := e.store.RecordEvent(ctx, storage.EventAgentReactivated, agent.ID, "info", storage.AgentReactivatedData{
					SuccessRate: m.SuccessRate, AvgRating: m.AvgRating,
				}); err != nil {
					return nil, fmt.Errorf("recording reactivation event: %w", err)
				}
				summary.Reactivated++
			}
		}
	}

	if err := e.store.RecordEvent(ctx, storage.EventAutoReviewCompleted, "", "info", storage.AutoReviewCompletedData{
		Quarantined: summary.Quarantined, Reactivated: summary.Reactivated, Banned: summary.Banned,
	}); err != nil {
		return nil, fmt.Errorf("recording auto-review summary: %w", err)
	}

	if _, err := e.store.CleanupFraudLogs(ctx, fraudLogRetentionDays); err != nil {
		return nil, fmt.Errorf("cleaning up fraud logs: %w", err)
	}
	if _, err := e.store.CleanupEvents(ctx, eventRetentionDays); err != nil {
		return nil, fmt.Errorf("cleaning up audit events: %w", err)
	}

	return summary, nil
}

// leaderKey and leaderTTL implement a Redis SETNX leader lock: while
// one instance holds it (up to leaderTTL, or until Release after its
// sweep), other instances skip their sweep, so two sweeps never run at
// once. An instance whose timer fires after the lock is gone runs its
// own sweep.
const (
	leaderKey = "registry:auto-review:leader"
	leaderTTL = 90 * time.Second
)

// Leader coordinates auto-review across multiple registry instances.
type Leader struct {
	client *redis.Client
}

// NewLeader wraps a Redis client for leader election.
func NewLeader(client *redis.Client) *Leader {
	return &Leader{client: client}
}

// TryAcquire attempts to take the leader lock for up to leaderTTL. It
// returns false if another instance already holds the lock.
func (l *Leader) TryAcquire(ctx context.Context, instanceID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, leaderKey, instanceID, leaderTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring auto-review leader lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock early, e.g. after a sweep completes well
// inside the TTL.
func (l *Leader) Release(ctx context.Context, instanceID string) error {
	val, err := l.client.Get(ctx, leaderKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("reading auto-review leader lock: %w", err)
	}
	if val != instanceID {
		return nil
	}
	return l.client.Del(ctx, leaderKey).Err()
}
