package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Feedback is an immutable rating of one agent invocation, per §3.
type Feedback struct {
	ID         int64
	AgentID    string
	ConsumerID string
	Success    bool
	LatencyMs  float64
	Rating     float64
	CreatedAt  time.Time
}

// CountFeedbackSince counts feedback rows submitted by a consumer
// across all agents since a cutoff — the global rate limit of §4.4
// step 1 (60 per 60s), counted against the table, not an in-memory
// counter, per §5.
func (s *Store) CountFeedbackSince(ctx context.Context, consumerID string, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM feedback WHERE consumer_id = $1 AND created_at >= $2
	`, consumerID, since).Scan(&n)
	return n, err
}

// CountFeedbackForPairSince counts feedback from one consumer to one
// agent since a cutoff — the hourly spam check of §4.4 step 3.
func (s *Store) CountFeedbackForPairSince(ctx context.Context, consumerID, agentID string, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM feedback WHERE consumer_id = $1 AND agent_id = $2 AND created_at >= $3
	`, consumerID, agentID, since).Scan(&n)
	return n, err
}

// CountFeedbackForPair counts all prior feedback from one consumer to
// one agent — the `n` used by the decreasing-weight formula of §4.4.
func (s *Store) CountFeedbackForPair(ctx context.Context, consumerID, agentID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM feedback WHERE consumer_id = $1 AND agent_id = $2
	`, consumerID, agentID).Scan(&n)
	return n, err
}

// FeedbackRatingCounts reports the total feedback count for an agent
// and how many of those ratings are exactly 0 or 1 — inputs to the
// rating-pattern audit check of §4.4.
func (s *Store) FeedbackRatingCounts(ctx context.Context, agentID string) (total, extreme int64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE rating = 0 OR rating = 1)
		FROM feedback WHERE agent_id = $1
	`, agentID).Scan(&total, &extreme)
	return total, extreme, err
}

// CountFeedbackForAgent is the denominator for fraud_percentage (§4.4).
func (s *Store) CountFeedbackForAgent(ctx context.Context, agentID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedback WHERE agent_id = $1`, agentID).Scan(&n)
	return n, err
}

// RecordFeedback is the transactional tail of the feedback pipeline
// (§4.4 steps 4-5): insert the immutable row, then read-modify-write
// AgentStats using the supplied anti-fraud weight. Locks the stats row
// with SELECT ... FOR UPDATE for the duration of the transaction,
// honoring the "MAY use row-level locking" concurrency option (§5).
func (s *Store) RecordFeedback(ctx context.Context, fb *Feedback, weight float64) (*AgentStats, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin record feedback: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO feedback (agent_id, consumer_id, success, latency_ms, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, fb.AgentID, fb.ConsumerID, fb.Success, fb.LatencyMs, fb.Rating)
	if err != nil {
		return nil, fmt.Errorf("inserting feedback: %w", err)
	}

	var st AgentStats
	row := tx.QueryRow(ctx, `
		SELECT agent_id, calls_total, calls_success, avg_latency_ms, avg_rating, last_feedback_at
		FROM agent_stats WHERE agent_id = $1 FOR UPDATE
	`, fb.AgentID)
	if err := row.Scan(&st.AgentID, &st.CallsTotal, &st.CallsSuccess, &st.AvgLatencyMs, &st.AvgRating, &st.LastFeedbackAt); err != nil {
		if err == pgx.ErrNoRows {
			st = AgentStats{AgentID: fb.AgentID}
		} else {
			return nil, fmt.Errorf("locking agent_stats: %w", err)
		}
	}

	st.CallsTotal++
	if fb.Success {
		st.CallsSuccess++
	}
	// Latency is never weighted by anti-fraud confidence, per §4.4/§9 —
	// only rating is.
	st.AvgLatencyMs += (fb.LatencyMs - st.AvgLatencyMs) / float64(st.CallsTotal)
	st.AvgRating += (fb.Rating*weight - st.AvgRating) / float64(st.CallsTotal)
	now := time.Now()
	st.LastFeedbackAt = &now

	_, err = tx.Exec(ctx, `
		INSERT INTO agent_stats (agent_id, calls_total, calls_success, avg_latency_ms, avg_rating, last_feedback_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (agent_id) DO UPDATE SET
			calls_total = EXCLUDED.calls_total,
			calls_success = EXCLUDED.calls_success,
			avg_latency_ms = EXCLUDED.avg_latency_ms,
			avg_rating = EXCLUDED.avg_rating,
			last_feedback_at = EXCLUDED.last_feedback_at
	`, st.AgentID, st.CallsTotal, st.CallsSuccess, st.AvgLatencyMs, st.AvgRating, st.LastFeedbackAt)
	if err != nil {
		return nil, fmt.Errorf("updating agent_stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit record feedback: %w", err)
	}
	return &st, nil
}
