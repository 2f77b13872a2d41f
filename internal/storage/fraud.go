package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FraudDetection is an immutable anti-fraud log entry, per §3.
type FraudDetection struct {
	ID         int64
	AgentID    string
	ConsumerID *string
	FraudType  string
	Severity   string
	Details    json.RawMessage
	DetectedAt time.Time
}

// InsertFraudLog appends a fraud-detection row. Logging never blocks a
// feedback submission by itself — only SPAM causes BLOCKED_SPAM (§4.4).
func (s *Store) InsertFraudLog(ctx context.Context, fd *FraudDetection) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fraud_detections (agent_id, consumer_id, fraud_type, severity, details, detected_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, fd.AgentID, fd.ConsumerID, fd.FraudType, fd.Severity, nullableJSON(fd.Details))
	if err != nil {
		return fmt.Errorf("inserting fraud log: %w", err)
	}
	return nil
}

// CountFraudForAgent is the numerator for fraud_percentage (§4.4/§4.5).
func (s *Store) CountFraudForAgent(ctx context.Context, agentID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_detections WHERE agent_id = $1`, agentID).Scan(&n)
	return n, err
}

// CountSelfRatingForAgent supports the self_rating_percentage input to
// the quarantine→banned threshold (§4.5).
func (s *Store) CountSelfRatingForAgent(ctx context.Context, agentID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM fraud_detections WHERE agent_id = $1 AND fraud_type = 'SELF_RATING'
	`, agentID).Scan(&n)
	return n, err
}

// CleanupFraudLogs deletes entries older than the retention window
// (§3: "retained 30 days"), implemented as a sliding-window delete. An
// archival alternative remains open, see DESIGN.md.
func (s *Store) CleanupFraudLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	tag, err := s.pool.Exec(ctx, `DELETE FROM fraud_detections WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up fraud logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListAgentIDs returns every agent id, used by the auto-review sweep
// (§4.5) to evaluate thresholds across the whole population.
func (s *Store) ListAgentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM agents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
