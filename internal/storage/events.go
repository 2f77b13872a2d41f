package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventType enumerates the kinds of entries written to the audit
// timeline. Unlike Feedback and FraudDetection, these are internal
// bookkeeping, not part of the scored business contract.
type EventType string

const (
	EventAgentRegistered      EventType = "agent_registered"
	EventAgentQuarantined     EventType = "agent_quarantined"
	EventAgentBanned          EventType = "agent_banned"
	EventAgentReactivated     EventType = "agent_reactivated"
	EventFraudDetected        EventType = "fraud_detected"
	EventFeedbackBlockedSpam  EventType = "feedback_blocked_spam"
	EventAutoReviewCompleted  EventType = "auto_review_completed"
)

// AuditEvent is an immutable timeline entry recording registrations,
// status transitions, blocked spam submissions and auto-review
// summaries, for operational debugging and the per-agent
// GET /agents/{id}/events endpoint. Individual fraud detections are
// written to fraud_detections, not here; nothing writes
// EventFraudDetected.
type AuditEvent struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	AgentID   string          `json:"agent_id,omitempty"`
	Severity  string          `json:"severity,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// AgentQuarantinedData is the payload of an EventAgentQuarantined entry.
type AgentQuarantinedData struct {
	Reason       string  `json:"reason"`
	SuccessRate  float64 `json:"success_rate"`
	AvgRating    float64 `json:"avg_rating"`
	CallsTotal   int64   `json:"calls_total"`
}

// AgentReactivatedData is the payload of an EventAgentReactivated entry.
type AgentReactivatedData struct {
	SuccessRate float64 `json:"success_rate"`
	AvgRating   float64 `json:"avg_rating"`
}

// AutoReviewCompletedData summarizes one sweep of the quarantine
// control loop (§4.5).
type AutoReviewCompletedData struct {
	Quarantined int `json:"quarantined"`
	Reactivated int `json:"reactivated"`
	Banned      int `json:"banned"`
}

// ListEventsOptions filters the audit timeline query.
type ListEventsOptions struct {
	AgentID  string
	Type     EventType
	Severity string
	Since    *time.Time
	Limit    int
}

// RecordEvent appends an immutable entry to the audit timeline.
func (s *Store) RecordEvent(ctx context.Context, eventType EventType, agentID, severity string, data interface{}) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event data: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events (timestamp, event_type, agent_id, severity, data)
		VALUES (now(), $1, $2, $3, $4)`,
		string(eventType), nullableString(agentID), nullableString(severity), dataJSON,
	)
	if err != nil {
		return fmt.Errorf("recording audit event: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListEvents retrieves audit entries with filtering, newest first.
func (s *Store) ListEvents(ctx context.Context, opts ListEventsOptions) ([]AuditEvent, error) {
	query := `SELECT id, timestamp, event_type, COALESCE(agent_id, ''), COALESCE(severity, ''), data FROM audit_events WHERE 1=1`
	args := []interface{}{}

	if opts.AgentID != "" {
		args = append(args, opts.AgentID)
		query += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}
	if opts.Type != "" {
		args = append(args, string(opts.Type))
		query += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if opts.Severity != "" {
		args = append(args, opts.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		var data []byte
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Type, &ev.AgentID, &ev.Severity, &data); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		ev.Data = data
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetAgentEvents retrieves the full timeline for one agent, used by the
// `GET /agents/{id}/events` endpoint.
func (s *Store) GetAgentEvents(ctx context.Context, agentID string) ([]AuditEvent, error) {
	return s.ListEvents(ctx, ListEventsOptions{AgentID: agentID})
}

// CleanupEvents removes audit entries older than the retention window.
// Used alongside fraud-log cleanup (§3) to bound table growth.
func (s *Store) CleanupEvents(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
