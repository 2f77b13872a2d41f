// Package storage implements the persistent store: durable tables for
// agents, agent statistics, callers, feedback, and fraud-detection log,
// backed by PostgreSQL for native array set-overlap and trigram
// similarity support.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("storage: not found")

// schema is executed once at startup as a single multi-statement
// migration string.
const schema = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS callers (
	caller_id TEXT PRIMARY KEY,
	type TEXT NOT NULL CHECK (type IN ('consumer','provider')),
	identifier TEXT NOT NULL,
	secret_ciphertext TEXT,
	token_hash TEXT,
	token_expires_at TIMESTAMPTZ,
	is_active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (type, identifier)
);

CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	intents TEXT[] NOT NULL DEFAULT '{}',
	tasks TEXT[] NOT NULL DEFAULT '{}',
	tags TEXT[] NOT NULL DEFAULT '{}',
	categories TEXT[] NOT NULL DEFAULT '{}',
	location_scope TEXT NOT NULL DEFAULT 'Global',
	languages TEXT[] NOT NULL DEFAULT '{}',
	version TEXT NOT NULL DEFAULT '',
	input_schema JSONB,
	meta JSONB,
	caller_id TEXT NOT NULL REFERENCES callers(caller_id) ON DELETE CASCADE,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','quarantine','banned')),
	quarantine_reason TEXT,
	quarantine_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_agents_intents ON agents USING GIN (intents);
CREATE INDEX IF NOT EXISTS idx_agents_categories ON agents USING GIN (categories);
CREATE INDEX IF NOT EXISTS idx_agents_tags ON agents USING GIN (tags);
CREATE INDEX IF NOT EXISTS idx_agents_tasks ON agents USING GIN (tasks);
CREATE INDEX IF NOT EXISTS idx_agents_languages ON agents USING GIN (languages);
CREATE INDEX IF NOT EXISTS idx_agents_intents_trgm ON agents USING GIN ((array_to_string(intents, ',')) gin_trgm_ops);

CREATE TABLE IF NOT EXISTS agent_stats (
	agent_id TEXT PRIMARY KEY REFERENCES agents(id) ON DELETE CASCADE,
	calls_total BIGINT NOT NULL DEFAULT 0,
	calls_success BIGINT NOT NULL DEFAULT 0,
	avg_latency_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_feedback_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS feedback (
	id BIGSERIAL PRIMARY KEY,
	agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	consumer_id TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	latency_ms DOUBLE PRECISION NOT NULL,
	rating DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_feedback_agent_consumer ON feedback (agent_id, consumer_id);
CREATE INDEX IF NOT EXISTS idx_feedback_agent_created ON feedback (agent_id, created_at DESC);

CREATE TABLE IF NOT EXISTS fraud_detections (
	id BIGSERIAL PRIMARY KEY,
	agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	consumer_id TEXT,
	fraud_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	details JSONB,
	detected_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_fraud_agent ON fraud_detections (agent_id);

CREATE TABLE IF NOT EXISTS audit_events (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	event_type TEXT NOT NULL,
	agent_id TEXT,
	severity TEXT,
	data JSONB
);
CREATE INDEX IF NOT EXISTS idx_audit_agent ON audit_events (agent_id);
`

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Config holds connection parameters, assembled from the
// DATABASE_* environment variables.
type Config struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	PoolMax  int32
}

func (c Config) dsn() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, sslmode)
}

// NewStore opens the pool and applies the schema.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.PoolMax > 0 {
		poolCfg.MaxConns = cfg.PoolMax
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening database pool: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Agent is the durable representation of an advertised service, per §3.
type Agent struct {
	ID               string
	Name             string
	Endpoint         string
	Description      string
	Intents          []string
	Tasks            []string
	Tags             []string
	Categories       []string
	LocationScope    string
	Languages        []string
	Version          string
	InputSchema      json.RawMessage
	Meta             json.RawMessage
	CallerID         string
	Status           string
	QuarantineReason *string
	QuarantineAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AgentStats is 1:1 with Agent, updated only by the feedback pipeline.
type AgentStats struct {
	AgentID        string
	CallsTotal     int64
	CallsSuccess   int64
	AvgLatencyMs   float64
	AvgRating      float64
	LastFeedbackAt *time.Time
}

const agentColumns = `id, name, endpoint, description, intents, tasks, tags, categories,
	location_scope, languages, version, input_schema, meta, caller_id, status,
	quarantine_reason, quarantine_at, created_at, updated_at`

func scanAgent(row pgx.Row) (*Agent, error) {
	var a Agent
	var inputSchema, meta []byte
	if err := row.Scan(
		&a.ID, &a.Name, &a.Endpoint, &a.Description, &a.Intents, &a.Tasks, &a.Tags, &a.Categories,
		&a.LocationScope, &a.Languages, &a.Version, &inputSchema, &meta, &a.CallerID, &a.Status,
		&a.QuarantineReason, &a.QuarantineAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.InputSchema = inputSchema
	a.Meta = meta
	return &a, nil
}

// UpsertAgent inserts a new Agent or overwrites every field of an
// existing one (§4.1 semantics: id collision overwrites including
// owning caller_id), and ensures a zeroed AgentStats row exists.
func (s *Store) UpsertAgent(ctx context.Context, a *Agent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert agent: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO agents (id, name, endpoint, description, intents, tasks, tags, categories,
			location_scope, languages, version, input_schema, meta, caller_id, status,
			quarantine_reason, quarantine_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,'active',NULL,NULL,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			endpoint = EXCLUDED.endpoint,
			description = EXCLUDED.description,
			intents = EXCLUDED.intents,
			tasks = EXCLUDED.tasks,
			tags = EXCLUDED.tags,
			categories = EXCLUDED.categories,
			location_scope = EXCLUDED.location_scope,
			languages = EXCLUDED.languages,
			version = EXCLUDED.version,
			input_schema = EXCLUDED.input_schema,
			meta = EXCLUDED.meta,
			caller_id = EXCLUDED.caller_id,
			updated_at = now()
	`, a.ID, a.Name, a.Endpoint, a.Description, a.Intents, a.Tasks, a.Tags, a.Categories,
		a.LocationScope, a.Languages, a.Version, nullableJSON(a.InputSchema), nullableJSON(a.Meta), a.CallerID)
	if err != nil {
		return fmt.Errorf("upserting agent: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO agent_stats (agent_id) VALUES ($1)
		ON CONFLICT (agent_id) DO NOTHING
	`, a.ID)
	if err != nil {
		return fmt.Errorf("ensuring agent_stats row: %w", err)
	}

	return tx.Commit(ctx)
}

func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

// GetAgent loads a single agent by id.
func (s *Store) GetAgent(ctx context.Context, id string) (*Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

// GetAgentStats loads the stats row for an agent; ErrNotFound if absent
// (a newly-registered agent always has one, but defensive callers may
// still see absence during races with cascade deletes).
func (s *Store) GetAgentStats(ctx context.Context, agentID string) (*AgentStats, error) {
	var st AgentStats
	row := s.pool.QueryRow(ctx, `
		SELECT agent_id, calls_total, calls_success, avg_latency_ms, avg_rating, last_feedback_at
		FROM agent_stats WHERE agent_id = $1`, agentID)
	if err := row.Scan(&st.AgentID, &st.CallsTotal, &st.CallsSuccess, &st.AvgLatencyMs, &st.AvgRating, &st.LastFeedbackAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// ListAllAgents is the candidate pipeline's final fallback (§4.3 step 4).
func (s *Store) ListAllAgents(ctx context.Context) ([]*Agent, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+agentColumns+` FROM agents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAgents(rows)
}

// FilterByOverlap implements pipeline step 1: set-overlap of intents and
// categories (the `&&` Postgres array overlap operator), plus an
// optional language membership check.
func (s *Store) FilterByOverlap(ctx context.Context, intents, categories []string, language string) ([]*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE categories && $1`
	args := []any{categories}
	if len(intents) > 0 {
		query += ` AND intents && $2`
		args = append(args, intents)
	}
	if language != "" {
		query += fmt.Sprintf(` AND $%d = ANY(languages)`, len(args)+1)
		args = append(args, language)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAgents(rows)
}

// FilterByIntentLanguage implements pipeline step 2: re-query using
// intent and language only (categories dropped).
func (s *Store) FilterByIntentLanguage(ctx context.Context, intents []string, language string) ([]*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE intents && $1`
	args := []any{intents}
	if language != "" {
		query += ` AND $2 = ANY(languages)`
		args = append(args, language)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAgents(rows)
}

// FuzzyByIntentTrigram implements pipeline step 3: trigram similarity
// of the first requested intent against `array_to_string(intents, ',')`,
// keeping matches of similarity >= 0.2, ordered desc, limited.
func (s *Store) FuzzyByIntentTrigram(ctx context.Context, intent string, limit int) ([]*Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE similarity(array_to_string(intents, ','), $1) >= 0.2
		ORDER BY similarity(array_to_string(intents, ','), $1) DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, intent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAgents(rows)
}

func collectAgents(rows pgx.Rows) ([]*Agent, error) {
	var out []*Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAgentStatus writes a new status with an optional reason,
// timestamping quarantine_at when entering quarantine.
func (s *Store) UpdateAgentStatus(ctx context.Context, agentID, status string, reason *string) error {
	var quarantineAt any
	if status == "quarantine" {
		quarantineAt = time.Now()
	} else {
		quarantineAt = nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE agents SET status = $1, quarantine_reason = $2, quarantine_at = COALESCE($3, quarantine_at), updated_at = now()
		WHERE id = $4
	`, status, reason, quarantineAt, agentID)
	return err
}

// Caller is a consumer or provider identity, per §3.
type Caller struct {
	CallerID        string
	Type            string
	Identifier      string
	SecretCipher    *string
	TokenHash       *string
	TokenExpiresAt  *time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GetOrCreateCaller looks up a Caller by (type, identifier), inserting
// one on first sight. The unique constraint on (type, identifier)
// absorbs concurrent first-sight races (§5).
func (s *Store) GetOrCreateCaller(ctx context.Context, callerID, callerType, identifier string) (*Caller, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO callers (caller_id, type, identifier)
		VALUES ($1, $2, $3)
		ON CONFLICT (type, identifier) DO UPDATE SET type = callers.type
		RETURNING caller_id, type, identifier, secret_ciphertext, token_hash, token_expires_at, is_active, created_at, updated_at
	`, callerID, callerType, identifier)
	return scanCaller(row)
}

func scanCaller(row pgx.Row) (*Caller, error) {
	var c Caller
	if err := row.Scan(&c.CallerID, &c.Type, &c.Identifier, &c.SecretCipher, &c.TokenHash, &c.TokenExpiresAt, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetCaller loads a Caller by caller_id.
func (s *Store) GetCaller(ctx context.Context, callerID string) (*Caller, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT caller_id, type, identifier, secret_ciphertext, token_hash, token_expires_at, is_active, created_at, updated_at
		FROM callers WHERE caller_id = $1`, callerID)
	return scanCaller(row)
}

// FindSpoofedCaller implements the anti-spoofing check of §4.2: among
// callers of the same type whose identifier carries the same
// client-id prefix, does one exist with a *different* full identifier?
func (s *Store) FindSpoofedCaller(ctx context.Context, callerType, prefix, identifier string) (*Caller, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT caller_id, type, identifier, secret_ciphertext, token_hash, token_expires_at, is_active, created_at, updated_at
		FROM callers
		WHERE type = $1 AND identifier LIKE $2 AND identifier <> $3
		LIMIT 1
	`, callerType, prefix+"|%", identifier)
	c, err := scanCaller(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// UpdateCallerSecret rotates a provider's encrypted signing secret.
func (s *Store) UpdateCallerSecret(ctx context.Context, callerID, ciphertext string) error {
	_, err := s.pool.Exec(ctx, `UPDATE callers SET secret_ciphertext = $1, updated_at = now() WHERE caller_id = $2`, ciphertext, callerID)
	return err
}

// UpdateCallerTokenHash stores the consumer's session-token hash for
// audit only (§4.2 — never the plaintext token).
func (s *Store) UpdateCallerTokenHash(ctx context.Context, callerID, hash string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE callers SET token_hash = $1, token_expires_at = $2, updated_at = now() WHERE caller_id = $3`, hash, expiresAt, callerID)
	return err
}
