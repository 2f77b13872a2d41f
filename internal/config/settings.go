package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SettingsLayer identifies the source of a settings value.
type SettingsLayer string

const (
	LayerDefault SettingsLayer = "default" // built-in, read-only
	LayerLocal   SettingsLayer = "local"   // operator override, on disk
)

// Settings holds the runtime-tunable quarantine thresholds and
// anti-fraud decreasing-weight floor. The documented default values
// populate getDefaultSettings exactly; nothing here changes default
// behavior until an operator writes a
// local override.
type Settings struct {
	Quarantine QuarantineSettings `json:"quarantine"`
	Fraud      FraudSettings      `json:"fraud"`
}

// QuarantineSettings holds the active->quarantine, quarantine->banned,
// and quarantine->active threshold inputs of §4.5.
type QuarantineSettings struct {
	ToQuarantineMinCalls        *int     `json:"to_quarantine_min_calls,omitempty"`
	ToQuarantineSuccessRate     *float64 `json:"to_quarantine_success_rate,omitempty"`
	ToQuarantineRatingMinCalls  *int     `json:"to_quarantine_rating_min_calls,omitempty"`
	ToQuarantineMinRating       *float64 `json:"to_quarantine_min_rating,omitempty"`
	ToQuarantineLatencyMinCalls *int     `json:"to_quarantine_latency_min_calls,omitempty"`
	ToQuarantineMaxLatencyMs    *float64 `json:"to_quarantine_max_latency_ms,omitempty"`
	ToQuarantineMaxFraudPct     *float64 `json:"to_quarantine_max_fraud_pct,omitempty"`

	ToBannedMinCalls       *int     `json:"to_banned_min_calls,omitempty"`
	ToBannedSuccessRate    *float64 `json:"to_banned_success_rate,omitempty"`
	ToBannedRatingMinCalls *int     `json:"to_banned_rating_min_calls,omitempty"`
	ToBannedMinRating      *float64 `json:"to_banned_min_rating,omitempty"`
	ToBannedMaxFraudPct    *float64 `json:"to_banned_max_fraud_pct,omitempty"`
	ToBannedMaxSelfRatePct *float64 `json:"to_banned_max_self_rate_pct,omitempty"`

	ReactivateMinSuccessRate *float64 `json:"reactivate_min_success_rate,omitempty"`
	ReactivateMinRating      *float64 `json:"reactivate_min_rating,omitempty"`
	ReactivateMaxFraudPct    *float64 `json:"reactivate_max_fraud_pct,omitempty"`
}

// FraudSettings holds the anti-fraud decreasing-weight floor of §4.4.
type FraudSettings struct {
	DecreasingWeightFloor *float64 `json:"decreasing_weight_floor,omitempty"`
	SelfRatingWeight      *float64 `json:"self_rating_weight,omitempty"`
	SpamThresholdPerHour  *int     `json:"spam_threshold_per_hour,omitempty"`
}

// SettingsStore manages settings with layered configuration: built-in
// defaults merged with an optional on-disk local override document.
type SettingsStore struct {
	mu       sync.RWMutex
	defaults Settings
	local    Settings
	path     string
}

// NewSettingsStore creates a store rooted at dataDir/settings.json.
func NewSettingsStore(dataDir string) (*SettingsStore, error) {
	store := &SettingsStore{
		defaults: getDefaultSettings(),
		path:     filepath.Join(dataDir, "settings.json"),
	}

	if err := store.loadLocal(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading local settings: %w", err)
		}
	}

	return store, nil
}

// getDefaultSettings mirrors the threshold table of §4.5 and the
// decreasing-weight formula of §4.4 exactly.
func getDefaultSettings() Settings {
	quarantineMinCalls := 20
	quarantineSuccessRate := 0.40
	ratingMinCalls := 15
	minRating := 0.3
	latencyMinCalls := 10
	maxLatencyMs := 30000.0
	maxFraudPct := 50.0

	bannedMinCalls := 40
	bannedSuccessRate := 0.20
	bannedRatingMinCalls := 30
	bannedMinRating := 0.15
	bannedMaxFraudPct := 70.0
	bannedMaxSelfRatePct := 80.0

	reactivateSuccessRate := 0.45
	reactivateRating := 0.35
	reactivateFraudPct := 40.0

	decreasingWeightFloor := 0.1
	selfRatingWeight := 0.1
	spamThresholdPerHour := 10

	return Settings{
		Quarantine: QuarantineSettings{
			ToQuarantineMinCalls:        &quarantineMinCalls,
			ToQuarantineSuccessRate:     &quarantineSuccessRate,
			ToQuarantineRatingMinCalls:  &ratingMinCalls,
			ToQuarantineMinRating:       &minRating,
			ToQuarantineLatencyMinCalls: &latencyMinCalls,
			ToQuarantineMaxLatencyMs:    &maxLatencyMs,
			ToQuarantineMaxFraudPct:     &maxFraudPct,

			ToBannedMinCalls:       &bannedMinCalls,
			ToBannedSuccessRate:    &bannedSuccessRate,
			ToBannedRatingMinCalls: &bannedRatingMinCalls,
			ToBannedMinRating:      &bannedMinRating,
			ToBannedMaxFraudPct:    &bannedMaxFraudPct,
			ToBannedMaxSelfRatePct: &bannedMaxSelfRatePct,

			ReactivateMinSuccessRate: &reactivateSuccessRate,
			ReactivateMinRating:      &reactivateRating,
			ReactivateMaxFraudPct:    &reactivateFraudPct,
		},
		Fraud: FraudSettings{
			DecreasingWeightFloor: &decreasingWeightFloor,
			SelfRatingWeight:      &selfRatingWeight,
			SpamThresholdPerHour:  &spamThresholdPerHour,
		},
	}
}

// GetDefaults returns the built-in defaults, read-only.
func (s *SettingsStore) GetDefaults() Settings {
	return s.defaults
}

// GetLocal returns only the operator's customizations.
func (s *SettingsStore) GetLocal() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local
}

// GetMerged returns settings with local overriding defaults field by
// field — the view the quarantine and feedback engines actually read.
func (s *SettingsStore) GetMerged() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mergeSettings(s.defaults, s.local)
}

// SaveLocal persists an operator override document.
func (s *SettingsStore) SaveLocal(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.local = settings

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	return nil
}

// ResetToDefault discards all operator customizations.
func (s *SettingsStore) ResetToDefault() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.local = Settings{}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing settings file: %w", err)
	}

	return nil
}

func (s *SettingsStore) loadLocal() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.local); err != nil {
		return fmt.Errorf("parsing settings file: %w", err)
	}
	return nil
}

func mergeSettings(defaults, local Settings) Settings {
	merged := defaults

	if local.Quarantine.ToQuarantineMinCalls != nil {
		merged.Quarantine.ToQuarantineMinCalls = local.Quarantine.ToQuarantineMinCalls
	}
	if local.Quarantine.ToQuarantineSuccessRate != nil {
		merged.Quarantine.ToQuarantineSuccessRate = local.Quarantine.ToQuarantineSuccessRate
	}
	if local.Quarantine.ToQuarantineRatingMinCalls != nil {
		merged.Quarantine.ToQuarantineRatingMinCalls = local.Quarantine.ToQuarantineRatingMinCalls
	}
	if local.Quarantine.ToQuarantineMinRating != nil {
		merged.Quarantine.ToQuarantineMinRating = local.Quarantine.ToQuarantineMinRating
	}
	if local.Quarantine.ToQuarantineLatencyMinCalls != nil {
		merged.Quarantine.ToQuarantineLatencyMinCalls = local.Quarantine.ToQuarantineLatencyMinCalls
	}
	if local.Quarantine.ToQuarantineMaxLatencyMs != nil {
		merged.Quarantine.ToQuarantineMaxLatencyMs = local.Quarantine.ToQuarantineMaxLatencyMs
	}
	if local.Quarantine.ToQuarantineMaxFraudPct != nil {
		merged.Quarantine.ToQuarantineMaxFraudPct = local.Quarantine.ToQuarantineMaxFraudPct
	}
	if local.Quarantine.ToBannedMinCalls != nil {
		merged.Quarantine.ToBannedMinCalls = local.Quarantine.ToBannedMinCalls
	}
	if local.Quarantine.ToBannedSuccessRate != nil {
		merged.Quarantine.ToBannedSuccessRate = local.Quarantine.ToBannedSuccessRate
	}
	if local.Quarantine.ToBannedRatingMinCalls != nil {
		merged.Quarantine.ToBannedRatingMinCalls = local.Quarantine.ToBannedRatingMinCalls
	}
	if local.Quarantine.ToBannedMinRating != nil {
		merged.Quarantine.ToBannedMinRating = local.Quarantine.ToBannedMinRating
	}
	if local.Quarantine.ToBannedMaxFraudPct != nil {
		merged.Quarantine.ToBannedMaxFraudPct = local.Quarantine.ToBannedMaxFraudPct
	}
	if local.Quarantine.ToBannedMaxSelfRatePct != nil {
		merged.Quarantine.ToBannedMaxSelfRatePct = local.Quarantine.ToBannedMaxSelfRatePct
	}
	if local.Quarantine.ReactivateMinSuccessRate != nil {
		merged.Quarantine.ReactivateMinSuccessRate = local.Quarantine.ReactivateMinSuccessRate
	}
	if local.Quarantine.ReactivateMinRating != nil {
		merged.Quarantine.ReactivateMinRating = local.Quarantine.ReactivateMinRating
	}
	if local.Quarantine.ReactivateMaxFraudPct != nil {
		merged.Quarantine.ReactivateMaxFraudPct = local.Quarantine.ReactivateMaxFraudPct
	}

	if local.Fraud.DecreasingWeightFloor != nil {
		merged.Fraud.DecreasingWeightFloor = local.Fraud.DecreasingWeightFloor
	}
	if local.Fraud.SelfRatingWeight != nil {
		merged.Fraud.SelfRatingWeight = local.Fraud.SelfRatingWeight
	}
	if local.Fraud.SpamThresholdPerHour != nil {
		merged.Fraud.SpamThresholdPerHour = local.Fraud.SpamThresholdPerHour
	}

	return merged
}

// GetDiff reports which merged settings differ from the built-in
// defaults, for operator visibility into active overrides.
func (s *SettingsStore) GetDiff() map[string]SettingDiff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return diffSettings(s.defaults, s.local)
}

// SettingDiff represents one overridden value.
type SettingDiff struct {
	Path         string `json:"path"`
	DefaultValue any    `json:"default_value"`
	LocalValue   any    `json:"local_value"`
}

func diffSettings(defaults, local Settings) map[string]SettingDiff {
	diffs := make(map[string]SettingDiff)

	if local.Quarantine.ToQuarantineMinCalls != nil && *local.Quarantine.ToQuarantineMinCalls != *defaults.Quarantine.ToQuarantineMinCalls {
		diffs["quarantine.to_quarantine_min_calls"] = SettingDiff{
			Path:         "quarantine.to_quarantine_min_calls",
			DefaultValue: *defaults.Quarantine.ToQuarantineMinCalls,
			LocalValue:   *local.Quarantine.ToQuarantineMinCalls,
		}
	}
	if local.Quarantine.ToQuarantineSuccessRate != nil && *local.Quarantine.ToQuarantineSuccessRate != *defaults.Quarantine.ToQuarantineSuccessRate {
		diffs["quarantine.to_quarantine_success_rate"] = SettingDiff{
			Path:         "quarantine.to_quarantine_success_rate",
			DefaultValue: *defaults.Quarantine.ToQuarantineSuccessRate,
			LocalValue:   *local.Quarantine.ToQuarantineSuccessRate,
		}
	}
	if local.Fraud.DecreasingWeightFloor != nil && *local.Fraud.DecreasingWeightFloor != *defaults.Fraud.DecreasingWeightFloor {
		diffs["fraud.decreasing_weight_floor"] = SettingDiff{
			Path:         "fraud.decreasing_weight_floor",
			DefaultValue: *defaults.Fraud.DecreasingWeightFloor,
			LocalValue:   *local.Fraud.DecreasingWeightFloor,
		}
	}
	if local.Fraud.SpamThresholdPerHour != nil && *local.Fraud.SpamThresholdPerHour != *defaults.Fraud.SpamThresholdPerHour {
		diffs["fraud.spam_threshold_per_hour"] = SettingDiff{
			Path:         "fraud.spam_threshold_per_hour",
			DefaultValue: *defaults.Fraud.SpamThresholdPerHour,
			LocalValue:   *local.Fraud.SpamThresholdPerHour,
		}
	}

	return diffs
}
