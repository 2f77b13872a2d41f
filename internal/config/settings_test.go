package config

import "testing"

func TestGetDefaultSettings_MatchesThresholdTable(t *testing.T) {
	d := getDefaultSettings()

	if *d.Quarantine.ToQuarantineMinCalls != 20 {
		t.Errorf("ToQuarantineMinCalls = %v, want 20", *d.Quarantine.ToQuarantineMinCalls)
	}
	if *d.Quarantine.ToQuarantineSuccessRate != 0.40 {
		t.Errorf("ToQuarantineSuccessRate = %v, want 0.40", *d.Quarantine.ToQuarantineSuccessRate)
	}
	if *d.Fraud.SpamThresholdPerHour != 10 {
		t.Errorf("SpamThresholdPerHour = %v, want 10", *d.Fraud.SpamThresholdPerHour)
	}
}

func TestSettingsStore_SaveLoadAndResetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	if err != nil {
		t.Fatalf("NewSettingsStore: %v", err)
	}

	overriddenRate := 0.55
	local := Settings{Quarantine: QuarantineSettings{ToQuarantineSuccessRate: &overriddenRate}}
	if err := store.SaveLocal(local); err != nil {
		t.Fatalf("SaveLocal: %v", err)
	}

	reloaded, err := NewSettingsStore(dir)
	if err != nil {
		t.Fatalf("NewSettingsStore (reload): %v", err)
	}
	merged := reloaded.GetMerged()
	if *merged.Quarantine.ToQuarantineSuccessRate != 0.55 {
		t.Errorf("merged override = %v, want 0.55", *merged.Quarantine.ToQuarantineSuccessRate)
	}
	if *merged.Quarantine.ToQuarantineMinCalls != 20 {
		t.Errorf("merged default fallthrough = %v, want 20", *merged.Quarantine.ToQuarantineMinCalls)
	}

	if err := reloaded.ResetToDefault(); err != nil {
		t.Fatalf("ResetToDefault: %v", err)
	}
	afterReset := reloaded.GetMerged()
	if *afterReset.Quarantine.ToQuarantineSuccessRate != 0.40 {
		t.Errorf("after reset, success rate = %v, want the 0.40 default", *afterReset.Quarantine.ToQuarantineSuccessRate)
	}
}

func TestGetDiff_ReportsOnlyOverriddenValues(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	if err != nil {
		t.Fatalf("NewSettingsStore: %v", err)
	}

	overriddenRate := 0.55
	if err := store.SaveLocal(Settings{Quarantine: QuarantineSettings{ToQuarantineSuccessRate: &overriddenRate}}); err != nil {
		t.Fatalf("SaveLocal: %v", err)
	}

	diffs := store.GetDiff()
	diff, ok := diffs["quarantine.to_quarantine_success_rate"]
	if !ok {
		t.Fatal("expected a diff entry for the overridden success rate")
	}
	if diff.LocalValue != 0.55 {
		t.Errorf("diff.LocalValue = %v, want 0.55", diff.LocalValue)
	}
	if diff.DefaultValue != 0.40 {
		t.Errorf("diff.DefaultValue = %v, want 0.40", diff.DefaultValue)
	}
}
