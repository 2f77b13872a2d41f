package quarantine

import (
	"os"
	"testing"

	"github.com/MendesCorporation/automata/internal/config"
)

func defaultThresholds() config.QuarantineSettings {
	store, err := config.NewSettingsStore(tempDirForTest())
	if err != nil {
		panic(err)
	}
	return store.GetDefaults().Quarantine
}

func tempDirForTest() string {
	dir, err := os.MkdirTemp("", "registry-quarantine-test-*")
	if err != nil {
		panic(err)
	}
	return dir
}

func TestQuarantineTriggers_SuccessRateBelowThreshold(t *testing.T) {
	t_ := defaultThresholds()
	m := Metrics{TotalFeedbacks: 25, SuccessRate: 0.3, AvgRating: 0.9, AvgLatencyMs: 100, FraudPercentage: 0}

	reasons := quarantineTriggers(t_, m)
	if len(reasons) == 0 {
		t.Fatal("expected a quarantine trigger for low success rate")
	}
	if reasons[0] != "Success rate below threshold" {
		t.Errorf("reason = %q, want %q", reasons[0], "Success rate below threshold")
	}
}

func TestQuarantineTriggers_NoTriggerBelowMinCalls(t *testing.T) {
	t_ := defaultThresholds()
	m := Metrics{TotalFeedbacks: 5, SuccessRate: 0.1, AvgRating: 0.1, AvgLatencyMs: 100, FraudPercentage: 0}

	if reasons := quarantineTriggers(t_, m); len(reasons) != 0 {
		t.Errorf("expected no triggers below the min-calls floor, got %v", reasons)
	}
}

func TestQuarantineTriggers_HealthyAgentHasNoTriggers(t *testing.T) {
	t_ := defaultThresholds()
	m := Metrics{TotalFeedbacks: 100, SuccessRate: 0.95, AvgRating: 0.9, AvgLatencyMs: 100, FraudPercentage: 0}

	if reasons := quarantineTriggers(t_, m); len(reasons) != 0 {
		t.Errorf("expected no triggers for a healthy agent, got %v", reasons)
	}
}

func TestBannedTriggers_FraudPercentageAboveThreshold(t *testing.T) {
	t_ := defaultThresholds()
	m := Metrics{TotalFeedbacks: 50, SuccessRate: 0.9, AvgRating: 0.9, FraudPercentage: 80}

	reasons := bannedTriggers(t_, m)
	found := false
	for _, r := range reasons {
		if r == "Fraud percentage above banned threshold" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a fraud-percentage banned trigger, got %v", reasons)
	}
}

func TestCanReactivate_RequiresAllThreeConditions(t *testing.T) {
	t_ := defaultThresholds()

	healthy := Metrics{SuccessRate: 0.9, AvgRating: 0.9, FraudPercentage: 0}
	if !canReactivate(t_, healthy) {
		t.Error("expected reactivation to be allowed for a fully healthy agent")
	}

	lowRating := Metrics{SuccessRate: 0.9, AvgRating: 0.1, FraudPercentage: 0}
	if canReactivate(t_, lowRating) {
		t.Error("expected reactivation to be blocked by low rating alone")
	}
}
