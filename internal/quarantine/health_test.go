package quarantine

import (
	"testing"

	"github.com/MendesCorporation/automata/internal/config"
	"github.com/MendesCorporation/automata/internal/storage"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	settings, err := config.NewSettingsStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSettingsStore: %v", err)
	}
	return &Engine{settings: settings, isProduction: true}
}

func TestAssessRisk_ActiveAgentApproachingThresholdIsLowWithWarning(t *testing.T) {
	e := testEngine(t)
	agent := &storage.Agent{Status: "active"}
	m := Metrics{TotalFeedbacks: 20, SuccessRate: 0.45, AvgRating: 0.9, FraudPercentage: 0}

	risk, warnings := e.assessRisk(agent, m)
	if risk != "low" {
		t.Errorf("risk = %q, want %q", risk, "low")
	}
	if len(warnings) == 0 {
		t.Error("expected a trending warning for a success rate near the threshold")
	}
}

func TestAssessRisk_ActiveAgentOverThresholdIsMedium(t *testing.T) {
	e := testEngine(t)
	agent := &storage.Agent{Status: "active"}
	m := Metrics{TotalFeedbacks: 25, SuccessRate: 0.1, AvgRating: 0.9, FraudPercentage: 0}

	risk, _ := e.assessRisk(agent, m)
	if risk != "medium" {
		t.Errorf("risk = %q, want %q", risk, "medium")
	}
}

func TestAssessRisk_QuarantinedAgentOverBanThresholdIsHigh(t *testing.T) {
	e := testEngine(t)
	agent := &storage.Agent{Status: "quarantine"}
	m := Metrics{TotalFeedbacks: 50, SuccessRate: 0.1, AvgRating: 0.9, FraudPercentage: 0}

	risk, warnings := e.assessRisk(agent, m)
	if risk != "high" {
		t.Errorf("risk = %q, want %q", risk, "high")
	}
	if len(warnings) == 0 {
		t.Error("expected banned-threshold warnings")
	}
}

func TestAssessRisk_QuarantinedAgentBelowBanThresholdIsMedium(t *testing.T) {
	e := testEngine(t)
	agent := &storage.Agent{Status: "quarantine"}
	m := Metrics{TotalFeedbacks: 50, SuccessRate: 0.9, AvgRating: 0.9, FraudPercentage: 0}

	risk, _ := e.assessRisk(agent, m)
	if risk != "medium" {
		t.Errorf("risk = %q, want %q", risk, "medium")
	}
}
