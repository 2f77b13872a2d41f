package ranking

import "testing"

func TestIntentScore_NoRequestedIntentDefaultsNeutral(t *testing.T) {
	if got := IntentScore(nil, []string{"weather.forecast"}); got != 0.5 {
		t.Errorf("IntentScore with no request intents = %v, want 0.5", got)
	}
}

func TestIntentScore_AgentWithNoIntentsCannotMatch(t *testing.T) {
	if got := IntentScore([]string{"weather.forecast"}, nil); got != 0.0 {
		t.Errorf("IntentScore against agent with no intents = %v, want 0", got)
	}
}

func TestIntentScore_ExactMatch(t *testing.T) {
	if got := IntentScore([]string{"weather.forecast"}, []string{"weather.forecast"}); got != 1.0 {
		t.Errorf("IntentScore exact match = %v, want 1.0", got)
	}
}

func TestIntentScore_SharedNamespacePrefix(t *testing.T) {
	got := IntentScore([]string{"weather.forecast.daily"}, []string{"weather.forecast.hourly"})
	if got != 0.6 {
		t.Errorf("IntentScore shared first two tokens = %v, want 0.6", got)
	}
}

func TestIntentScore_SharedTopLevelOnly(t *testing.T) {
	got := IntentScore([]string{"weather.forecast"}, []string{"weather.alerts.severe"})
	if got < 0.3 {
		t.Errorf("IntentScore shared top-level token should be at least 0.3, got %v", got)
	}
}

func TestIntentScore_UnrelatedIntentsScoreLow(t *testing.T) {
	got := IntentScore([]string{"weather.forecast"}, []string{"finance.quote"})
	if got > 0.1 {
		t.Errorf("IntentScore for unrelated intents should be near zero, got %v", got)
	}
}

func TestHierarchicalScore_Table(t *testing.T) {
	cases := []struct {
		search, agent string
		want          float64
	}{
		{"a.b.c", "a.b.c", 1.0},
		{"a.b.c", "a.b.d", 0.6},
		{"a.b", "a.c", 0.3},
		{"a", "b", 0.0},
	}
	for _, c := range cases {
		if got := hierarchicalScore(c.search, c.agent); got != c.want {
			t.Errorf("hierarchicalScore(%q, %q) = %v, want %v", c.search, c.agent, got, c.want)
		}
	}
}
