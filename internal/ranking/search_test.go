package ranking

import (
	"reflect"
	"testing"
)

func TestNormalizeIntents_Absent(t *testing.T) {
	req := SearchRequest{}
	if err := req.NormalizeIntents(); err != nil {
		t.Fatalf("NormalizeIntents: %v", err)
	}
	if req.Intents != nil {
		t.Errorf("Intents = %v, want nil", req.Intents)
	}
}

func TestNormalizeIntents_SingleString(t *testing.T) {
	req := SearchRequest{Intent: "weather.forecast"}
	if err := req.NormalizeIntents(); err != nil {
		t.Fatalf("NormalizeIntents: %v", err)
	}
	want := []string{"weather.forecast"}
	if !reflect.DeepEqual(req.Intents, want) {
		t.Errorf("Intents = %v, want %v", req.Intents, want)
	}
}

func TestNormalizeIntents_ArrayOfStrings(t *testing.T) {
	req := SearchRequest{Intent: []any{"weather.forecast", "weather.radar"}}
	if err := req.NormalizeIntents(); err != nil {
		t.Fatalf("NormalizeIntents: %v", err)
	}
	want := []string{"weather.forecast", "weather.radar"}
	if !reflect.DeepEqual(req.Intents, want) {
		t.Errorf("Intents = %v, want %v", req.Intents, want)
	}
}

func TestNormalizeIntents_RejectsNonStringArrayElements(t *testing.T) {
	req := SearchRequest{Intent: []any{"weather.forecast", 42}}
	if err := req.NormalizeIntents(); err == nil {
		t.Fatal("expected an error for a non-string array element")
	}
}

func TestNormalizeIntents_RejectsOtherTypes(t *testing.T) {
	req := SearchRequest{Intent: 42}
	if err := req.NormalizeIntents(); err == nil {
		t.Fatal("expected an error for a non-string, non-array intent")
	}
}

func TestRoundScore_RoundsToTwoDecimals(t *testing.T) {
	if got := roundScore(0.6149); got != 0.61 {
		t.Errorf("roundScore(0.6149) = %v, want 0.61", got)
	}
	if got := roundScore(0.615); got != 0.62 {
		t.Errorf("roundScore(0.615) = %v, want 0.62", got)
	}
}
