package ranking

import (
	"reflect"
	"testing"
)

func TestTokenizeWords_LowercasesAndSplits(t *testing.T) {
	got := TokenizeWords("Weather Forecast, Radar!", 3)
	want := []string{"weather", "forecast", "radar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeWords = %v, want %v", got, want)
	}
}

func TestTokenizeWords_DropsShortTokens(t *testing.T) {
	got := TokenizeWords("a bb ccc", 3)
	want := []string{"ccc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeWords min length filter = %v, want %v", got, want)
	}
}

func TestTokenizeWords_UnicodeLetters(t *testing.T) {
	got := TokenizeWords("café menu", 3)
	want := []string{"café", "menu"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeWords unicode = %v, want %v", got, want)
	}
}

func TestTokenizeIntentWords_SplitsOnDotsAndDashes(t *testing.T) {
	got := TokenizeIntentWords("weather.forecast_daily-radar")
	want := []string{"weather", "forecast", "daily", "radar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeIntentWords = %v, want %v", got, want)
	}
}

func TestJaccard_IdenticalSetsScoreOne(t *testing.T) {
	a := toSet([]string{"x", "y"})
	b := toSet([]string{"x", "y"})
	if got := jaccard(a, b); got != 1.0 {
		t.Errorf("jaccard identical sets = %v, want 1.0", got)
	}
}

func TestJaccard_DisjointSetsScoreZero(t *testing.T) {
	a := toSet([]string{"x"})
	b := toSet([]string{"y"})
	if got := jaccard(a, b); got != 0.0 {
		t.Errorf("jaccard disjoint sets = %v, want 0.0", got)
	}
}

func TestCharTrigrams_PadsAndSlides(t *testing.T) {
	got := charTrigrams("ab")
	if _, ok := got[" ab"]; !ok {
		t.Errorf("charTrigrams(%q) missing leading-padded trigram, got %v", "ab", got)
	}
	if _, ok := got["ab "]; !ok {
		t.Errorf("charTrigrams(%q) missing trailing-padded trigram, got %v", "ab", got)
	}
}
