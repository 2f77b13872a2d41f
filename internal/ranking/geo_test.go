package ranking

import "testing"

func TestGeoScore_NoRequestLocationIsNeutral(t *testing.T) {
	if got := GeoScore("", "San Francisco,CA,USA"); got != 0.5 {
		t.Errorf("GeoScore with no request location = %v, want 0.5", got)
	}
	if got := GeoScore("", "Global"); got != 0.5 {
		t.Errorf("GeoScore with no request location against Global = %v, want 0.5", got)
	}
}

func TestGeoScore_GlobalAgentAgainstSpecificLocation(t *testing.T) {
	if got := GeoScore("Austin,TX,USA", "Global"); got != 0.3 {
		t.Errorf("GeoScore against Global scope = %v, want 0.3", got)
	}
}

func TestGeoScore_CityMatch(t *testing.T) {
	if got := GeoScore("San Francisco,CA,USA", "San Francisco,CA,USA"); got != 1.0 {
		t.Errorf("GeoScore exact city match = %v, want 1.0", got)
	}
}

func TestGeoScore_StateMatchOnly(t *testing.T) {
	if got := GeoScore("Austin,TX,USA", "San Francisco,CA,USA"); got >= 0.6 {
		t.Errorf("GeoScore with no shared state must be below 0.6, got %v", got)
	}
	if got := GeoScore("Dallas,TX,USA", "Houston,TX,USA"); got != 0.6 {
		t.Errorf("GeoScore shared state = %v, want 0.6", got)
	}
}

func TestGeoScore_CountryMatchOnly(t *testing.T) {
	if got := GeoScore("Miami,FL,USA", "Seattle,WA,USA"); got != 0.3 {
		t.Errorf("GeoScore shared country only = %v, want 0.3", got)
	}
}

func TestGeoScore_NoOverlapFloor(t *testing.T) {
	if got := GeoScore("Paris,France", "Tokyo,Japan"); got != 0.2 {
		t.Errorf("GeoScore with no overlap = %v, want 0.2 floor", got)
	}
}

func TestGeoScore_SingleTokenLocationScopeDoesNotPanic(t *testing.T) {
	if got := GeoScore("Germany", "Germany"); got != 1.0 {
		t.Errorf("GeoScore single-token exact match = %v, want 1.0", got)
	}
	if got := GeoScore("France", "Germany"); got != 0.2 {
		t.Errorf("GeoScore single-token no overlap = %v, want 0.2 floor", got)
	}
}
