package ranking

import (
	"math"
	"strings"
)

// GeoScore implements §4.3's location match score. A request with no
// location always scores 0.5 (the neutral default, matching the
// pinned no-location worked example); a Global-scope agent scores 0.3
// against any specific request location; otherwise the agent's
// "city,state,...,country" parts are compared against each
// comma/slash-separated variant of the request, with a 0.2 floor.
func GeoScore(requestLocation, agentLocationScope string) float64 {
	if requestLocation == "" || agentLocationScope == "" {
		return 0.5
	}
	if agentLocationScope == "Global" {
		return 0.3
	}

	agentParts := splitLocation(agentLocationScope)
	if len(agentParts) == 0 {
		return 0.2
	}
	city := agentParts[0]
	country := agentParts[len(agentParts)-1]
	var states []string
	if len(agentParts) > 2 {
		states = agentParts[1 : len(agentParts)-1]
	}

	best := 0.2
	for _, variant := range splitLocation(requestLocation) {
		if equalOrContains(variant, city) {
			best = math.Max(best, 1.0)
			continue
		}
		matchedState := false
		for _, state := range states {
			if equalOrContains(variant, state) {
				matchedState = true
				break
			}
		}
		if matchedState {
			best = math.Max(best, 0.6)
			continue
		}
		if equalOrContains(variant, country) {
			best = math.Max(best, 0.3)
		}
	}
	return best
}

func splitLocation(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/'
	})
	var out []string
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func equalOrContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
