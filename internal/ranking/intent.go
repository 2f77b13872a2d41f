package ranking

import (
	"math"
	"strings"
)

// hierarchicalScore implements §4.3's tokenize-by-'.' comparison: exact
// match 1.0, shared first two tokens 0.6, shared first token 0.3, else 0.
func hierarchicalScore(search, agent string) float64 {
	if search == agent {
		return 1.0
	}
	st := strings.Split(search, ".")
	at := strings.Split(agent, ".")
	if len(st) >= 2 && len(at) >= 2 && st[0] == at[0] && st[1] == at[1] {
		return 0.6
	}
	if len(st) >= 1 && len(at) >= 1 && st[0] == at[0] {
		return 0.3
	}
	return 0.0
}

// trigramScore implements §4.3's fuzzy intent similarity: Jaccard over
// word tokens, plus a character-trigram bonus between distinct tokens
// capped at 1.0 total.
func trigramScore(search, agent string) float64 {
	searchTokens := TokenizeIntentWords(search)
	agentTokens := TokenizeIntentWords(agent)

	jac := jaccard(toSet(searchTokens), toSet(agentTokens))

	bonus := 0.0
	for _, s := range searchTokens {
		for _, a := range agentTokens {
			if s == a {
				continue
			}
			sim := jaccard(charTrigrams(s), charTrigrams(a))
			if sim > bonus {
				bonus = sim
			}
		}
	}

	total := jac + bonus*0.3
	if total > 1.0 {
		total = 1.0
	}
	return total
}

// IntentScore implements the weighted 0.25 "intent" factor of §4.3:
// best over requested intents of max(hierarchical, 0.85*trigram),
// where hierarchical/trigram are themselves each maximized over the
// agent's intents. With no requested intent the factor defaults to 0.5
// (mirroring the description factor's no-request default).
func IntentScore(searchIntents, agentIntents []string) float64 {
	if len(searchIntents) == 0 {
		return 0.5
	}
	if len(agentIntents) == 0 {
		return 0.0
	}

	best := 0.0
	for _, si := range searchIntents {
		bestHier := 0.0
		bestTri := 0.0
		for _, ai := range agentIntents {
			if h := hierarchicalScore(si, ai); h > bestHier {
				bestHier = h
			}
			if t := trigramScore(si, ai); t > bestTri {
				bestTri = t
			}
		}
		combined := math.Max(bestHier, 0.85*bestTri)
		if combined > best {
			best = combined
		}
	}
	return best
}
