package ranking

import (
	"strings"

	"github.com/MendesCorporation/automata/internal/storage"
)

// Weights, per §4.3. They deliberately sum to 1.02, not 1.0 — never
// renormalize; pinned test scores assume exactly these values.
const (
	weightIntent      = 0.25
	weightGeo         = 0.20
	weightSuccess     = 0.14
	weightDescription = 0.10
	weightCategory    = 0.10
	weightRating      = 0.09
	weightTag         = 0.07
	weightLatency     = 0.03
	weightFraud       = 0.04

	quarantinePenalty = 0.3
)

// Breakdown exposes each weighted factor, logged when SEARCH_DEBUG is
// enabled (§6).
type Breakdown struct {
	Intent      float64
	Geo         float64
	Success     float64
	Description float64
	Category    float64
	Rating      float64
	Tag         float64
	Latency     float64
	Fraud       float64
	Raw         float64
	Final       float64
	GeoScore    float64 // unweighted, used for the location post-filter
}

// Score computes the nine-factor weighted score of §4.3, applying the
// quarantine penalty and clamping to [0, 1.02] before rounding is left
// to the caller (result items round to 2 decimals at the API boundary,
// not here, so internal comparisons stay exact).
func Score(req SearchRequest, agent *storage.Agent, stats *storage.AgentStats, fraudPercent float64, isProduction bool) Breakdown {
	geo := GeoScore(req.Location, agent.LocationScope)

	b := Breakdown{
		Intent:      IntentScore(req.Intents, agent.Intents),
		Geo:         geo,
		Description: descriptionScore(req.Description, agent),
		Category:    ListSimilarity(req.Categories, agent.Categories),
		Tag:         ListSimilarity(req.Tags, agent.Tags),
		Fraud:       1.0 - fraudPercentOrZero(fraudPercent, isProduction)/100.0,
		GeoScore:    geo,
	}

	if stats != nil && stats.CallsTotal > 0 {
		b.Success = float64(stats.CallsSuccess) / float64(stats.CallsTotal)
		b.Rating = stats.AvgRating
		b.Latency = latencyBucket(stats.AvgLatencyMs)
	}

	b.Raw = weightIntent*b.Intent +
		weightGeo*b.Geo +
		weightSuccess*b.Success +
		weightDescription*b.Description +
		weightCategory*b.Category +
		weightRating*b.Rating +
		weightTag*b.Tag +
		weightLatency*b.Latency +
		weightFraud*b.Fraud

	b.Final = b.Raw
	if agent.Status == "quarantine" {
		b.Final -= quarantinePenalty
		if b.Final < 0 {
			b.Final = 0
		}
	}

	return b
}

func fraudPercentOrZero(fraudPercent float64, isProduction bool) float64 {
	if !isProduction {
		return 0
	}
	return fraudPercent
}

func latencyBucket(avgLatencyMs float64) float64 {
	switch {
	case avgLatencyMs <= 500:
		return 1.0
	case avgLatencyMs <= 1500:
		return 0.7
	case avgLatencyMs <= 3000:
		return 0.4
	default:
		return 0.2
	}
}

// descriptionScore implements §4.3's token-overlap factor: 0.5 when no
// description was requested, otherwise min(1, o/min(t,10)) over the
// distinct overlap count o against the agent's description+tags+categories,
// 0 when there is no overlap at all.
func descriptionScore(requestDescription string, agent *storage.Agent) float64 {
	if requestDescription == "" {
		return 0.5
	}

	reqTokens := TokenizeWords(requestDescription, 3)
	t := len(reqTokens)
	if t == 0 {
		return 0.5
	}

	agentText := strings.Join(append(append([]string{agent.Description}, agent.Tags...), agent.Categories...), " ")
	agentSet := toSet(TokenizeWords(agentText, 3))

	o := 0
	seen := make(map[string]struct{})
	for _, rt := range reqTokens {
		if _, done := seen[rt]; done {
			continue
		}
		seen[rt] = struct{}{}
		if _, ok := agentSet[rt]; ok {
			o++
		}
	}

	if o == 0 {
		return 0
	}

	denom := t
	if denom > 10 {
		denom = 10
	}
	score := float64(o) / float64(denom)
	if score > 1.0 {
		score = 1.0
	}
	return score
}
