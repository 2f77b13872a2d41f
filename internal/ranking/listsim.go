package ranking

import "strings"

// ListSimilarity implements §4.3's shared category/tag scoring: an
// empty search list is a full match (1.0); an empty agent list cannot
// match a non-empty request (0.0); otherwise each search token must
// find an agent token that is equal to, contains, or is contained by
// it, and the score is the matched fraction of search tokens.
func ListSimilarity(searchList, agentList []string) float64 {
	if len(searchList) == 0 {
		return 1.0
	}
	if len(agentList) == 0 {
		return 0.0
	}

	searchTokens := flattenList(searchList)
	agentTokens := flattenList(agentList)
	if len(searchTokens) == 0 {
		return 0.5
	}

	matches := 0
	for _, st := range searchTokens {
		for _, at := range agentTokens {
			if st == at || strings.Contains(at, st) || strings.Contains(st, at) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(searchTokens))
}

func flattenList(items []string) []string {
	var tokens []string
	for _, item := range items {
		tokens = append(tokens, TokenizeWords(item, 1)...)
	}
	return tokens
}
