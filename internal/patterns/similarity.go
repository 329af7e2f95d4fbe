package patterns

import "strings"

// MessageSimilarity computes the Jaccard similarity of the lower-cased word
// sets of two messages: |intersection| / |union|. Two empty word sets score
// 0.0 by definition. The measure is symmetric.
func MessageSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(message string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(message))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
