package patterns

import (
	"fmt"
	"strings"

	"github.com/platformops/faultline/internal/models"
)

// keywordSpec parameterises the keyword-family matchers. Three of the six
// detectors share this shape and differ only in vocabulary, confidence,
// and how many independently matching recent errors they demand.
type keywordSpec struct {
	pattern    models.Pattern
	keywords   []string
	confidence float64
	// minRecent is the number of matching recent errors (excluding the new
	// error) required before the pattern fires.
	minRecent int
	rootCause string
	actions   []string
}

var dependencyFailureSpec = keywordSpec{
	pattern:    models.PatternDependencyFailure,
	keywords:   []string{"database", "connection", "timeout", "network", "api", "service"},
	confidence: 0.9,
	minRecent:  1,
	rootCause:  "shared dependency failure",
	actions:    []string{models.ActionNameRestartDependency, models.ActionNameCheckNetwork},
}

var resourceExhaustionSpec = keywordSpec{
	pattern:    models.PatternResourceExhaustion,
	keywords:   []string{"memory", "cpu", "disk", "quota", "limit", "exhausted", "full"},
	confidence: 0.85,
	minRecent:  1,
	rootCause:  "resource exhaustion",
	actions:    []string{models.ActionNameScaleResources, models.ActionNameCleanupResources, models.ActionNameRestartServices},
}

// Network partition demands two independently matching recent errors,
// stricter than dependency failure: a single timeout is routine, several
// at once across the window suggest a partition.
var networkPartitionSpec = keywordSpec{
	pattern:    models.PatternNetworkPartition,
	keywords:   []string{"connection", "timeout", "unreachable", "network", "dns", "resolve"},
	confidence: 0.8,
	minRecent:  2,
	rootCause:  "suspected network partition",
	actions:    []string{models.ActionNameCheckNetwork, models.ActionNameRestartNetworkService},
}

// KeywordMatcher fires when the new error's message carries one of a fixed
// keyword family and enough recent errors match the same family.
type KeywordMatcher struct {
	spec keywordSpec
}

func newKeywordMatcher(spec keywordSpec) *KeywordMatcher {
	return &KeywordMatcher{spec: spec}
}

// Name implements Matcher.
func (m *KeywordMatcher) Name() models.Pattern {
	return m.spec.pattern
}

// Match implements Matcher.
func (m *KeywordMatcher) Match(newErr models.SystemError, recent []models.SystemError) (models.ErrorCorrelation, bool) {
	if !containsAnyKeyword(newErr.Message, m.spec.keywords) {
		return models.ErrorCorrelation{}, false
	}

	related := make([]models.SystemError, 0)
	for _, candidate := range othersThan(newErr, recent) {
		if containsAnyKeyword(candidate.Message, m.spec.keywords) {
			related = append(related, candidate)
		}
	}
	if len(related) < m.spec.minRecent {
		return models.ErrorCorrelation{}, false
	}

	contributing := append([]models.SystemError{newErr}, related...)
	rootCause := fmt.Sprintf("%s (%d related errors)", m.spec.rootCause, len(related))
	corr := newCorrelation(m.spec.pattern, rootCause, contributing, m.spec.confidence, m.spec.actions)
	return corr, true
}

func containsAnyKeyword(message string, keywords []string) bool {
	lowered := strings.ToLower(message)
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
