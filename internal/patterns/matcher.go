// Package patterns holds the fixed set of failure-signature detectors.
// Each matcher is pure given (new error, recent errors); matchers run in a
// documented fixed order and never suppress one another, so a single new
// error can yield several distinct correlations.
package patterns

import (
	"fmt"
	"sort"
	"time"

	"github.com/platformops/faultline/internal/models"
)

// Matcher scans the recent working set plus a newly arrived error for one
// specific multi-source failure signature.
type Matcher interface {
	Name() models.Pattern
	// Match returns at most one correlation per new error. The recent set
	// may include the new error itself (it is stored before analysis);
	// implementations must not double-count it.
	Match(newErr models.SystemError, recent []models.SystemError) (models.ErrorCorrelation, bool)
}

// DefaultMatchers returns the six detectors in their fixed execution order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		&CascadingFailureMatcher{},
		&CommonRootCauseMatcher{},
		newKeywordMatcher(dependencyFailureSpec),
		newKeywordMatcher(resourceExhaustionSpec),
		&AuthPropagationMatcher{},
		newKeywordMatcher(networkPartitionSpec),
	}
}

// newCorrelation assembles the shared correlation envelope. IDs are
// time-based, matching the correlation record lifecycle (24h TTL keyed by
// creation moment, never content-addressed).
func newCorrelation(pattern models.Pattern, rootCause string, contributing []models.SystemError, confidence float64, actions []string) models.ErrorCorrelation {
	return models.ErrorCorrelation{
		ID:                 fmt.Sprintf("corr-%d", time.Now().UnixNano()),
		Pattern:            pattern,
		RootCause:          rootCause,
		AffectedSubsystems: subsystemsOf(contributing),
		ErrorIDs:           errorIDs(contributing),
		Confidence:         confidence,
		CreatedAt:          time.Now().UTC(),
		RecommendedActions: append([]string(nil), actions...),
	}
}

// othersThan filters the new error out of the recent set by id.
func othersThan(newErr models.SystemError, recent []models.SystemError) []models.SystemError {
	others := make([]models.SystemError, 0, len(recent))
	for _, candidate := range recent {
		if candidate.ID == newErr.ID {
			continue
		}
		others = append(others, candidate)
	}
	return others
}

func subsystemsOf(errs []models.SystemError) []models.Subsystem {
	seen := make(map[models.Subsystem]struct{}, len(errs))
	subsystems := make([]models.Subsystem, 0, len(errs))
	for _, e := range errs {
		if _, ok := seen[e.Subsystem]; ok {
			continue
		}
		seen[e.Subsystem] = struct{}{}
		subsystems = append(subsystems, e.Subsystem)
	}
	sort.Slice(subsystems, func(i, j int) bool { return subsystems[i] < subsystems[j] })
	return subsystems
}

func errorIDs(errs []models.SystemError) []string {
	seen := make(map[string]struct{}, len(errs))
	ids := make([]string, 0, len(errs))
	for _, e := range errs {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}
	return ids
}
