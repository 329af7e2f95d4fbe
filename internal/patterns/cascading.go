package patterns

import (
	"fmt"
	"sort"

	"github.com/platformops/faultline/internal/models"
)

// CascadingFailureMatcher detects failures propagating along the platform
// dependency chain workflow-automation -> ai-routing -> model-training.
// It fires when at least two subsystems in that chain have an error inside
// the window, correlating the earliest error from each represented
// subsystem in dependency order.
type CascadingFailureMatcher struct{}

// Name implements Matcher.
func (m *CascadingFailureMatcher) Name() models.Pattern {
	return models.PatternCascadingFailure
}

// Match implements Matcher.
func (m *CascadingFailureMatcher) Match(newErr models.SystemError, recent []models.SystemError) (models.ErrorCorrelation, bool) {
	working := append(othersThan(newErr, recent), newErr)

	grouped := make(map[models.Subsystem][]models.SystemError)
	for _, e := range working {
		grouped[e.Subsystem] = append(grouped[e.Subsystem], e)
	}

	// Earliest error per subsystem, walked in dependency order.
	chain := make([]models.SystemError, 0, len(models.AllSubsystems))
	for _, subsystem := range models.AllSubsystems {
		group := grouped[subsystem]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Timestamp.Before(group[j].Timestamp) })
		chain = append(chain, group[0])
	}
	if len(chain) < 2 {
		return models.ErrorCorrelation{}, false
	}

	rootCause := fmt.Sprintf("cascading failure originating in %s", chain[0].Subsystem)
	corr := newCorrelation(
		models.PatternCascadingFailure,
		rootCause,
		chain,
		0.8,
		[]string{models.ActionNameRestartUpstream, models.ActionNameRetryFailedRequests},
	)
	return corr, true
}
