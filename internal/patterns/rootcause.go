package patterns

import (
	"fmt"

	"github.com/platformops/faultline/internal/models"
)

// similarityThreshold is the Jaccard score above which two messages from
// different subsystems are considered to describe the same failure.
const similarityThreshold = 0.7

// CommonRootCauseMatcher flags recent errors from other subsystems that
// carry the same machine code or a near-identical message, suggesting one
// shared upstream cause. Errors from the new error's own subsystem are
// deliberately excluded: same-subsystem repetition is not cross-system
// correlation.
type CommonRootCauseMatcher struct{}

// Name implements Matcher.
func (m *CommonRootCauseMatcher) Name() models.Pattern {
	return models.PatternCommonRootCause
}

// Match implements Matcher.
func (m *CommonRootCauseMatcher) Match(newErr models.SystemError, recent []models.SystemError) (models.ErrorCorrelation, bool) {
	related := make([]models.SystemError, 0)
	for _, candidate := range othersThan(newErr, recent) {
		if candidate.Subsystem == newErr.Subsystem {
			continue
		}
		if candidate.Code == newErr.Code || MessageSimilarity(candidate.Message, newErr.Message) > similarityThreshold {
			related = append(related, candidate)
		}
	}
	if len(related) == 0 {
		return models.ErrorCorrelation{}, false
	}

	contributing := append([]models.SystemError{newErr}, related...)
	rootCause := fmt.Sprintf("shared root cause across %d subsystems (code %s)", len(subsystemsOf(contributing)), newErr.Code)
	corr := newCorrelation(
		models.PatternCommonRootCause,
		rootCause,
		contributing,
		0.7,
		[]string{models.ActionNameInvestigateShared, models.ActionNameCheckConfiguration},
	)
	return corr, true
}
