package patterns

import (
	"testing"
	"time"

	"github.com/platformops/faultline/internal/models"
)

func testError(id string, subsystem models.Subsystem, message, code string, age time.Duration) models.SystemError {
	return models.SystemError{
		ID:        id,
		Subsystem: subsystem,
		Timestamp: time.Now().Add(-age),
		Category:  "unknown",
		Severity:  models.SeverityMedium,
		Message:   message,
		Code:      code,
	}
}

func hasSubsystem(subsystems []models.Subsystem, want models.Subsystem) bool {
	for _, s := range subsystems {
		if s == want {
			return true
		}
	}
	return false
}

func TestCascadingFailureAllSubsystems(t *testing.T) {
	matcher := &CascadingFailureMatcher{}
	newErr := testError("e3", models.SubsystemTraining, "training crashed", "TRAIN_FAIL", 0)
	recent := []models.SystemError{
		testError("e1", models.SubsystemWorkflow, "step failed", "STEP_FAIL", 3*time.Minute),
		testError("e2", models.SubsystemRouting, "provider error", "PROVIDER_FAIL", 2*time.Minute),
	}

	corr, ok := matcher.Match(newErr, recent)
	if !ok {
		t.Fatalf("expected cascading correlation")
	}
	if corr.Pattern != models.PatternCascadingFailure {
		t.Fatalf("unexpected pattern %s", corr.Pattern)
	}
	if len(corr.AffectedSubsystems) != 3 {
		t.Fatalf("expected all three subsystems, got %v", corr.AffectedSubsystems)
	}
	for _, want := range models.AllSubsystems {
		if !hasSubsystem(corr.AffectedSubsystems, want) {
			t.Fatalf("missing subsystem %s in %v", want, corr.AffectedSubsystems)
		}
	}
	if len(corr.ErrorIDs) != 3 {
		t.Fatalf("expected three contributing errors, got %v", corr.ErrorIDs)
	}
	if corr.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %f", corr.Confidence)
	}
}

func TestCascadingFailureEarliestPerSubsystem(t *testing.T) {
	matcher := &CascadingFailureMatcher{}
	newErr := testError("new", models.SubsystemRouting, "provider error", "PF", 0)
	recent := []models.SystemError{
		testError("wf-late", models.SubsystemWorkflow, "step failed again", "SF", time.Minute),
		testError("wf-early", models.SubsystemWorkflow, "step failed", "SF", 4*time.Minute),
	}

	corr, ok := matcher.Match(newErr, recent)
	if !ok {
		t.Fatalf("expected correlation")
	}
	if corr.ErrorIDs[0] != "wf-early" {
		t.Fatalf("expected earliest workflow error first, got %v", corr.ErrorIDs)
	}
}

func TestCascadingFailureSingleSubsystemNoMatch(t *testing.T) {
	matcher := &CascadingFailureMatcher{}
	newErr := testError("e1", models.SubsystemWorkflow, "step failed", "SF", 0)
	recent := []models.SystemError{
		testError("e2", models.SubsystemWorkflow, "another step failed", "SF2", time.Minute),
	}
	if _, ok := matcher.Match(newErr, recent); ok {
		t.Fatalf("one represented subsystem must not correlate")
	}
}

func TestCommonRootCauseSharedCode(t *testing.T) {
	matcher := &CommonRootCauseMatcher{}
	newErr := testError("e1", models.SubsystemWorkflow, "step failed", "DB_DOWN", 0)
	recent := []models.SystemError{
		testError("e2", models.SubsystemRouting, "completely different text", "DB_DOWN", time.Minute),
		testError("e3", models.SubsystemTraining, "unrelated", "OTHER", time.Minute),
	}

	corr, ok := matcher.Match(newErr, recent)
	if !ok {
		t.Fatalf("expected common root cause correlation")
	}
	if len(corr.ErrorIDs) != 2 {
		t.Fatalf("expected new error plus one related, got %v", corr.ErrorIDs)
	}
	if corr.Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %f", corr.Confidence)
	}
}

func TestCommonRootCauseIgnoresSameSubsystem(t *testing.T) {
	matcher := &CommonRootCauseMatcher{}
	newErr := testError("e1", models.SubsystemWorkflow, "step failed", "DB_DOWN", 0)
	recent := []models.SystemError{
		testError("e2", models.SubsystemWorkflow, "step failed", "DB_DOWN", time.Minute),
	}
	// Same-subsystem repetition is not cross-system correlation.
	if _, ok := matcher.Match(newErr, recent); ok {
		t.Fatalf("same-subsystem errors must not correlate under common root cause")
	}
}

func TestCommonRootCauseMessageSimilarity(t *testing.T) {
	matcher := &CommonRootCauseMatcher{}
	newErr := testError("e1", models.SubsystemWorkflow, "upstream gateway rejected the request payload", "A", 0)
	recent := []models.SystemError{
		testError("e2", models.SubsystemRouting, "upstream gateway rejected the request payload", "B", time.Minute),
	}
	if _, ok := matcher.Match(newErr, recent); !ok {
		t.Fatalf("near-identical messages should correlate across subsystems")
	}
}

func TestDependencyFailureMatcher(t *testing.T) {
	matcher := newKeywordMatcher(dependencyFailureSpec)
	newErr := testError("e1", models.SubsystemWorkflow, "timeout calling service", "T", 0)
	recent := []models.SystemError{
		testError("e2", models.SubsystemRouting, "database connection refused", "C", time.Minute),
	}

	corr, ok := matcher.Match(newErr, recent)
	if !ok {
		t.Fatalf("expected dependency failure correlation")
	}
	if corr.Pattern != models.PatternDependencyFailure || corr.Confidence != 0.9 {
		t.Fatalf("unexpected correlation %s/%f", corr.Pattern, corr.Confidence)
	}
}

func TestDependencyFailureNeedsRecentMatch(t *testing.T) {
	matcher := newKeywordMatcher(dependencyFailureSpec)
	newErr := testError("e1", models.SubsystemWorkflow, "timeout calling service", "T", 0)
	recent := []models.SystemError{
		testError("e2", models.SubsystemRouting, "invalid prompt", "P", time.Minute),
	}
	if _, ok := matcher.Match(newErr, recent); ok {
		t.Fatalf("no keyword overlap in recent errors, should not correlate")
	}
}

func TestResourceExhaustionMatcher(t *testing.T) {
	matcher := newKeywordMatcher(resourceExhaustionSpec)
	newErr := testError("e1", models.SubsystemTraining, "gpu memory exhausted", "OOM", 0)
	recent := []models.SystemError{
		testError("e2", models.SubsystemRouting, "provider quota exceeded", "QUOTA", time.Minute),
	}

	corr, ok := matcher.Match(newErr, recent)
	if !ok {
		t.Fatalf("expected resource exhaustion correlation")
	}
	if corr.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %f", corr.Confidence)
	}
}

func TestNetworkPartitionThreshold(t *testing.T) {
	matcher := newKeywordMatcher(networkPartitionSpec)
	newErr := testError("new", models.SubsystemWorkflow, "host unreachable", "NET", 0)

	one := []models.SystemError{
		testError("e1", models.SubsystemRouting, "dns resolve failed", "DNS", time.Minute),
	}
	if _, ok := matcher.Match(newErr, one); ok {
		t.Fatalf("one matching recent error must not trigger a partition")
	}

	two := append(one, testError("e2", models.SubsystemTraining, "connection timeout", "CT", 2*time.Minute))
	corr, ok := matcher.Match(newErr, two)
	if !ok {
		t.Fatalf("two matching recent errors should trigger exactly one partition correlation")
	}
	if corr.Pattern != models.PatternNetworkPartition || corr.Confidence != 0.8 {
		t.Fatalf("unexpected correlation %s/%f", corr.Pattern, corr.Confidence)
	}
	if len(corr.ErrorIDs) != 3 {
		t.Fatalf("expected three contributing errors, got %v", corr.ErrorIDs)
	}
}

func TestAuthPropagationMatcher(t *testing.T) {
	matcher := &AuthPropagationMatcher{}
	newErr := models.SystemError{
		ID: "e1", Subsystem: models.SubsystemWorkflow, Timestamp: time.Now(),
		Category: "authentication", Message: "token rejected", Code: "X",
	}
	recent := []models.SystemError{
		testError("e2", models.SubsystemRouting, "provider auth handshake failed", "Y", time.Minute),
		testError("e3", models.SubsystemTraining, "job queued", "TOKEN_EXPIRED", time.Minute),
	}

	corr, ok := matcher.Match(newErr, recent)
	if !ok {
		t.Fatalf("expected auth propagation correlation")
	}
	if len(corr.ErrorIDs) != 3 {
		t.Fatalf("expected message and code matches collected, got %v", corr.ErrorIDs)
	}
	if corr.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %f", corr.Confidence)
	}
}

func TestAuthPropagationRequiresAuthError(t *testing.T) {
	matcher := &AuthPropagationMatcher{}
	newErr := testError("e1", models.SubsystemWorkflow, "disk full", "DISK", 0)
	if _, ok := matcher.Match(newErr, nil); ok {
		t.Fatalf("non-auth error must not trigger auth propagation")
	}
}

func TestMatchersIndependent(t *testing.T) {
	// A network-ish error seen alongside keyword matches from two other
	// subsystems triggers several patterns for the one new error.
	newErr := testError("new", models.SubsystemTraining, "connection timeout reaching api", "NET", 0)
	recent := []models.SystemError{
		testError("e1", models.SubsystemWorkflow, "service timeout", "T1", time.Minute),
		testError("e2", models.SubsystemRouting, "network connection dropped", "T2", 2*time.Minute),
	}

	fired := make(map[models.Pattern]bool)
	for _, matcher := range DefaultMatchers() {
		if corr, ok := matcher.Match(newErr, recent); ok {
			fired[corr.Pattern] = true
		}
	}
	for _, want := range []models.Pattern{
		models.PatternCascadingFailure,
		models.PatternDependencyFailure,
		models.PatternNetworkPartition,
	} {
		if !fired[want] {
			t.Fatalf("expected %s to fire, got %v", want, fired)
		}
	}
}

func TestMatcherRecentIncludesNewError(t *testing.T) {
	// The store is written before analysis, so the new error often appears
	// in its own recent window; it must not be double-counted.
	matcher := newKeywordMatcher(dependencyFailureSpec)
	newErr := testError("e1", models.SubsystemWorkflow, "timeout calling service", "T", 0)
	recent := []models.SystemError{
		newErr,
		testError("e2", models.SubsystemRouting, "api connection lost", "C", time.Minute),
	}

	corr, ok := matcher.Match(newErr, recent)
	if !ok {
		t.Fatalf("expected correlation")
	}
	if len(corr.ErrorIDs) != 2 {
		t.Fatalf("new error double-counted: %v", corr.ErrorIDs)
	}
}
