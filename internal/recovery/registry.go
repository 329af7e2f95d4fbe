// Package recovery executes bounded, auditable remediation actions for
// detected correlations. Actions are declarative signals for downstream
// consumers (supervisors, autoscalers, operators), never direct
// infrastructure calls.
package recovery

import (
	"time"

	"github.com/platformops/faultline/internal/models"
)

// Registry holds the static set of recovery actions, keyed by name.
// Built once at process start, read-only thereafter. It is intentionally
// smaller than the universe of names matchers recommend: an unregistered
// recommendation is a soft hint, skipped silently at dispatch time.
type Registry struct {
	actions map[string]models.RecoveryAction
}

// NewRegistry builds a registry from the given actions.
func NewRegistry(actions ...models.RecoveryAction) *Registry {
	byName := make(map[string]models.RecoveryAction, len(actions))
	for _, action := range actions {
		byName[action.Name] = action
	}
	return &Registry{actions: byName}
}

// Lookup returns the action registered under name.
func (r *Registry) Lookup(name string) (models.RecoveryAction, bool) {
	action, ok := r.actions[name]
	return action, ok
}

// Names returns every registered action name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry returns the built-in action set.
func DefaultRegistry() *Registry {
	return NewRegistry(
		models.RecoveryAction{
			ID:          "act-restart-upstream",
			Name:        models.ActionNameRestartUpstream,
			Description: "Signal a restart for every subsystem affected by a cascading failure.",
			Patterns:    []models.Pattern{models.PatternCascadingFailure},
			MaxRetries:  1,
			Timeout:     5 * time.Second,
			Type:        models.ActionRestart,
		},
		models.RecoveryAction{
			ID:          "act-retry-failed",
			Name:        models.ActionNameRetryFailedRequests,
			Description: "Re-attempt the operations behind the contributing errors with fixed-delay retry.",
			Patterns:    []models.Pattern{models.PatternCascadingFailure, models.PatternDependencyFailure},
			MaxRetries:  3,
			RetryDelay:  2 * time.Second,
			Timeout:     15 * time.Second,
			Type:        models.ActionRetry,
		},
		models.RecoveryAction{
			ID:          "act-restart-dependency",
			Name:        models.ActionNameRestartDependency,
			Description: "Signal a restart of the shared dependency behind correlated failures.",
			Patterns:    []models.Pattern{models.PatternDependencyFailure},
			MaxRetries:  1,
			Timeout:     5 * time.Second,
			Type:        models.ActionRestart,
		},
		models.RecoveryAction{
			ID:          "act-check-network",
			Name:        models.ActionNameCheckNetwork,
			Description: "Notify operators to verify network connectivity between subsystems.",
			Patterns:    []models.Pattern{models.PatternDependencyFailure, models.PatternNetworkPartition},
			Timeout:     5 * time.Second,
			Type:        models.ActionNotify,
		},
		models.RecoveryAction{
			ID:          "act-scale-resources",
			Name:        models.ActionNameScaleResources,
			Description: "Emit a declarative scale-up signal for the external autoscaler.",
			Patterns:    []models.Pattern{models.PatternResourceExhaustion},
			Timeout:     5 * time.Second,
			Type:        models.ActionScale,
			Parameters:  map[string]string{"scale_factor": "2"},
		},
		models.RecoveryAction{
			ID:          "act-refresh-tokens",
			Name:        models.ActionNameRefreshTokens,
			Description: "Flip the token-refresh fallback flag polled by downstream subsystems.",
			Patterns:    []models.Pattern{models.PatternAuthPropagation},
			Categories:  []string{"authentication"},
			Timeout:     5 * time.Second,
			Type:        models.ActionFallback,
			Parameters:  map[string]string{"flag": "token_refresh"},
		},
	)
}
