package models

import "time"

// ActionType tags how a recovery action is executed by the dispatcher.
type ActionType string

const (
	ActionRestart  ActionType = "restart"
	ActionRetry    ActionType = "retry"
	ActionFallback ActionType = "fallback"
	ActionScale    ActionType = "scale"
	ActionNotify   ActionType = "notify"
)

// Recovery action names recommended by matchers. The dispatcher registry
// intentionally covers only a subset; unregistered names are soft hints
// skipped at dispatch time.
const (
	ActionNameRestartUpstream       = "restart_upstream_service"
	ActionNameRetryFailedRequests   = "retry_failed_requests"
	ActionNameInvestigateShared     = "investigate_shared_dependency"
	ActionNameCheckConfiguration    = "check_configuration"
	ActionNameRestartDependency     = "restart_dependency"
	ActionNameCheckNetwork          = "check_network_connectivity"
	ActionNameScaleResources        = "scale_resources"
	ActionNameCleanupResources      = "cleanup_resources"
	ActionNameRestartServices       = "restart_services"
	ActionNameRefreshTokens         = "refresh_tokens"
	ActionNameCheckAuthService      = "check_auth_service"
	ActionNameValidatePermissions   = "validate_permissions"
	ActionNameRestartNetworkService = "restart_network_services"
)

// RecoveryAction is a static registry entry describing one remediation
// operation. Defined once at process start, read-only thereafter.
type RecoveryAction struct {
	ID          string
	Name        string
	Description string
	Patterns    []Pattern
	Categories  []string
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Type        ActionType
	Parameters  map[string]string
}
