package models

import "time"

// Pattern enumerates the failure signatures the matcher engine detects.
type Pattern string

const (
	PatternCascadingFailure   Pattern = "cascading_failure"
	PatternCommonRootCause    Pattern = "common_root_cause"
	PatternDependencyFailure  Pattern = "dependency_failure"
	PatternResourceExhaustion Pattern = "resource_exhaustion"
	PatternAuthPropagation    Pattern = "auth_propagation"
	PatternNetworkPartition   Pattern = "network_partition"
)

// ErrorCorrelation records a detected cross-subsystem failure pattern.
// Created only by a matcher firing; the sole mutation after creation is
// setting ResolvedAt. Expires from the store by TTL.
type ErrorCorrelation struct {
	ID                 string      `json:"id"`
	Pattern            Pattern     `json:"pattern"`
	RootCause          string      `json:"root_cause"`
	AffectedSubsystems []Subsystem `json:"affected_subsystems"`
	ErrorIDs           []string    `json:"error_ids"`
	Confidence         float64     `json:"confidence"`
	CreatedAt          time.Time   `json:"created_at"`
	ResolvedAt         *time.Time  `json:"resolved_at,omitempty"`
	RecommendedActions []string    `json:"recommended_actions"`
}

// Resolved reports whether a resolution timestamp has been set.
func (c ErrorCorrelation) Resolved() bool {
	return c.ResolvedAt != nil && !c.ResolvedAt.IsZero()
}

// CorrelationStatus is the read-only aggregation exposed to dashboards.
type CorrelationStatus struct {
	TotalCorrelations       int               `json:"total_correlations"`
	PatternDistribution     map[Pattern]int   `json:"pattern_distribution"`
	AffectedSystems         map[Subsystem]int `json:"affected_systems"`
	RecentAlerts            []Alert           `json:"recent_alerts"`
	ActiveCorrelations      int               `json:"active_correlations"`
	RecoveryActionsExecuted int               `json:"recovery_actions_executed"`
}

// Alert is a structured record appended for downstream observers when a
// correlation is detected.
type Alert struct {
	ID            string      `json:"id"`
	CorrelationID string      `json:"correlation_id"`
	Pattern       Pattern     `json:"pattern"`
	RootCause     string      `json:"root_cause"`
	Subsystems    []Subsystem `json:"subsystems"`
	Confidence    float64     `json:"confidence"`
	CreatedAt     time.Time   `json:"created_at"`
}

// RecoveryNotification records one recovery action execution attempt.
type RecoveryNotification struct {
	ID            string     `json:"id"`
	CorrelationID string     `json:"correlation_id"`
	Action        string     `json:"action"`
	ActionType    ActionType `json:"action_type"`
	Success       bool       `json:"success"`
	Detail        string     `json:"detail,omitempty"`
	ExecutedAt    time.Time  `json:"executed_at"`
}
