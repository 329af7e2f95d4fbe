package models

import "time"

// Subsystem identifies which platform component emitted an error.
type Subsystem string

const (
	SubsystemWorkflow Subsystem = "workflow-automation"
	SubsystemRouting  Subsystem = "ai-routing"
	SubsystemTraining Subsystem = "model-training"
)

// AllSubsystems lists every known subsystem in dependency order:
// workflow-automation calls ai-routing, which calls model-training.
// Matchers and the error store iterate in this order.
var AllSubsystems = []Subsystem{SubsystemWorkflow, SubsystemRouting, SubsystemTraining}

// SystemError is the canonical error record produced by the normalizer.
// Records are immutable once created; they expire from the store by TTL.
type SystemError struct {
	ID            string            `json:"id"`
	Subsystem     Subsystem         `json:"subsystem"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	Severity      string            `json:"severity"`
	Message       string            `json:"message"`
	Code          string            `json:"code"`
	Context       map[string]string `json:"context,omitempty"`
	StackTrace    string            `json:"stack_trace,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// Severity labels used by producers. Free-form strings are accepted;
// these are the defaults the normalizer falls back to.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)
