// Package normalizer converts raw error payloads of unknown origin into
// canonical SystemError records. Producers enforce no schema upstream, so
// everything here degrades to defaults instead of failing: a malformed
// payload yields a generic record, never an error.
package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/utils"
)

// idLength is the number of hex characters kept from the content hash.
// Collisions within the TTL window intentionally coalesce repeated
// identical errors into one record.
const idLength = 12

// classifierRule pairs a payload predicate with the subsystem it implies.
type classifierRule struct {
	matches   func(raw map[string]any) bool
	subsystem models.Subsystem
}

// classifierRules is evaluated top-down, first match wins. The order is a
// deliberate heuristic: workflow identifiers are checked before routing
// ones because workflow payloads frequently embed model references, and a
// training-job identifier outranks a bare model id. Ambiguous payloads map
// to the workflow default rather than being rejected.
var classifierRules = []classifierRule{
	{matches: hasAny("workflow_id", "execution_id"), subsystem: models.SubsystemWorkflow},
	{matches: hasAll("model_id", "provider"), subsystem: models.SubsystemRouting},
	{matches: hasAny("training_job_id", "model_version"), subsystem: models.SubsystemTraining},
}

// defaultSubsystem receives every payload no rule claims.
const defaultSubsystem = models.SubsystemWorkflow

// Normalize builds a SystemError from an arbitrary key/value payload.
func Normalize(raw map[string]any) models.SystemError {
	subsystem := Classify(raw)

	message := stringField(raw, "message")
	if message == "" {
		message = defaultMessage(subsystem)
	}
	code := stringField(raw, "code")
	if code == "" {
		code = defaultCode(subsystem)
	}

	timestamp := time.Now().UTC()
	if ts, ok := utils.CoerceTimestamp(raw["timestamp"]); ok {
		timestamp = ts.UTC()
	}

	category := stringField(raw, "category")
	if category == "" {
		category = "unknown"
	}
	severity := stringField(raw, "severity")
	if severity == "" {
		severity = models.SeverityMedium
	}

	return models.SystemError{
		ID:            ErrorID(subsystem, message, code),
		Subsystem:     subsystem,
		Timestamp:     timestamp,
		Category:      category,
		Severity:      severity,
		Message:       message,
		Code:          code,
		Context:       extractContext(subsystem, raw),
		StackTrace:    stringField(raw, "stack_trace"),
		UserID:        stringField(raw, "user_id"),
		RequestID:     stringField(raw, "request_id"),
		CorrelationID: stringField(raw, "correlation_id"),
	}
}

// Classify infers the originating subsystem from payload shape.
func Classify(raw map[string]any) models.Subsystem {
	for _, rule := range classifierRules {
		if rule.matches(raw) {
			return rule.subsystem
		}
	}
	return defaultSubsystem
}

// ErrorID derives the deterministic short id from the identity triple.
func ErrorID(subsystem models.Subsystem, message, code string) string {
	sum := sha256.Sum256([]byte(string(subsystem) + "|" + message + "|" + code))
	return hex.EncodeToString(sum[:])[:idLength]
}

// subsystemContextKeys lists the payload keys copied into the context map
// for each subsystem.
var subsystemContextKeys = map[models.Subsystem][]string{
	models.SubsystemWorkflow: {"workflow_id", "execution_id", "step_name", "step_id"},
	models.SubsystemRouting:  {"provider", "model_id", "cost", "latency_ms"},
	models.SubsystemTraining: {"model_id", "model_version", "training_job_id", "performance_metrics"},
}

func extractContext(subsystem models.Subsystem, raw map[string]any) map[string]string {
	keys, ok := subsystemContextKeys[subsystem]
	if !ok {
		return genericContext(raw)
	}

	context := make(map[string]string)
	for _, key := range keys {
		if value, present := raw[key]; present {
			context[key] = stringify(value)
		}
	}
	if len(context) == 0 {
		return genericContext(raw)
	}
	return context
}

// genericContext copies an explicit `context` sub-map when the payload
// carries one. Anything else is dropped.
func genericContext(raw map[string]any) map[string]string {
	sub, ok := raw["context"].(map[string]any)
	if !ok || len(sub) == 0 {
		return nil
	}
	context := make(map[string]string, len(sub))
	for key, value := range sub {
		context[key] = stringify(value)
	}
	return context
}

func defaultMessage(subsystem models.Subsystem) string {
	switch subsystem {
	case models.SubsystemRouting:
		return "unknown routing error"
	case models.SubsystemTraining:
		return "unknown training error"
	default:
		return "unknown workflow error"
	}
}

func defaultCode(subsystem models.Subsystem) string {
	switch subsystem {
	case models.SubsystemRouting:
		return "ROUTING_ERROR"
	case models.SubsystemTraining:
		return "TRAINING_ERROR"
	default:
		return "WORKFLOW_ERROR"
	}
}

func hasAny(keys ...string) func(map[string]any) bool {
	return func(raw map[string]any) bool {
		for _, key := range keys {
			if hasValue(raw, key) {
				return true
			}
		}
		return false
	}
}

func hasAll(keys ...string) func(map[string]any) bool {
	return func(raw map[string]any) bool {
		for _, key := range keys {
			if !hasValue(raw, key) {
				return false
			}
		}
		return true
	}
}

func hasValue(raw map[string]any, key string) bool {
	value, ok := raw[key]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString {
		return s != ""
	}
	return true
}

func stringField(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
