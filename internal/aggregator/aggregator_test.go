package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/platformops/faultline/internal/alerting"
	"github.com/platformops/faultline/internal/engine"
	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/store"
	"github.com/platformops/faultline/internal/utils"
)

func newTestAggregator(t *testing.T) (*Aggregator, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStore()
	logger := utils.NewLogger("error", true)

	errorStore := store.NewErrorStore(kv, logger, time.Hour, 100, 2*time.Second)
	correlationStore := store.NewCorrelationStore(kv, logger, 24*time.Hour, 2*time.Second)
	sink := alerting.NewSink(kv, logger, 50, 24*time.Hour, 2*time.Second)
	eng := engine.NewEngine(logger, errorStore, correlationStore, sink, nil, 5*time.Minute)

	return New(logger, eng, correlationStore), kv
}

func TestAggregateErrorsAcrossSubsystems(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	if !agg.AggregateWorkflowError(ctx, "w1", "fetch", "timeout calling service", "STEP_TIMEOUT") {
		t.Fatalf("workflow error rejected")
	}
	if !agg.AggregateRoutingError(ctx, "p1", "m1", "timeout calling service", "PROVIDER_TIMEOUT") {
		t.Fatalf("routing error rejected")
	}
	if !agg.AggregateTrainingError(ctx, "t1", "v1", "connection refused by data source", "DATA_CONN") {
		t.Fatalf("training error rejected")
	}

	status, err := agg.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.TotalCorrelations == 0 {
		t.Fatalf("expected correlations across the three subsystems")
	}
	if status.PatternDistribution[models.PatternDependencyFailure] == 0 {
		t.Fatalf("expected dependency failure, got %v", status.PatternDistribution)
	}
	if status.PatternDistribution[models.PatternCascadingFailure] == 0 {
		t.Fatalf("expected cascading failure, got %v", status.PatternDistribution)
	}
	if len(status.RecentAlerts) == 0 {
		t.Fatalf("expected alerts for detected correlations")
	}
}

func TestAggregateDisjointErrorsNoCorrelations(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		raw := map[string]any{
			"workflow_id": fmt.Sprintf("w%d", i),
			"message":     fmt.Sprintf("step %d rejected its input", i),
			"code":        fmt.Sprintf("STEP_%d", i),
		}
		if !agg.AggregateError(ctx, raw, Metadata{}) {
			t.Fatalf("aggregation %d rejected", i)
		}
	}

	status, err := agg.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.TotalCorrelations != 0 {
		t.Fatalf("disjoint errors must not correlate, got %d", status.TotalCorrelations)
	}
}

func TestAggregateErrorNilPayload(t *testing.T) {
	agg, _ := newTestAggregator(t)

	if !agg.AggregateError(context.Background(), nil, Metadata{}) {
		t.Fatalf("nil payload should aggregate with defaults, not fail")
	}
}

func TestAggregateBatch(t *testing.T) {
	agg, _ := newTestAggregator(t)

	batch := []map[string]any{
		{"workflow_id": "w1", "message": "step failed", "code": "A"},
		{"provider": "p1", "model_id": "m1", "message": "provider error", "code": "B"},
		nil,
	}
	if !agg.AggregateBatch(context.Background(), batch) {
		t.Fatalf("batch with valid payloads should succeed")
	}
}

func TestAggregateErrorAppliesMetadata(t *testing.T) {
	agg, kv := newTestAggregator(t)
	ctx := context.Background()

	meta := Metadata{
		CorrelationID: "req-corr-1",
		RequestID:     "req-1",
		UserID:        "u1",
		Context:       map[string]string{"region": "us-east", "workflow_id": "meta-should-lose"},
	}
	raw := map[string]any{"workflow_id": "w1", "message": "step failed", "code": "A"}
	if !agg.AggregateError(ctx, raw, meta) {
		t.Fatalf("aggregation rejected")
	}

	keys, err := kv.Keys(ctx, "error:workflow-automation:*")
	if err != nil || len(keys) != 1 {
		t.Fatalf("expected one stored error, got %v (%v)", keys, err)
	}
	data, err := kv.Get(ctx, keys[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var stored models.SystemError
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.CorrelationID != "req-corr-1" || stored.RequestID != "req-1" || stored.UserID != "u1" {
		t.Fatalf("metadata not applied: %+v", stored)
	}
	if stored.Context["region"] != "us-east" {
		t.Fatalf("metadata context missing: %v", stored.Context)
	}
	// Payload-derived context wins over metadata context.
	if stored.Context["workflow_id"] != "w1" {
		t.Fatalf("payload context overwritten: %v", stored.Context)
	}
}

func TestResolveCorrelationViaAggregator(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	agg.AggregateWorkflowError(ctx, "w1", "fetch", "database timeout", "T1")
	agg.AggregateRoutingError(ctx, "p1", "m1", "database timeout", "T2")

	status, err := agg.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.ActiveCorrelations == 0 {
		t.Fatalf("expected active correlations")
	}

	id := status.RecentAlerts[0].CorrelationID
	if err := agg.ResolveCorrelation(ctx, id); err != nil {
		t.Fatalf("ResolveCorrelation: %v", err)
	}

	after, err := agg.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if after.ActiveCorrelations != status.ActiveCorrelations-1 {
		t.Fatalf("expected one fewer active correlation: %d vs %d", after.ActiveCorrelations, status.ActiveCorrelations)
	}
}
