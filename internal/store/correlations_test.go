package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/utils"
)

func newTestCorrelationStore(t *testing.T) (*CorrelationStore, *MemoryStore) {
	t.Helper()
	kv := NewMemoryStore()
	cs := NewCorrelationStore(kv, utils.NewLogger("error", true), 24*time.Hour, 2*time.Second)
	return cs, kv
}

func testCorrelation(id string) models.ErrorCorrelation {
	return models.ErrorCorrelation{
		ID:                 id,
		Pattern:            models.PatternDependencyFailure,
		RootCause:          "shared dependency failure",
		AffectedSubsystems: []models.Subsystem{models.SubsystemWorkflow, models.SubsystemRouting},
		ErrorIDs:           []string{"e1", "e2"},
		Confidence:         0.9,
		CreatedAt:          time.Now().UTC(),
	}
}

func TestCorrelationStoreSaveGet(t *testing.T) {
	cs, _ := newTestCorrelationStore(t)
	ctx := context.Background()

	want := testCorrelation("c1")
	if err := cs.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := cs.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Pattern != want.Pattern || got.Confidence != want.Confidence {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if got.Resolved() {
		t.Fatalf("fresh correlation must not be resolved")
	}

	if _, err := cs.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCorrelationStoreResolve(t *testing.T) {
	cs, _ := newTestCorrelationStore(t)
	ctx := context.Background()

	if err := cs.Save(ctx, testCorrelation("c1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first := time.Now()
	if err := cs.Resolve(ctx, "c1", first); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, err := cs.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Resolved() {
		t.Fatalf("expected resolved correlation")
	}

	// Resolving again keeps the original timestamp.
	if err := cs.Resolve(ctx, "c1", first.Add(time.Hour)); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	again, err := cs.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !again.ResolvedAt.Equal(*got.ResolvedAt) {
		t.Fatalf("resolution time moved: %v vs %v", again.ResolvedAt, got.ResolvedAt)
	}
}

func TestCorrelationStoreResolveMissing(t *testing.T) {
	cs, _ := newTestCorrelationStore(t)
	if err := cs.Resolve(context.Background(), "nope", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCorrelationStoreListSkipsUndecodable(t *testing.T) {
	cs, kv := newTestCorrelationStore(t)
	ctx := context.Background()

	if err := cs.Save(ctx, testCorrelation("good")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := kv.Set(ctx, correlationKey("bad"), []byte("not json"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	all, err := cs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].ID != "good" {
		t.Fatalf("expected only the decodable record, got %v", all)
	}
}
