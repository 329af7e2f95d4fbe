// Package aggregator is the ingestion boundary of the correlation engine.
// It must never become a cause of cascading failure in the systems it
// protects: every operation converts internal failures into a boolean plus
// a log entry, and nothing raises outward.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"github.com/platformops/faultline/internal/engine"
	"github.com/platformops/faultline/internal/metrics"
	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/normalizer"
	"github.com/platformops/faultline/internal/store"
	"github.com/platformops/faultline/internal/utils"
)

// Metadata carries optional request-scoped identifiers supplied by the
// excluded API/middleware layer.
type Metadata struct {
	Context       map[string]string
	CorrelationID string
	RequestID     string
	UserID        string
}

// Aggregator exposes the boundary operations consumed by the API layer and
// by dashboards.
type Aggregator struct {
	logger       *slog.Logger
	engine       *engine.Engine
	correlations *store.CorrelationStore
	latencies    *utils.LatencyTracker
}

// New constructs the Aggregator facade.
func New(logger *slog.Logger, eng *engine.Engine, correlations *store.CorrelationStore) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		logger:       logger,
		engine:       eng,
		correlations: correlations,
		latencies:    utils.NewLatencyTracker(1024),
	}
}

// AggregateError normalizes and processes one raw error payload. It reports
// whether aggregation succeeded; failures are swallowed here and never
// surface to the caller's own request handling.
func (a *Aggregator) AggregateError(ctx context.Context, raw map[string]any, meta Metadata) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("aggregation panicked", slog.Any("panic", r))
			ok = false
		}
	}()

	if raw == nil {
		raw = map[string]any{}
	}

	start := time.Now()
	sysErr := normalizer.Normalize(raw)
	applyMetadata(&sysErr, meta)

	a.engine.Process(ctx, sysErr)

	duration := time.Since(start)
	metrics.ObserveIngestion(string(sysErr.Subsystem), duration)
	a.latencies.Observe(duration)
	if count := a.latencies.Count(); count >= 20 && count%20 == 0 {
		a.logger.Info("aggregation latency",
			slog.Duration("p95", a.latencies.Percentile(95)), slog.Int("samples", count))
	}
	return true
}

// AggregateBatch submits multiple raw payloads. It reports true only when
// every payload aggregated successfully; partial failures still leave the
// successful records in the store.
func (a *Aggregator) AggregateBatch(ctx context.Context, rawBatch []map[string]any) bool {
	allOK := true
	for _, raw := range rawBatch {
		if !a.AggregateError(ctx, raw, Metadata{}) {
			allOK = false
		}
	}
	return allOK
}

// Status returns the read-only correlation aggregation for dashboards.
func (a *Aggregator) Status(ctx context.Context) (models.CorrelationStatus, error) {
	return a.engine.Status(ctx)
}

// ResolveCorrelation stamps a resolution time on an open correlation.
func (a *Aggregator) ResolveCorrelation(ctx context.Context, id string) error {
	return a.correlations.Resolve(ctx, id, time.Now())
}

// LatencyP95 returns the current p95 aggregation latency.
func (a *Aggregator) LatencyP95() time.Duration {
	return a.latencies.Percentile(95)
}

func applyMetadata(sysErr *models.SystemError, meta Metadata) {
	if meta.CorrelationID != "" {
		sysErr.CorrelationID = meta.CorrelationID
	}
	if meta.RequestID != "" {
		sysErr.RequestID = meta.RequestID
	}
	if meta.UserID != "" {
		sysErr.UserID = meta.UserID
	}
	if len(meta.Context) > 0 {
		if sysErr.Context == nil {
			sysErr.Context = make(map[string]string, len(meta.Context))
		}
		for key, value := range meta.Context {
			if _, exists := sysErr.Context[key]; !exists {
				sysErr.Context[key] = value
			}
		}
	}
}
