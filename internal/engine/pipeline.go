package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/platformops/faultline/internal/metrics"
	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/patterns"
)

// ErrorStore defines the working-set operations the pipeline needs.
type ErrorStore interface {
	Put(ctx context.Context, sysErr models.SystemError) error
	Recent(ctx context.Context, window time.Duration) []models.SystemError
}

// CorrelationStore defines correlation persistence for the pipeline.
type CorrelationStore interface {
	Save(ctx context.Context, corr models.ErrorCorrelation) error
	List(ctx context.Context) ([]models.ErrorCorrelation, error)
}

// AlertSink defines the alerting operations the pipeline needs.
type AlertSink interface {
	RecordAlert(ctx context.Context, corr models.ErrorCorrelation) error
	RecentAlerts(ctx context.Context, n int) ([]models.Alert, error)
	RecoveryCount(ctx context.Context) (int, error)
}

// Dispatcher executes the recovery actions a correlation recommends.
type Dispatcher interface {
	Process(ctx context.Context, corr models.ErrorCorrelation)
}

// Engine runs the per-error correlation pipeline: store the new error,
// read the recent working set, run every matcher, persist and dispatch
// whatever fires. One Engine serves many concurrent pipelines; each call
// reads its own snapshot of the recent window, so two errors arriving
// within milliseconds may or may not see each other. That eventual
// consistency is acceptable: correlation is a best-effort heuristic.
type Engine struct {
	logger       *slog.Logger
	errors       ErrorStore
	correlations CorrelationStore
	sink         AlertSink
	dispatcher   Dispatcher
	matchers     []patterns.Matcher
	window       time.Duration
}

// NewEngine constructs the pipeline. A nil dispatcher disables recovery.
func NewEngine(
	logger *slog.Logger,
	errors ErrorStore,
	correlations CorrelationStore,
	sink AlertSink,
	dispatcher Dispatcher,
	window time.Duration,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Engine{
		logger:       logger,
		errors:       errors,
		correlations: correlations,
		sink:         sink,
		dispatcher:   dispatcher,
		matchers:     patterns.DefaultMatchers(),
		window:       window,
	}
}

// Process ingests one normalized error and returns whatever correlations it
// triggered. Store and sink failures degrade (warn log, pipeline continues);
// the method itself never fails.
func (e *Engine) Process(ctx context.Context, sysErr models.SystemError) []models.ErrorCorrelation {
	if err := e.errors.Put(ctx, sysErr); err != nil {
		// The new error still participates in matching below even when the
		// write failed; only the working set for later errors is degraded.
		e.logger.Warn("error record not persisted",
			slog.String("id", sysErr.ID), slog.Any("error", err))
	}

	recent := e.errors.Recent(ctx, e.window)

	detected := make([]models.ErrorCorrelation, 0)
	for _, matcher := range e.matchers {
		corr, ok := e.runMatcher(matcher, sysErr, recent)
		if !ok {
			continue
		}
		detected = append(detected, corr)
		metrics.ObserveCorrelation(string(corr.Pattern))
		e.logger.Info("correlation detected",
			slog.String("pattern", string(corr.Pattern)),
			slog.String("correlation_id", corr.ID),
			slog.Float64("confidence", corr.Confidence),
			slog.Int("errors", len(corr.ErrorIDs)))

		if err := e.correlations.Save(ctx, corr); err != nil {
			e.logger.Warn("correlation not persisted",
				slog.String("correlation_id", corr.ID), slog.Any("error", err))
		}
		if err := e.sink.RecordAlert(ctx, corr); err != nil {
			e.logger.Warn("alert not recorded",
				slog.String("correlation_id", corr.ID), slog.Any("error", err))
		}
		if e.dispatcher != nil {
			e.dispatcher.Process(ctx, corr)
		}
	}
	return detected
}

// runMatcher isolates one detector: a panicking matcher is logged and
// treated as "no match" so it cannot block the other five.
func (e *Engine) runMatcher(matcher patterns.Matcher, newErr models.SystemError, recent []models.SystemError) (corr models.ErrorCorrelation, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("matcher panicked",
				slog.String("pattern", string(matcher.Name())), slog.Any("panic", r))
			corr = models.ErrorCorrelation{}
			ok = false
		}
	}()
	return matcher.Match(newErr, recent)
}
