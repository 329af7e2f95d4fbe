package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/platformops/faultline/internal/alerting"
	"github.com/platformops/faultline/internal/config"
	"github.com/platformops/faultline/internal/metrics"
	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/store"
)

const scaleSignalsKey = "signals:scale"

// RetryFunc re-attempts the operation behind one contributing error id.
// When nil, the dispatcher records a declarative retry signal instead.
type RetryFunc func(ctx context.Context, errorID string) error

// Dispatcher looks up and executes the recovery actions a correlation
// recommends. Execution is independent and best-effort: a failed action is
// recorded and the remaining actions still run; nothing propagates to the
// caller that reported the original error.
type Dispatcher struct {
	registry  *Registry
	kv        store.KeyValueStore
	sink      *alerting.Sink
	logger    *slog.Logger
	cfg       config.RecoveryConfig
	retryFunc RetryFunc
}

// NewDispatcher constructs a Dispatcher over the given registry and store.
func NewDispatcher(registry *Registry, kv store.KeyValueStore, sink *alerting.Sink, logger *slog.Logger, cfg config.RecoveryConfig, retryFunc RetryFunc) *Dispatcher {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 5 * time.Second
	}
	if cfg.RestartTTL <= 0 {
		cfg.RestartTTL = 5 * time.Minute
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = time.Hour
	}
	return &Dispatcher{
		registry:  registry,
		kv:        kv,
		sink:      sink,
		logger:    logger,
		cfg:       cfg,
		retryFunc: retryFunc,
	}
}

// Process executes every registered action the correlation recommends.
func (d *Dispatcher) Process(ctx context.Context, corr models.ErrorCorrelation) {
	for _, name := range corr.RecommendedActions {
		action, ok := d.registry.Lookup(name)
		if !ok {
			// Unregistered names are soft hints, not defects.
			d.logger.Debug("recommended action not in registry",
				slog.String("action", name), slog.String("correlation_id", corr.ID))
			continue
		}

		timeout := action.Timeout
		if timeout <= 0 {
			timeout = d.cfg.ActionTimeout
		}
		actionCtx, cancel := context.WithTimeout(ctx, timeout)
		err := d.execute(actionCtx, action, corr)
		cancel()

		outcome := metrics.OutcomeSuccess
		detail := ""
		if err != nil {
			outcome = metrics.OutcomeError
			detail = err.Error()
			d.logger.Warn("recovery action failed",
				slog.String("action", action.Name),
				slog.String("correlation_id", corr.ID),
				slog.Any("error", err))
		} else {
			d.logger.Info("recovery action executed",
				slog.String("action", action.Name),
				slog.String("type", string(action.Type)),
				slog.String("correlation_id", corr.ID))
		}
		metrics.ObserveRecoveryAction(string(action.Type), outcome)

		notification := models.RecoveryNotification{
			CorrelationID: corr.ID,
			Action:        action.Name,
			ActionType:    action.Type,
			Success:       err == nil,
			Detail:        detail,
		}
		if sinkErr := d.sink.RecordRecovery(ctx, notification); sinkErr != nil {
			d.logger.Warn("recovery outcome not recorded", slog.Any("error", sinkErr))
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, action models.RecoveryAction, corr models.ErrorCorrelation) error {
	switch action.Type {
	case models.ActionRestart:
		return d.signalRestarts(ctx, action, corr)
	case models.ActionRetry:
		return d.retryErrors(ctx, action, corr)
	case models.ActionFallback:
		return d.setFallbackFlags(ctx, action, corr)
	case models.ActionScale:
		return d.emitScaleSignal(ctx, action, corr)
	case models.ActionNotify:
		return d.notify(ctx, action, corr)
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

// signalRestarts marks each affected subsystem for restart. SetNX makes the
// signal idempotent for the restart TTL: a subsystem already restarting is
// a no-op, not a second trigger.
func (d *Dispatcher) signalRestarts(ctx context.Context, action models.RecoveryAction, corr models.ErrorCorrelation) error {
	payload, _ := json.Marshal(map[string]string{
		"correlation_id": corr.ID,
		"action":         action.Name,
		"requested_at":   time.Now().UTC().Format(time.RFC3339),
	})
	for _, subsystem := range corr.AffectedSubsystems {
		created, err := d.kv.SetNX(ctx, restartKey(subsystem), payload, d.cfg.RestartTTL)
		if err != nil {
			return fmt.Errorf("restart signal for %s: %w", subsystem, err)
		}
		if !created {
			d.logger.Debug("restart already in flight", slog.String("subsystem", string(subsystem)))
		}
	}
	return nil
}

// retryErrors re-attempts each contributing operation with a fixed delay
// between attempts. A backoff_multiplier parameter switches the delay to a
// geometric progression; otherwise the delay is constant.
func (d *Dispatcher) retryErrors(ctx context.Context, action models.RecoveryAction, corr models.ErrorCorrelation) error {
	attempts := action.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	multiplier := 1.0
	if raw, ok := action.Parameters["backoff_multiplier"]; ok {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 1 {
			multiplier = parsed
		}
	}

	var lastErr error
	for _, errorID := range corr.ErrorIDs {
		delay := action.RetryDelay
		var attemptErr error
		for attempt := 0; attempt < attempts; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				delay = time.Duration(float64(delay) * multiplier)
			}
			attemptErr = d.retryOne(ctx, errorID)
			if attemptErr == nil {
				break
			}
		}
		if attemptErr != nil {
			lastErr = fmt.Errorf("retry %s: %w", errorID, attemptErr)
		}
	}
	return lastErr
}

func (d *Dispatcher) retryOne(ctx context.Context, errorID string) error {
	if d.retryFunc != nil {
		return d.retryFunc(ctx, errorID)
	}
	// No retry handler wired: record a declarative retry signal for the
	// owning subsystem to pick up.
	return d.kv.PushCapped(ctx, "signals:retry", []byte(errorID), 100, d.cfg.RestartTTL)
}

// setFallbackFlags flips a named fallback flag per affected subsystem.
// Downstream subsystems poll these flags; the TTL clears them.
func (d *Dispatcher) setFallbackFlags(ctx context.Context, action models.RecoveryAction, corr models.ErrorCorrelation) error {
	flag := action.Parameters["flag"]
	if flag == "" {
		flag = action.Name
	}
	for _, subsystem := range corr.AffectedSubsystems {
		key := fallbackKey(subsystem, flag)
		if err := d.kv.Set(ctx, key, []byte("1"), d.cfg.FallbackTTL); err != nil {
			return fmt.Errorf("fallback flag %s: %w", key, err)
		}
	}
	return nil
}

// emitScaleSignal appends a declarative scale instruction for the external
// autoscaler; this core never touches infrastructure directly.
func (d *Dispatcher) emitScaleSignal(ctx context.Context, action models.RecoveryAction, corr models.ErrorCorrelation) error {
	signal := map[string]any{
		"correlation_id": corr.ID,
		"subsystems":     corr.AffectedSubsystems,
		"scale_factor":   action.Parameters["scale_factor"],
		"requested_at":   time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal scale signal: %w", err)
	}
	if err := d.kv.PushCapped(ctx, scaleSignalsKey, data, 100, 24*time.Hour); err != nil {
		return fmt.Errorf("emit scale signal: %w", err)
	}
	return nil
}

func (d *Dispatcher) notify(ctx context.Context, action models.RecoveryAction, corr models.ErrorCorrelation) error {
	return d.sink.RecordRecovery(ctx, models.RecoveryNotification{
		CorrelationID: corr.ID,
		Action:        action.Name,
		ActionType:    models.ActionNotify,
		Success:       true,
		Detail:        action.Description,
	})
}

func restartKey(subsystem models.Subsystem) string {
	return fmt.Sprintf("restart:%s", subsystem)
}

func fallbackKey(subsystem models.Subsystem, flag string) string {
	return fmt.Sprintf("fallback:%s:%s", subsystem, flag)
}
