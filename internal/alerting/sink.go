// Package alerting appends structured alerts and recovery notifications to
// bounded lists consumed by dashboards. Writes are best-effort: a full or
// unavailable sink degrades to a log line, never to a pipeline failure.
package alerting

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/store"
	"github.com/platformops/faultline/internal/utils"
)

const (
	alertsKey        = "alerts:correlations"
	notificationsKey = "notifications:recovery"
)

// Sink writes alert and recovery notification records into the TTL store.
type Sink struct {
	kv        store.KeyValueStore
	logger    *slog.Logger
	maxLen    int64
	ttl       time.Duration
	opTimeout time.Duration
}

// NewSink constructs a Sink with the given list bound and record TTL.
func NewSink(kv store.KeyValueStore, logger *slog.Logger, maxLen int, ttl, opTimeout time.Duration) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLen <= 0 {
		maxLen = 50
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &Sink{kv: kv, logger: logger, maxLen: int64(maxLen), ttl: ttl, opTimeout: opTimeout}
}

// RecordAlert appends an alert for a freshly detected correlation.
func (s *Sink) RecordAlert(ctx context.Context, corr models.ErrorCorrelation) error {
	alert := models.Alert{
		ID:            uuid.NewString(),
		CorrelationID: corr.ID,
		Pattern:       corr.Pattern,
		RootCause:     corr.RootCause,
		Subsystems:    append([]models.Subsystem(nil), corr.AffectedSubsystems...),
		Confidence:    corr.Confidence,
		CreatedAt:     time.Now().UTC(),
	}
	return s.push(ctx, alertsKey, alert)
}

// RecordRecovery appends one recovery action execution record.
func (s *Sink) RecordRecovery(ctx context.Context, notification models.RecoveryNotification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.ExecutedAt.IsZero() {
		notification.ExecutedAt = time.Now().UTC()
	}
	return s.push(ctx, notificationsKey, notification)
}

// RecentAlerts returns up to n alerts, newest first.
func (s *Sink) RecentAlerts(ctx context.Context, n int) ([]models.Alert, error) {
	if n <= 0 {
		n = 10
	}
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	entries, err := s.kv.ListRange(opCtx, alertsKey, 0, int64(n)-1)
	if err != nil {
		return nil, utils.NewAppError("alerting.RecentAlerts", "read alert list", err)
	}
	alerts := make([]models.Alert, 0, len(entries))
	for _, entry := range entries {
		var alert models.Alert
		if err := json.Unmarshal(entry, &alert); err != nil {
			s.logger.Warn("skipping undecodable alert", slog.Any("error", err))
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// RecoveryCount returns the number of recorded recovery notifications still
// inside the retention window.
func (s *Sink) RecoveryCount(ctx context.Context) (int, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	entries, err := s.kv.ListRange(opCtx, notificationsKey, 0, -1)
	if err != nil {
		return 0, utils.NewAppError("alerting.RecoveryCount", "read notification list", err)
	}
	return len(entries), nil
}

func (s *Sink) push(ctx context.Context, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return utils.NewAppError("alerting.push", "marshal record", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.kv.PushCapped(opCtx, key, data, s.maxLen, s.ttl); err != nil {
		return utils.NewAppError("alerting.push", "append record", err)
	}
	return nil
}
