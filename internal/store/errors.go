package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/utils"
)

// ErrorStore persists normalized errors in the TTL store and serves the
// recent working set used for correlation. It is the only component that
// reads or writes error records.
type ErrorStore struct {
	kv        KeyValueStore
	logger    *slog.Logger
	errorTTL  time.Duration
	maxRecent int64
	opTimeout time.Duration
}

// NewErrorStore constructs an ErrorStore over the provided KV backend.
func NewErrorStore(kv KeyValueStore, logger *slog.Logger, errorTTL time.Duration, maxRecent int, opTimeout time.Duration) *ErrorStore {
	if logger == nil {
		logger = slog.Default()
	}
	if errorTTL <= 0 {
		errorTTL = time.Hour
	}
	if maxRecent <= 0 {
		maxRecent = 100
	}
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &ErrorStore{
		kv:        kv,
		logger:    logger,
		errorTTL:  errorTTL,
		maxRecent: int64(maxRecent),
		opTimeout: opTimeout,
	}
}

func errorKey(subsystem models.Subsystem, id string) string {
	return fmt.Sprintf("error:%s:%s", subsystem, id)
}

func recentKey(subsystem models.Subsystem) string {
	return fmt.Sprintf("errors:%s", subsystem)
}

// Put writes the full record under its subsystem-scoped key and appends the
// id to the per-subsystem recent list. Both carry the error TTL.
func (s *ErrorStore) Put(ctx context.Context, sysErr models.SystemError) error {
	data, err := json.Marshal(sysErr)
	if err != nil {
		return utils.NewAppError("store.Put", "marshal error record", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.kv.Set(opCtx, errorKey(sysErr.Subsystem, sysErr.ID), data, s.errorTTL); err != nil {
		return utils.NewAppError("store.Put", "write error record", err)
	}
	if err := s.kv.PushCapped(opCtx, recentKey(sysErr.Subsystem), []byte(sysErr.ID), s.maxRecent, s.errorTTL); err != nil {
		return utils.NewAppError("store.Put", "append recent id", err)
	}
	return nil
}

// Recent returns every stored error across all subsystems whose timestamp
// falls within the window. Store failures degrade to a partial (possibly
// empty) result: correlation is a best-effort heuristic, not a safety
// property, so missing data must never block the pipeline.
func (s *ErrorStore) Recent(ctx context.Context, window time.Duration) []models.SystemError {
	cutoff := time.Now().Add(-window)
	recent := make([]models.SystemError, 0)

	for _, subsystem := range models.AllSubsystems {
		ids, err := s.recentIDs(ctx, subsystem)
		if err != nil {
			s.logger.Warn("recent id list unavailable",
				slog.String("subsystem", string(subsystem)), slog.Any("error", err))
			continue
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			sysErr, err := s.fetch(ctx, subsystem, id)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					s.logger.Warn("error record fetch failed",
						slog.String("subsystem", string(subsystem)), slog.String("id", id), slog.Any("error", err))
				}
				continue
			}
			if sysErr.Timestamp.Before(cutoff) {
				continue
			}
			recent = append(recent, sysErr)
		}
	}
	return recent
}

func (s *ErrorStore) recentIDs(ctx context.Context, subsystem models.Subsystem) ([]string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	values, err := s.kv.ListRange(opCtx, recentKey(subsystem), 0, s.maxRecent-1)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		ids = append(ids, string(v))
	}
	return ids, nil
}

func (s *ErrorStore) fetch(ctx context.Context, subsystem models.Subsystem, id string) (models.SystemError, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.kv.Get(opCtx, errorKey(subsystem, id))
	if err != nil {
		return models.SystemError{}, err
	}
	var sysErr models.SystemError
	if err := json.Unmarshal(data, &sysErr); err != nil {
		return models.SystemError{}, utils.NewAppError("store.fetch", "decode error record", err)
	}
	return sysErr, nil
}
