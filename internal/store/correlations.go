package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/platformops/faultline/internal/models"
	"github.com/platformops/faultline/internal/utils"
)

// CorrelationStore persists detected correlations and tracks their
// resolution state. Records expire by TTL; they are never deleted
// explicitly.
type CorrelationStore struct {
	kv        KeyValueStore
	logger    *slog.Logger
	ttl       time.Duration
	opTimeout time.Duration
}

// NewCorrelationStore constructs a CorrelationStore over the KV backend.
func NewCorrelationStore(kv KeyValueStore, logger *slog.Logger, ttl, opTimeout time.Duration) *CorrelationStore {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &CorrelationStore{kv: kv, logger: logger, ttl: ttl, opTimeout: opTimeout}
}

func correlationKey(id string) string {
	return fmt.Sprintf("correlation:%s", id)
}

// Save persists a correlation with the configured TTL.
func (s *CorrelationStore) Save(ctx context.Context, corr models.ErrorCorrelation) error {
	data, err := json.Marshal(corr)
	if err != nil {
		return utils.NewAppError("correlations.Save", "marshal correlation", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.kv.Set(opCtx, correlationKey(corr.ID), data, s.ttl); err != nil {
		return utils.NewAppError("correlations.Save", "write correlation", err)
	}
	return nil
}

// Get returns a single correlation by id.
func (s *CorrelationStore) Get(ctx context.Context, id string) (models.ErrorCorrelation, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.kv.Get(opCtx, correlationKey(id))
	if err != nil {
		return models.ErrorCorrelation{}, err
	}
	var corr models.ErrorCorrelation
	if err := json.Unmarshal(data, &corr); err != nil {
		return models.ErrorCorrelation{}, utils.NewAppError("correlations.Get", "decode correlation", err)
	}
	return corr, nil
}

// Resolve stamps the resolution time on an existing correlation. The record
// is rewritten with the full TTL; resolved correlations remain queryable for
// the same horizon as fresh ones.
func (s *CorrelationStore) Resolve(ctx context.Context, id string, at time.Time) error {
	corr, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if corr.Resolved() {
		return nil
	}
	resolved := at.UTC()
	corr.ResolvedAt = &resolved
	return s.Save(ctx, corr)
}

// List returns every non-expired correlation. Undecodable records are
// skipped with a warning rather than failing the whole scan.
func (s *CorrelationStore) List(ctx context.Context) ([]models.ErrorCorrelation, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	keys, err := s.kv.Keys(opCtx, "correlation:*")
	if err != nil {
		return nil, utils.NewAppError("correlations.List", "scan correlation keys", err)
	}

	correlations := make([]models.ErrorCorrelation, 0, len(keys))
	for _, key := range keys {
		getCtx, cancelGet := context.WithTimeout(ctx, s.opTimeout)
		data, err := s.kv.Get(getCtx, key)
		cancelGet()
		if err != nil {
			continue
		}
		var corr models.ErrorCorrelation
		if err := json.Unmarshal(data, &corr); err != nil {
			s.logger.Warn("skipping undecodable correlation", slog.String("key", key), slog.Any("error", err))
			continue
		}
		correlations = append(correlations, corr)
	}
	return correlations, nil
}
