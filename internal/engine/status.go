package engine

import (
	"context"

	"github.com/platformops/faultline/internal/models"
)

// recentAlertCount bounds the alerts embedded in a status snapshot.
const recentAlertCount = 10

// Status aggregates every non-expired correlation record into the
// dashboard snapshot. Read-only, no side effects.
func (e *Engine) Status(ctx context.Context) (models.CorrelationStatus, error) {
	correlations, err := e.correlations.List(ctx)
	if err != nil {
		return models.CorrelationStatus{}, err
	}

	status := models.CorrelationStatus{
		TotalCorrelations:   len(correlations),
		PatternDistribution: make(map[models.Pattern]int),
		AffectedSystems:     make(map[models.Subsystem]int),
	}
	for _, corr := range correlations {
		status.PatternDistribution[corr.Pattern]++
		for _, subsystem := range corr.AffectedSubsystems {
			status.AffectedSystems[subsystem]++
		}
		if !corr.Resolved() {
			status.ActiveCorrelations++
		}
	}

	alerts, err := e.sink.RecentAlerts(ctx, recentAlertCount)
	if err != nil {
		e.logger.Warn("recent alerts unavailable", "error", err)
	} else {
		status.RecentAlerts = alerts
	}

	executed, err := e.sink.RecoveryCount(ctx)
	if err != nil {
		e.logger.Warn("recovery count unavailable", "error", err)
	} else {
		status.RecoveryActionsExecuted = executed
	}

	return status, nil
}
