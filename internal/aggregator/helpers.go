package aggregator

import "context"

// Per-subsystem convenience helpers. These are boundary sugar: they only
// pre-populate the raw map with the fields the classifier keys on and feed
// it through the same normalization path as any other payload.

// AggregateWorkflowError submits a workflow-automation error.
func (a *Aggregator) AggregateWorkflowError(ctx context.Context, workflowID, stepName, message, code string) bool {
	return a.AggregateError(ctx, map[string]any{
		"workflow_id": workflowID,
		"step_name":   stepName,
		"message":     message,
		"code":        code,
	}, Metadata{})
}

// AggregateRoutingError submits an ai-routing error.
func (a *Aggregator) AggregateRoutingError(ctx context.Context, provider, modelID, message, code string) bool {
	return a.AggregateError(ctx, map[string]any{
		"provider": provider,
		"model_id": modelID,
		"message":  message,
		"code":     code,
	}, Metadata{})
}

// AggregateTrainingError submits a model-training error.
func (a *Aggregator) AggregateTrainingError(ctx context.Context, trainingJobID, modelVersion, message, code string) bool {
	return a.AggregateError(ctx, map[string]any{
		"training_job_id": trainingJobID,
		"model_version":   modelVersion,
		"message":         message,
		"code":            code,
	}, Metadata{})
}
