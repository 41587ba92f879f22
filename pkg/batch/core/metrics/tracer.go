package metrics

import (
	"context"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
)

// Tracer integrates job and step execution with a distributed tracing system.
type Tracer interface {
	// StartJobSpan starts a span for a JobExecution. The returned function ends it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a child span for a StepExecution. The returned function ends it.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError records err on the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds a named event with attributes to the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
