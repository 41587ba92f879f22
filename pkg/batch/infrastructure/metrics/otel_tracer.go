package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer on the given TracerProvider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartJobSpan starts a root span for the job. The span status follows the
// execution status at the time the returned function is called.
func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "job "+execution.JobName,
		trace.WithAttributes(
			attribute.String("batch.job.name", execution.JobName),
			attribute.String("batch.job.execution_id", execution.ID),
		))
	return ctx, func() {
		endSpan(span, execution.Status, execution.ExitStatus)
	}
}

// StartStepSpan starts a child span for the step.
func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "step "+execution.StepName,
		trace.WithAttributes(
			attribute.String("batch.step.name", execution.StepName),
			attribute.String("batch.step.execution_id", execution.ID),
		))
	return ctx, func() {
		span.SetAttributes(
			attribute.Int("batch.step.read_count", execution.ReadCount),
			attribute.Int("batch.step.write_count", execution.WriteCount),
			attribute.Int("batch.step.filter_count", execution.FilterCount),
		)
		endSpan(span, execution.Status, execution.ExitStatus)
	}
}

func endSpan(span trace.Span, status model.JobStatus, exit model.ExitStatus) {
	span.SetAttributes(
		attribute.String("batch.status", status.String()),
		attribute.String("batch.exit_status", exit.String()),
	)
	if status == model.BatchStatusFailed {
		span.SetStatus(codes.Error, exit.String())
	} else if status == model.BatchStatusCompleted {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordError records err on the span carried by ctx.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("batch.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent adds an event to the span carried by ctx.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(eventAttributes(attributes)...))
}

func eventAttributes(values map[string]interface{}) []attribute.KeyValue {
	keys := make(map[string]string, len(values))
	for k := range values {
		keys[k] = ""
	}
	attrs := make([]attribute.KeyValue, 0, len(values))
	for _, k := range labelKeys(keys) {
		switch v := values[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		case []float64:
			attrs = append(attrs, attribute.Float64Slice(k, v))
		case []string:
			attrs = append(attrs, attribute.StringSlice(k, v))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(v)))
		}
	}
	return attrs
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
