// Package metrics defines the observability contracts of the batch engine.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
)

// MetricRecorder records job, step and pipeline metrics. Implementations must be
// safe for concurrent use.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution, including its duration.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution, including its duration.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemRead adds count items read by stepName.
	RecordItemRead(ctx context.Context, stepName string, count int)
	// RecordItemWrite adds count items written by stepName.
	RecordItemWrite(ctx context.Context, stepName string, count int)

	// RecordCount adds value to the counter name, labelled with tags.
	//
	// Example: RecordCount(ctx, "pipeline_rows_total", 42, map[string]string{"stage": "clean"})
	RecordCount(ctx context.Context, name string, value int, tags map[string]string)
	// RecordGauge sets the gauge name, labelled with tags.
	RecordGauge(ctx context.Context, name string, value float64, tags map[string]string)
	// RecordDuration observes the duration of an operation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
