// Package port defines the core interfaces (ports) of the batch engine.
package port

import (
	"context"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
)

// JobRunner drives a Job from STARTING to a finished status and persists the result.
type JobRunner interface {
	Run(ctx context.Context, job Job, jobExecution *model.JobExecution)
}

// Job is an executable batch job.
type Job interface {
	// Run executes the job. On return the execution carries a finished status.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	// JobName returns the name the job is launched by.
	JobName() string
	ID() string
	// ValidateParameters rejects parameters the job cannot run with.
	ValidateParameters(params model.JobParameters) error
}

// Step is a single step executed within a job.
type Step interface {
	// Execute runs the step and records its outcome on stepExecution.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	StepName() string
	ID() string
	SetMetricRecorder(recorder metrics.MetricRecorder)
	SetTracer(tracer metrics.Tracer)
}

// ItemReader reads items one at a time. Read returns io.EOF after the last item.
type ItemReader[O any] interface {
	Open(ctx context.Context, ec model.ExecutionContext) error
	Read(ctx context.Context) (O, error)
	Close(ctx context.Context) error
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// ItemWriter writes items in chunks.
type ItemWriter[I any] interface {
	Open(ctx context.Context, ec model.ExecutionContext) error
	Write(ctx context.Context, items []I) error
	// Close flushes buffered items. Output is complete only after Close returns nil.
	Close(ctx context.Context) error
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// Tasklet is a step body that performs a single operation.
type Tasklet interface {
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	Close(ctx context.Context) error
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// StepExecutionListener observes step execution.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener observes job execution.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

type contextKey string

// StepExecutionKey is the context key carrying the running StepExecution.
const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores a StepExecution in the Context.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext retrieves a StepExecution from the Context. Returns nil if not found.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}
