// Package usecase holds the application services that launch and stop jobs.
package usecase

import (
	"context"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
)

// JobLauncher starts a job with JobParameters.
type JobLauncher interface {
	// Launch runs the named job to completion and returns its execution.
	// The error reports a launch failure, not a failed job; check the execution status for that.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobOperator controls running executions.
type JobOperator interface {
	// Stop cancels the context of a running execution.
	Stop(ctx context.Context, executionID string) error
	// GetJobExecution loads an execution with its step executions.
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)
}
