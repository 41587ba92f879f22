// Package generic provides general-purpose tasklet implementations.
package generic

import (
	"context"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// TaskletFunc is the body of a FuncTasklet. ec is the step's ExecutionContext.
type TaskletFunc func(ctx context.Context, stepExecution *model.StepExecution, ec model.ExecutionContext) (model.ExitStatus, error)

// FuncTasklet adapts a TaskletFunc to port.Tasklet and holds the ExecutionContext
// handed over by the step.
type FuncTasklet struct {
	id string
	fn TaskletFunc
	ec model.ExecutionContext
}

// NewFuncTasklet creates a FuncTasklet.
func NewFuncTasklet(id string, fn TaskletFunc) *FuncTasklet {
	return &FuncTasklet{
		id: id,
		fn: fn,
		ec: model.NewExecutionContext(),
	}
}

// Execute runs the wrapped function. An empty exit status means COMPLETED.
func (t *FuncTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	logger.Debugf("FuncTasklet '%s' executing.", t.id)
	status, err := t.fn(ctx, stepExecution, t.ec)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if status == "" {
		status = model.ExitStatusCompleted
	}
	return status, nil
}

// Close does nothing; the wrapped function releases what it acquires.
func (t *FuncTasklet) Close(ctx context.Context) error {
	return nil
}

// SetExecutionContext stores ec for the next Execute.
func (t *FuncTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	if ec == nil {
		ec = model.NewExecutionContext()
	}
	t.ec = ec
	return nil
}

// GetExecutionContext returns the stored ExecutionContext.
func (t *FuncTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

var _ port.Tasklet = (*FuncTasklet)(nil)
