// Package tasklet implements the tasklet-oriented step: one call to a Tasklet,
// wrapped in step bookkeeping.
package tasklet

import (
	"context"
	"errors"
	"fmt"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/trendline/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// TaskletStep runs a single Tasklet as a step.
type TaskletStep struct {
	name      string
	tasklet   port.Tasklet
	repo      repository.JobRepository
	listeners []port.StepExecutionListener
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
}

// NewTaskletStep creates a TaskletStep. A nil recorder or tracer falls back to the no-op one.
func NewTaskletStep(
	name string,
	tasklet port.Tasklet,
	repo repository.JobRepository,
	listeners []port.StepExecutionListener,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *TaskletStep {
	s := &TaskletStep{name: name, tasklet: tasklet, repo: repo, listeners: listeners}
	s.SetMetricRecorder(recorder)
	s.SetTracer(tracer)
	return s
}

func (s *TaskletStep) SetMetricRecorder(recorder metrics.MetricRecorder) {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	s.recorder = recorder
}

func (s *TaskletStep) SetTracer(tracer metrics.Tracer) {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	s.tracer = tracer
}

func (s *TaskletStep) ID() string       { return s.name }
func (s *TaskletStep) StepName() string { return s.name }

// Execute runs the tasklet once. A panic fails the step; a cancelled context stops it.
// The tasklet's ExecutionContext is copied back onto the step whatever the outcome.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, se *model.StepExecution) error {
	ctx, endSpan := s.tracer.StartStepSpan(ctx, se)
	defer endSpan()
	ctx = port.GetContextWithStepExecution(ctx, se)

	se.MarkAsStarted()
	if err := s.repo.UpdateStepExecution(ctx, se); err != nil {
		return exception.NewBatchError(s.name, "failed to mark step as STARTED", err, false, false)
	}
	s.recorder.RecordStepStart(ctx, se)

	if err := s.tasklet.SetExecutionContext(ctx, se.ExecutionContext); err != nil {
		return s.finish(ctx, se, "", exception.NewBatchError(s.name, "failed to hand the ExecutionContext to the tasklet", err, false, false))
	}

	for _, l := range s.listeners {
		l.BeforeStep(ctx, se)
	}

	exitStatus, err := s.call(ctx, se)

	if ec, ecErr := s.tasklet.GetExecutionContext(ctx); ecErr != nil {
		logger.Warnf("Step '%s': could not read back the tasklet ExecutionContext: %v", s.name, ecErr)
	} else {
		se.ExecutionContext = ec
	}
	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("Step '%s': failed to close tasklet: %v", s.name, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	return s.finish(ctx, se, exitStatus, err)
}

func (s *TaskletStep) call(ctx context.Context, se *model.StepExecution) (exitStatus model.ExitStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = exception.NewBatchError(s.name, fmt.Sprintf("tasklet panicked: %v", r), nil, false, false)
		}
	}()
	return s.tasklet.Execute(ctx, se)
}

func (s *TaskletStep) finish(ctx context.Context, se *model.StepExecution, exitStatus model.ExitStatus, err error) error {
	switch {
	case err == nil:
		se.MarkAsCompleted()
		if exitStatus != "" {
			se.ExitStatus = exitStatus
		}
	case errors.Is(err, context.Canceled):
		se.AddFailureException(err)
		se.MarkAsStopped()
	default:
		s.tracer.RecordError(ctx, s.name, err)
		se.MarkAsFailed(err)
	}

	for _, l := range s.listeners {
		l.AfterStep(ctx, se)
	}
	s.recorder.RecordStepEnd(ctx, se)

	// The job context may be cancelled already; the final state is persisted regardless.
	if updateErr := s.repo.UpdateStepExecution(context.WithoutCancel(ctx), se); updateErr != nil {
		logger.Errorf("Step '%s': failed to persist final state: %v", s.name, updateErr)
		if err == nil {
			err = updateErr
		}
	}

	logger.Infof("Step '%s' finished with %s (read=%d, write=%d, filter=%d).",
		s.name, se.ExitStatus, se.ReadCount, se.WriteCount, se.FilterCount)
	return err
}

var _ port.Step = (*TaskletStep)(nil)
