package runner

import (
	"context"
	"errors"
	"time"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/trendline/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// SimpleJob runs its steps in order and stops at the first failure.
type SimpleJob struct {
	id             string
	name           string
	steps          []port.Step
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
	// validate is optional; nil accepts any parameters.
	validate func(model.JobParameters) error
}

var _ port.Job = (*SimpleJob)(nil)

// NewSimpleJob creates a new instance of SimpleJob.
func NewSimpleJob(
	name string,
	steps []port.Step,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *SimpleJob {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleJob{
		id:             name,
		name:           name,
		steps:          steps,
		jobRepository:  jobRepository,
		jobListeners:   jobListeners,
		metricRecorder: metricRecorder,
		tracer:         tracer,
	}
}

// WithParameterValidator sets the function used by ValidateParameters.
func (j *SimpleJob) WithParameterValidator(fn func(model.JobParameters) error) *SimpleJob {
	j.validate = fn
	return j
}

// ID returns the job ID.
func (j *SimpleJob) ID() string {
	return j.id
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string {
	return j.name
}

// Steps returns the steps in execution order.
func (j *SimpleJob) Steps() []port.Step {
	return j.steps
}

// ValidateParameters validates job parameters.
func (j *SimpleJob) ValidateParameters(params model.JobParameters) error {
	logger.Debugf("Job '%s': validating JobParameters: %s", j.name, params.String())
	if j.validate == nil {
		return nil
	}
	return j.validate(params)
}

func (j *SimpleJob) notifyBeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *SimpleJob) notifyAfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run executes every step sequentially. Context cancellation between steps stops
// the job; a step failure fails it.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		if jobExecution.EndTime == nil {
			now := time.Now()
			jobExecution.EndTime = &now
		}
		j.notifyAfterJob(ctx, jobExecution)
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)
		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	}()

	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, err)
			jobExecution.AddFailureException(err)
			jobExecution.MarkAsStopped()
			j.tracer.RecordError(ctx, "job_runner", err)
			return err
		}

		stepName := step.StepName()
		jobExecution.CurrentStepName = stepName
		stepExecution := model.NewStepExecution(model.NewID(), jobExecution, stepName)
		jobExecution.AddStepExecution(stepExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			wrapped := exception.NewBatchError(j.name, "failed to save StepExecution for '"+stepName+"'", err, false, false)
			jobExecution.MarkAsFailed(wrapped)
			return wrapped
		}

		step.SetMetricRecorder(j.metricRecorder)
		step.SetTracer(j.tracer)

		if err := step.Execute(ctx, jobExecution, stepExecution); err != nil {
			logger.Errorf("Job '%s': step '%s' failed: %v", j.name, stepName, err)
			j.tracer.RecordError(ctx, "job_runner", err)
			if errors.Is(err, context.Canceled) {
				jobExecution.AddFailureException(err)
				jobExecution.MarkAsStopped()
				return err
			}
			jobExecution.MarkAsFailed(err)
			return err
		}
		if err := j.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
			logger.Warnf("Job '%s': failed to persist progress after step '%s': %v", j.name, stepName, err)
		}
	}

	jobExecution.MarkAsCompleted()
	return nil
}
