package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/fx"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/trendline/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const launcherModule = "job_launcher"

// JobGroup is the Fx value group collecting every launchable port.Job.
const JobGroup = "jobs"

// SimpleJobLauncher implements JobLauncher and JobOperator for local execution.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobRunner     port.JobRunner
	jobs          map[string]port.Job

	// activeJobCancellations holds the cancel functions for running jobs.
	activeJobCancellations map[string]context.CancelFunc
	mu                     sync.Mutex
}

// SimpleJobLauncherParams lists the launcher's dependencies.
type SimpleJobLauncherParams struct {
	fx.In
	JobRepository repository.JobRepository
	JobRunner     port.JobRunner
	Jobs          []port.Job `group:"jobs"`
}

// NewSimpleJobLauncher creates a new SimpleJobLauncher.
func NewSimpleJobLauncher(p SimpleJobLauncherParams) *SimpleJobLauncher {
	jobs := make(map[string]port.Job, len(p.Jobs))
	for _, job := range p.Jobs {
		if _, dup := jobs[job.JobName()]; dup {
			logger.Warnf("Job '%s' registered twice. The last registration wins.", job.JobName())
		}
		jobs[job.JobName()] = job
	}
	return &SimpleJobLauncher{
		jobRepository:          p.JobRepository,
		jobRunner:              p.JobRunner,
		jobs:                   jobs,
		activeJobCancellations: make(map[string]context.CancelFunc),
	}
}

// JobNames returns the registered job names in sorted order.
func (l *SimpleJobLauncher) JobNames() []string {
	names := make([]string, 0, len(l.jobs))
	for name := range l.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *SimpleJobLauncher) registerCancelFunc(executionID string, cancelFunc context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeJobCancellations[executionID] = cancelFunc
}

func (l *SimpleJobLauncher) unregisterCancelFunc(executionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.activeJobCancellations, executionID)
}

// Launch creates a JobInstance and JobExecution for jobName and runs it on the
// calling goroutine.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, jobParameters model.JobParameters) (*model.JobExecution, error) {
	logger.Infof("Launching Job '%s'. Parameters: %s", jobName, jobParameters.String())

	job, ok := l.jobs[jobName]
	if !ok {
		return nil, exception.NewConfigurationError(launcherModule,
			fmt.Sprintf("job '%s' is not registered (known: %v)", jobName, l.JobNames()), nil)
	}
	if err := job.ValidateParameters(jobParameters); err != nil {
		return nil, exception.NewBatchError(launcherModule, "JobParameters validation error", err, false, false)
	}

	jobInstance := model.NewJobInstance(jobName, jobParameters)
	if err := l.jobRepository.SaveJobInstance(ctx, jobInstance); err != nil {
		return nil, exception.NewBatchError(launcherModule, fmt.Sprintf("Failed to save new JobInstance for '%s'", jobName), err, false, false)
	}
	jobExecution := model.NewJobExecution(jobInstance.ID, jobName, jobInstance.Parameters)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobExecution.CancelFunc = cancel
	l.registerCancelFunc(jobExecution.ID, cancel)
	defer l.unregisterCancelFunc(jobExecution.ID)

	if err := l.jobRepository.SaveJobExecution(jobCtx, jobExecution); err != nil {
		return jobExecution, exception.NewBatchError(launcherModule, "Failed to save JobExecution initially", err, false, false)
	}
	logger.Debugf("Starting Job '%s' (Execution ID: %s, Job Instance ID: %s).", jobName, jobExecution.ID, jobInstance.ID)

	l.jobRunner.Run(jobCtx, job, jobExecution)
	return jobExecution, nil
}

// Stop cancels a running execution. Unknown or finished executions are an error.
func (l *SimpleJobLauncher) Stop(ctx context.Context, executionID string) error {
	l.mu.Lock()
	cancel, ok := l.activeJobCancellations[executionID]
	l.mu.Unlock()
	if !ok {
		return exception.NewBatchErrorf(launcherModule, "JobExecution '%s' is not running", executionID)
	}
	logger.Infof("Stopping JobExecution '%s'.", executionID)
	cancel()
	return nil
}

// GetJobExecution loads an execution from the repository.
func (l *SimpleJobLauncher) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	return l.jobRepository.FindJobExecutionByID(ctx, executionID)
}

var (
	_ JobLauncher = (*SimpleJobLauncher)(nil)
	_ JobOperator = (*SimpleJobLauncher)(nil)
)
