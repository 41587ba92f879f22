package runner_test

import (
	"context"
	"errors"
	"testing"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/job/runner"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/infrastructure/repository/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcStep struct {
	name string
	run  func(ctx context.Context, se *model.StepExecution) error
	ran  bool
}

func (s *funcStep) Execute(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error {
	s.ran = true
	se.MarkAsStarted()
	if err := s.run(ctx, se); err != nil {
		se.MarkAsFailed(err)
		return err
	}
	se.MarkAsCompleted()
	return nil
}

func (s *funcStep) StepName() string                              { return s.name }
func (s *funcStep) ID() string                                    { return s.name }
func (s *funcStep) SetMetricRecorder(recorder metrics.MetricRecorder) {}
func (s *funcStep) SetTracer(tracer metrics.Tracer)               {}

func noop(ctx context.Context, se *model.StepExecution) error { return nil }

type jobEvents struct {
	before, after int
	finalStatus   model.JobStatus
}

func (l *jobEvents) BeforeJob(ctx context.Context, je *model.JobExecution) { l.before++ }
func (l *jobEvents) AfterJob(ctx context.Context, je *model.JobExecution) {
	l.after++
	l.finalStatus = je.Status
}

func launch(t *testing.T, repo *inmemory.InMemoryJobRepository, job port.Job) *model.JobExecution {
	t.Helper()
	je := model.NewJobExecution(model.NewID(), job.JobName(), model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	runner.NewSimpleJobRunner(repo).Run(context.Background(), job, je)
	return je
}

func TestSimpleJob_RunsStepsInOrder(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	var order []string
	step := func(name string) *funcStep {
		return &funcStep{name: name, run: func(ctx context.Context, se *model.StepExecution) error {
			order = append(order, name)
			return nil
		}}
	}
	events := &jobEvents{}
	job := runner.NewSimpleJob("trendingDatasetJob",
		[]port.Step{step("loadStep"), step("cleanStep"), step("exportStep")},
		repo, []port.JobExecutionListener{events}, nil, nil)

	je := launch(t, repo, job)

	assert.Equal(t, []string{"loadStep", "cleanStep", "exportStep"}, order)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, 0, je.Status.ProcessExitCode())
	assert.Equal(t, 1, events.before)
	assert.Equal(t, 1, events.after)
	assert.Equal(t, model.BatchStatusCompleted, events.finalStatus)

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	require.Len(t, stored.StepExecutions, 3)
}

func TestSimpleJob_StopsAtFirstFailure(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	first := &funcStep{name: "loadStep", run: func(ctx context.Context, se *model.StepExecution) error {
		return errors.New("videos table missing")
	}}
	second := &funcStep{name: "cleanStep", run: noop}
	job := runner.NewSimpleJob("job", []port.Step{first, second}, repo, nil, nil, nil)

	je := launch(t, repo, job)

	assert.True(t, first.ran)
	assert.False(t, second.ran)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, 1, je.Status.ProcessExitCode())
	assert.Contains(t, je.Failures, "videos table missing")
	assert.NotNil(t, je.EndTime)
}

func TestSimpleJob_CancelledContextStops(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	ctx, cancel := context.WithCancel(context.Background())
	first := &funcStep{name: "loadStep", run: func(ctx context.Context, se *model.StepExecution) error {
		cancel()
		return nil
	}}
	second := &funcStep{name: "cleanStep", run: noop}
	job := runner.NewSimpleJob("job", []port.Step{first, second}, repo, nil, nil, nil)

	je := model.NewJobExecution(model.NewID(), "job", model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	runner.NewSimpleJobRunner(repo).Run(ctx, job, je)

	assert.False(t, second.ran)
	assert.Equal(t, model.BatchStatusStopped, je.Status)

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusStopped, stored.Status)
}

func TestSimpleJob_ParameterValidator(t *testing.T) {
	job := runner.NewSimpleJob("job", nil, inmemory.NewInMemoryJobRepository(), nil, nil, nil)
	assert.NoError(t, job.ValidateParameters(model.NewJobParameters()))

	job.WithParameterValidator(func(p model.JobParameters) error {
		if _, ok := p.GetString("run.date"); !ok {
			return errors.New("run.date is required")
		}
		return nil
	})
	assert.EqualError(t, job.ValidateParameters(model.NewJobParameters()), "run.date is required")
}
