package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	"github.com/tigerroll/trendline/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/job/runner"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingStep struct {
	started chan string
}

func (s *blockingStep) Execute(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error {
	s.started <- je.ID
	<-ctx.Done()
	se.MarkAsStopped()
	return ctx.Err()
}

func (s *blockingStep) StepName() string                              { return "blockingStep" }
func (s *blockingStep) ID() string                                    { return "blockingStep" }
func (s *blockingStep) SetMetricRecorder(recorder metrics.MetricRecorder) {}
func (s *blockingStep) SetTracer(tracer metrics.Tracer)               {}

func newLauncher(repo *inmemory.InMemoryJobRepository, jobs ...port.Job) *usecase.SimpleJobLauncher {
	return usecase.NewSimpleJobLauncher(usecase.SimpleJobLauncherParams{
		JobRepository: repo,
		JobRunner:     runner.NewSimpleJobRunner(repo),
		Jobs:          jobs,
	})
}

func TestLaunch_UnknownJob(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	launcher := newLauncher(repo, runner.NewSimpleJob("trendingDatasetJob", nil, repo, nil, nil, nil))

	_, err := launcher.Launch(context.Background(), "missing", model.NewJobParameters())
	require.Error(t, err)
	assert.True(t, exception.IsConfigurationFailure(err))
	assert.Contains(t, err.Error(), "trendingDatasetJob")
}

func TestLaunch_InvalidParameters(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	job := runner.NewSimpleJob("job", nil, repo, nil, nil, nil).
		WithParameterValidator(func(model.JobParameters) error { return errors.New("bad params") })
	launcher := newLauncher(repo, job)

	je, err := launcher.Launch(context.Background(), "job", model.NewJobParameters())
	require.Error(t, err)
	assert.Nil(t, je)
}

func TestLaunch_EmptyJobCompletes(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	launcher := newLauncher(repo, runner.NewSimpleJob("job", nil, repo, nil, nil, nil))

	je, err := launcher.Launch(context.Background(), "job", model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)

	stored, err := launcher.GetJobExecution(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	assert.Equal(t, []string{"job"}, launcher.JobNames())
}

func TestStop_CancelsRunningExecution(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	step := &blockingStep{started: make(chan string, 1)}
	launcher := newLauncher(repo, runner.NewSimpleJob("job", []port.Step{step}, repo, nil, nil, nil))

	done := make(chan *model.JobExecution, 1)
	go func() {
		je, err := launcher.Launch(context.Background(), "job", model.NewJobParameters())
		assert.NoError(t, err)
		done <- je
	}()

	var executionID string
	select {
	case executionID = <-step.started:
	case <-time.After(5 * time.Second):
		t.Fatal("step did not start")
	}
	require.NoError(t, launcher.Stop(context.Background(), executionID))

	select {
	case je := <-done:
		assert.Equal(t, model.BatchStatusStopped, je.Status)
		assert.Error(t, launcher.Stop(context.Background(), je.ID))
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop")
	}
}
