package tasklet_test

import (
	"context"
	"errors"
	"testing"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/trendline/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTasklet struct {
	run    func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error)
	ec     model.ExecutionContext
	closed bool
}

func (f *fakeTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	return f.run(ctx, se)
}

func (f *fakeTasklet) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func (f *fakeTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	f.ec = ec
	return nil
}

func (f *fakeTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return f.ec, nil
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) BeforeStep(ctx context.Context, se *model.StepExecution) {
	l.events = append(l.events, "before:"+string(se.Status))
}

func (l *recordingListener) AfterStep(ctx context.Context, se *model.StepExecution) {
	l.events = append(l.events, "after:"+string(se.Status))
}

func newExecution(t *testing.T, repo *inmemory.InMemoryJobRepository, stepName string) (*model.JobExecution, *model.StepExecution) {
	t.Helper()
	je := model.NewJobExecution(model.NewID(), "job", model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	se := model.NewStepExecution(model.NewID(), je, stepName)
	require.NoError(t, repo.SaveStepExecution(context.Background(), se))
	return je, se
}

func TestTaskletStep_Completes(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecution(t, repo, "cleanStep")

	ft := &fakeTasklet{run: func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
		assert.Same(t, se, port.GetStepExecutionFromContext(ctx))
		se.ReadCount = 5
		se.ExecutionContext.Put("rows", 5)
		return model.ExitStatusCompleted, nil
	}}
	listener := &recordingListener{}
	step := tasklet.NewTaskletStep("cleanStep", ft, repo, []port.StepExecutionListener{listener}, nil, nil)

	require.NoError(t, step.Execute(context.Background(), je, se))

	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.NotNil(t, se.EndTime)
	assert.True(t, ft.closed)
	assert.Equal(t, []string{"before:STARTED", "after:COMPLETED"}, listener.events)

	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	rows, ok := stored.ExecutionContext.GetInt("rows")
	assert.True(t, ok)
	assert.Equal(t, 5, rows)
}

func TestTaskletStep_FailurePropagates(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecution(t, repo, "loadStep")

	cause := exception.NewBatchError("loader", "statistics table missing", errors.New("no such table"), false, false)
	ft := &fakeTasklet{run: func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
		return model.ExitStatusFailed, cause
	}}
	step := tasklet.NewTaskletStep("loadStep", ft, repo, nil, nil, nil)

	err := step.Execute(context.Background(), je, se)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Contains(t, se.Failures, "statistics table missing")
	assert.True(t, ft.closed)
}

func TestTaskletStep_PanicBecomesFailure(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecution(t, repo, "labelStep")

	ft := &fakeTasklet{run: func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
		panic("index out of range")
	}}
	step := tasklet.NewTaskletStep("labelStep", ft, repo, nil, nil, nil)

	err := step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasklet panicked: index out of range")
	assert.Equal(t, model.BatchStatusFailed, se.Status)
}

func TestTaskletStep_UnsavedStepExecution(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je := model.NewJobExecution(model.NewID(), "job", model.NewJobParameters())
	se := model.NewStepExecution(model.NewID(), je, "orphan")

	ft := &fakeTasklet{run: func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
		t.Fatal("tasklet must not run")
		return "", nil
	}}
	step := tasklet.NewTaskletStep("orphan", ft, repo, nil, nil, nil)
	assert.Error(t, step.Execute(context.Background(), je, se))
}

func TestTaskletStep_CancelledStops(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecution(t, repo, "exportDatasetStep")

	ctx, cancel := context.WithCancel(context.Background())
	ft := &fakeTasklet{run: func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
		cancel()
		return model.ExitStatusStopped, ctx.Err()
	}}
	step := tasklet.NewTaskletStep("exportDatasetStep", ft, repo, nil, nil, nil)

	err := step.Execute(ctx, je, se)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.BatchStatusStopped, se.Status)
	assert.Equal(t, model.ExitStatusStopped, se.ExitStatus)

	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusStopped, stored.Status)
}
