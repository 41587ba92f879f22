package metrics_test

import (
	"context"
	"strings"
	"testing"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	inframetrics "github.com/tigerroll/trendline/pkg/batch/infrastructure/metrics"
	listenermetrics "github.com/tigerroll/trendline/pkg/batch/listener/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsStepListener_RecordsCounts(t *testing.T) {
	recorder := inframetrics.NewPrometheusRecorder()
	listener := listenermetrics.NewMetricsStepListener(recorder)

	je := model.NewJobExecution(model.NewID(), "job", model.NewJobParameters())
	se := model.NewStepExecution(model.NewID(), je, "cleanStep")
	se.ReadCount = 10
	se.WriteCount = 7
	se.FilterCount = 3

	listener.BeforeStep(context.Background(), se)
	listener.AfterStep(context.Background(), se)

	expected := `
# HELP batch_step_read_total Total items read by step.
# TYPE batch_step_read_total counter
batch_step_read_total{step_name="cleanStep"} 10
`
	err := testutil.GatherAndCompare(recorder.GetRegistry(), strings.NewReader(expected), "batch_step_read_total")
	require.NoError(t, err)

	families, err := recorder.GetRegistry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "batch_step_write_total")
	assert.Contains(t, names, "trendline_step_filter_total")
}

func TestMetricsStepListener_NilRecorder(t *testing.T) {
	listener := listenermetrics.NewMetricsStepListener(nil)
	se := model.NewStepExecution(model.NewID(), model.NewJobExecution(model.NewID(), "job", model.NewJobParameters()), "s")
	se.ReadCount = 1
	assert.NotPanics(t, func() { listener.AfterStep(context.Background(), se) })
}
