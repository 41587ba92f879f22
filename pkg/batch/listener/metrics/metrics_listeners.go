// Package metrics provides a step listener that publishes item counts to the MetricRecorder.
package metrics

import (
	"context"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
)

// MetricsStepListener records read and write counts once a step finishes.
// Step start and end timings are recorded by the step itself.
type MetricsStepListener struct {
	recorder coremetrics.MetricRecorder
}

// NewMetricsStepListener creates a MetricsStepListener.
func NewMetricsStepListener(recorder coremetrics.MetricRecorder) *MetricsStepListener {
	if recorder == nil {
		recorder = coremetrics.NewNoOpMetricRecorder()
	}
	return &MetricsStepListener{recorder: recorder}
}

// BeforeStep does nothing.
func (l *MetricsStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {}

// AfterStep records ReadCount and WriteCount, skipping zero counts.
func (l *MetricsStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	if stepExecution.ReadCount > 0 {
		l.recorder.RecordItemRead(ctx, stepExecution.StepName, stepExecution.ReadCount)
	}
	if stepExecution.WriteCount > 0 {
		l.recorder.RecordItemWrite(ctx, stepExecution.StepName, stepExecution.WriteCount)
	}
	if stepExecution.FilterCount > 0 {
		l.recorder.RecordCount(ctx, "step_filter_total", stepExecution.FilterCount, map[string]string{"step_name": stepExecution.StepName})
	}
}

var _ port.StepExecutionListener = (*MetricsStepListener)(nil)
