package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/trendline/pkg/batch"

// OTelRecorder is an OpenTelemetry implementation of metrics.MetricRecorder.
// Instruments are created on first use and cached by name.
type OTelRecorder struct {
	meter metric.Meter

	jobDuration  metric.Float64Histogram
	stepDuration metric.Float64Histogram
	jobRuns      metric.Int64Counter
	stepRuns     metric.Int64Counter
	itemsRead    metric.Int64Counter
	itemsWritten metric.Int64Counter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
	histograms map[string]metric.Float64Histogram
}

// NewOTelRecorder creates a recorder on the given MeterProvider.
func NewOTelRecorder(provider metric.MeterProvider) (*OTelRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelRecorder{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
		histograms: make(map[string]metric.Float64Histogram),
	}

	var err error
	if r.jobDuration, err = meter.Float64Histogram("batch.job.duration",
		metric.WithUnit("s"), metric.WithDescription("Duration of batch job executions.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("batch.step.duration",
		metric.WithUnit("s"), metric.WithDescription("Duration of batch step executions.")); err != nil {
		return nil, err
	}
	if r.jobRuns, err = meter.Int64Counter("batch.job.status",
		metric.WithDescription("Batch job status transitions.")); err != nil {
		return nil, err
	}
	if r.stepRuns, err = meter.Int64Counter("batch.step.status",
		metric.WithDescription("Batch step status transitions.")); err != nil {
		return nil, err
	}
	if r.itemsRead, err = meter.Int64Counter("batch.step.read",
		metric.WithDescription("Items read by step.")); err != nil {
		return nil, err
	}
	if r.itemsWritten, err = meter.Int64Counter("batch.step.write",
		metric.WithDescription("Items written by step.")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobRuns.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OTelRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.stepRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	attrs := metric.WithAttributes(
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	)
	r.stepRuns.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.stepDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OTelRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.itemsRead.Add(ctx, int64(count), metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.itemsWritten.Add(ctx, int64(count), metric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelRecorder) RecordCount(ctx context.Context, name string, value int, tags map[string]string) {
	r.mu.Lock()
	counter, ok := r.counters[name]
	if !ok {
		var err error
		counter, err = r.meter.Int64Counter(Namespace + "." + name)
		if err != nil {
			r.mu.Unlock()
			logger.Warnf("Metrics: cannot create counter '%s': %v", name, err)
			return
		}
		r.counters[name] = counter
	}
	r.mu.Unlock()
	counter.Add(ctx, int64(value), metric.WithAttributes(toAttributes(tags)...))
}

func (r *OTelRecorder) RecordGauge(ctx context.Context, name string, value float64, tags map[string]string) {
	r.mu.Lock()
	gauge, ok := r.gauges[name]
	if !ok {
		var err error
		gauge, err = r.meter.Float64Gauge(Namespace + "." + name)
		if err != nil {
			r.mu.Unlock()
			logger.Warnf("Metrics: cannot create gauge '%s': %v", name, err)
			return
		}
		r.gauges[name] = gauge
	}
	r.mu.Unlock()
	gauge.Record(ctx, value, metric.WithAttributes(toAttributes(tags)...))
}

func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.mu.Lock()
	hist, ok := r.histograms[name]
	if !ok {
		var err error
		hist, err = r.meter.Float64Histogram(Namespace+"."+name, metric.WithUnit("s"))
		if err != nil {
			r.mu.Unlock()
			logger.Warnf("Metrics: cannot create histogram '%s': %v", name, err)
			return
		}
		r.histograms[name] = hist
	}
	r.mu.Unlock()
	hist.Record(ctx, duration.Seconds(), metric.WithAttributes(toAttributes(tags)...))
}

func toAttributes(tags map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for _, k := range labelKeys(tags) {
		attrs = append(attrs, attribute.String(k, tags[k]))
	}
	return attrs
}

var _ metrics.MetricRecorder = (*OTelRecorder)(nil)
