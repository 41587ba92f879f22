package label

import (
	"context"
	"fmt"
	"sort"

	appConfig "github.com/tigerroll/trendline/internal/config"
	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/internal/pipeline"
	"github.com/tigerroll/trendline/pkg/batch/component/tasklet/generic"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const (
	// StepName is the name of the labelling step.
	StepName = "labelStep"

	// ThresholdKey holds the trend threshold in the step ExecutionContext.
	ThresholdKey = "trend_threshold"
	// ThresholdMetric is the gauge publishing the trend threshold.
	ThresholdMetric = "trend_threshold"

	labelModule = "label"
)

// Summary describes the labels assigned by Apply.
type Summary struct {
	Threshold    float64
	Edges        []float64
	Collapsed    bool
	BucketCounts map[string]int
	TrendingRows int
	Videos       int
}

// Apply fills peak_view_count, will_trend, days_to_peak and performance_bucket
// on every row in place. Features must already be derived.
func Apply(rows []model.DatasetRow, cfg appConfig.LabelConfig) (Summary, error) {
	if len(cfg.BucketLabels) != len(cfg.CutPoints)-1 {
		return Summary{}, exception.NewConfigurationError(labelModule,
			fmt.Sprintf("%d bucket labels do not fit %d cut points", len(cfg.BucketLabels), len(cfg.CutPoints)), nil)
	}

	sum := Summary{BucketCounts: make(map[string]int, len(cfg.BucketLabels))}
	for _, l := range cfg.BucketLabels {
		sum.BucketCounts[l] = 0
	}
	if len(rows) == 0 {
		return sum, nil
	}

	byVideo := make(map[string][]int)
	var order []string
	for i := range rows {
		id := rows[i].VideoID
		if _, ok := byVideo[id]; !ok {
			order = append(order, id)
		}
		byVideo[id] = append(byVideo[id], i)
	}
	sum.Videos = len(order)

	for _, id := range order {
		idx := byVideo[id]

		var peak int64
		for n, i := range idx {
			if n == 0 || rows[i].ViewCount > peak {
				peak = rows[i].ViewCount
			}
		}

		// earliest fetch first; ties keep row order
		bySnapshot := append([]int(nil), idx...)
		sort.SliceStable(bySnapshot, func(a, b int) bool {
			return rows[bySnapshot[a]].FetchTimestamp.Before(rows[bySnapshot[b]].FetchTimestamp)
		})
		var daysToPeak *int64
		for _, i := range bySnapshot {
			if rows[i].ViewCount == peak {
				d := rows[i].DaysSincePublished
				daysToPeak = &d
				break
			}
		}

		for _, i := range idx {
			rows[i].PeakViewCount = peak
			if daysToPeak != nil {
				d := *daysToPeak
				rows[i].DaysToPeak = &d
			} else {
				rows[i].DaysToPeak = nil
			}
		}
	}

	peaks := make([]float64, len(rows))
	for i := range rows {
		peaks[i] = float64(rows[i].PeakViewCount)
	}
	sum.Threshold = Quantile(peaks, cfg.TrendPercentile)
	sum.Edges = Quantiles(peaks, cfg.CutPoints)
	bucketer := NewBucketer(sum.Edges, cfg.BucketLabels)
	sum.Collapsed = bucketer.Collapsed()

	for i := range rows {
		r := &rows[i]
		peak := float64(r.PeakViewCount)
		if peak >= sum.Threshold {
			r.WillTrend = 1
			sum.TrendingRows++
		} else {
			r.WillTrend = 0
		}
		r.PerformanceBucket = bucketer.Bucket(peak)
		if r.PerformanceBucket != "" {
			sum.BucketCounts[r.PerformanceBucket]++
		}
	}
	return sum, nil
}

// Engine is the step that runs Apply over the shared dataset.
type Engine struct {
	cfg      appConfig.LabelConfig
	dataset  *pipeline.Dataset
	recorder metrics.MetricRecorder
}

// NewEngine creates an Engine.
func NewEngine(cfg *appConfig.PipelineConfig, dataset *pipeline.Dataset, recorder metrics.MetricRecorder) *Engine {
	return &Engine{cfg: cfg.Labels, dataset: dataset, recorder: recorder}
}

// Tasklet wraps Run as a port.Tasklet.
func (e *Engine) Tasklet() port.Tasklet {
	return generic.NewFuncTasklet(StepName, e.Run)
}

// Run labels every row and stores the summary in ec.
func (e *Engine) Run(ctx context.Context, se *batchModel.StepExecution, ec batchModel.ExecutionContext) (batchModel.ExitStatus, error) {
	if err := ctx.Err(); err != nil {
		return batchModel.ExitStatusStopped, err
	}

	rows := e.dataset.Rows()
	sum, err := Apply(rows, e.cfg)
	if err != nil {
		return batchModel.ExitStatusFailed, err
	}
	e.dataset.SetRows(rows)

	se.ReadCount += len(rows)
	se.WriteCount += len(rows)
	pipeline.RecordRows(ctx, e.recorder, ec, pipeline.StageLabel, len(rows))
	if len(rows) == 0 {
		logger.Warnf("No rows to label; trend threshold and bucket edges are undefined.")
		return batchModel.ExitStatusCompleted, nil
	}

	ec.Put(ThresholdKey, sum.Threshold)
	ec.Put("label.edges", sum.Edges)
	ec.Put("label.trending_rows", sum.TrendingRows)
	ec.Put("label.videos", sum.Videos)
	for l, n := range sum.BucketCounts {
		ec.Put("label.bucket."+l, n)
	}
	e.recorder.RecordGauge(ctx, ThresholdMetric, sum.Threshold, nil)

	if sum.Collapsed {
		logger.Warnf("Performance bucket edges %v contain duplicates; the affected buckets are merged into the lower label.", sum.Edges)
	}
	logger.Infof("Labelled %d rows of %d videos: threshold=%.2f, trending rows=%d, buckets=%v.",
		len(rows), sum.Videos, sum.Threshold, sum.TrendingRows, sum.BucketCounts)
	return batchModel.ExitStatusCompleted, nil
}
