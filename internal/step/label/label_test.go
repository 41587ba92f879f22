package label

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appConfig "github.com/tigerroll/trendline/internal/config"
	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/internal/pipeline"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
)

func TestQuantile(t *testing.T) {
	values := []float64{40, 10, 30, 20}
	assert.Equal(t, 10.0, Quantile(values, 0))
	assert.Equal(t, 40.0, Quantile(values, 1))
	assert.Equal(t, 25.0, Quantile(values, 0.5))
	assert.InDelta(t, 32.5, Quantile(values, 0.75), 1e-9)
	assert.Equal(t, []float64{40, 10, 30, 20}, values, "input must not be reordered")
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.3))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))

	assert.Equal(t, []float64{10, 25, 40}, Quantiles(values, []float64{0, 0.5, 1}))
}

func TestBucketer(t *testing.T) {
	labels := []string{"Standard", "Popular", "High-Performing", "Viral"}
	b := NewBucketer([]float64{0, 10, 20, 30, 40}, labels)
	assert.False(t, b.Collapsed())
	assert.Equal(t, "Standard", b.Bucket(0))
	assert.Equal(t, "Standard", b.Bucket(10))
	assert.Equal(t, "Popular", b.Bucket(10.5))
	assert.Equal(t, "Viral", b.Bucket(40))
	assert.Equal(t, "", b.Bucket(41))
	assert.Equal(t, "", b.Bucket(-1))

	tied := NewBucketer([]float64{5, 5, 5, 9, 9}, labels)
	assert.True(t, tied.Collapsed())
	assert.Equal(t, "Standard", tied.Bucket(5))
	assert.Equal(t, "High-Performing", tied.Bucket(7))
	assert.Equal(t, "High-Performing", tied.Bucket(9))
}

func day(d int) time.Time {
	return time.Date(2024, 1, 1+d, 0, 0, 0, 0, time.UTC)
}

func snapshot(id string, fetchDay int, views int64) model.DatasetRow {
	return model.DatasetRow{
		VideoID:            id,
		PublishedAt:        day(0),
		FetchTimestamp:     day(fetchDay),
		ViewCount:          views,
		DaysSincePublished: int64(fetchDay),
	}
}

func TestApply_PeakAndDaysToPeak(t *testing.T) {
	rows := []model.DatasetRow{
		snapshot("a", 0, 100),
		snapshot("a", 4, 500),
		snapshot("a", 9, 300),
		snapshot("b", 2, 50),
	}

	sum, err := Apply(rows, appConfig.DefaultPipelineConfig().Labels)
	require.NoError(t, err)

	for _, r := range rows[:3] {
		assert.Equal(t, int64(500), r.PeakViewCount)
		require.NotNil(t, r.DaysToPeak)
		assert.Equal(t, int64(4), *r.DaysToPeak)
	}
	assert.Equal(t, int64(50), rows[3].PeakViewCount)
	assert.Equal(t, int64(2), *rows[3].DaysToPeak)
	assert.Equal(t, 2, sum.Videos)
	assert.Equal(t, 500.0, sum.Threshold)
	assert.Equal(t, 3, sum.TrendingRows)
}

func TestApply_DaysToPeakTieBreak(t *testing.T) {
	rows := []model.DatasetRow{
		snapshot("a", 7, 500),
		snapshot("a", 3, 500),
		snapshot("a", 3, 500),
	}
	rows[2].DaysSincePublished = 99

	_, err := Apply(rows, appConfig.DefaultPipelineConfig().Labels)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, int64(3), *r.DaysToPeak, "earliest fetch wins, then the earliest row")
	}
}

func TestApply_Monotone(t *testing.T) {
	var rows []model.DatasetRow
	for i, views := range []int64{5, 900, 40, 40, 1200, 300, 7, 65, 65, 10000} {
		rows = append(rows, snapshot(string(rune('a'+i)), 1, views))
	}
	cfg := appConfig.DefaultPipelineConfig().Labels

	_, err := Apply(rows, cfg)
	require.NoError(t, err)

	rank := map[string]int{}
	for i, l := range cfg.BucketLabels {
		rank[l] = i
	}
	for _, a := range rows {
		require.Contains(t, rank, a.PerformanceBucket)
		for _, b := range rows {
			if a.PeakViewCount <= b.PeakViewCount {
				assert.LessOrEqual(t, a.WillTrend, b.WillTrend)
				assert.LessOrEqual(t, rank[a.PerformanceBucket], rank[b.PerformanceBucket])
			}
		}
	}
}

func TestApply_DegenerateEdges(t *testing.T) {
	rows := []model.DatasetRow{
		snapshot("a", 1, 100),
		snapshot("b", 1, 100),
		snapshot("c", 1, 100),
	}
	sum, err := Apply(rows, appConfig.DefaultPipelineConfig().Labels)
	require.NoError(t, err)

	assert.True(t, sum.Collapsed)
	assert.Equal(t, []float64{100, 100, 100, 100, 100}, sum.Edges)
	for _, r := range rows {
		assert.Equal(t, "Standard", r.PerformanceBucket)
		assert.Equal(t, int32(1), r.WillTrend)
	}
	assert.Equal(t, 3, sum.BucketCounts["Standard"])
	assert.Equal(t, 0, sum.BucketCounts["Viral"])
}

func TestApply_LabelCountMismatch(t *testing.T) {
	cfg := appConfig.LabelConfig{TrendPercentile: 0.75, CutPoints: []float64{0, 1}, BucketLabels: []string{"a", "b"}}
	_, err := Apply([]model.DatasetRow{snapshot("a", 0, 1)}, cfg)
	assert.True(t, exception.IsConfigurationFailure(err))
}

func TestEngine_Run(t *testing.T) {
	dataset := pipeline.NewDataset()
	dataset.SetRows([]model.DatasetRow{snapshot("a", 0, 100), snapshot("b", 0, 500)})

	je := batchModel.NewJobExecution(batchModel.NewID(), "job", batchModel.NewJobParameters())
	se := batchModel.NewStepExecution(batchModel.NewID(), je, StepName)
	ec := batchModel.NewExecutionContext()

	status, err := NewEngine(appConfig.DefaultPipelineConfig(), dataset, metrics.NewNoOpMetricRecorder()).Run(context.Background(), se, ec)
	require.NoError(t, err)
	assert.Equal(t, batchModel.ExitStatusCompleted, status)

	threshold, ok := ec.GetFloat64(ThresholdKey)
	require.True(t, ok)
	assert.Equal(t, 400.0, threshold)
	trending, _ := ec.GetInt("label.trending_rows")
	assert.Equal(t, 1, trending)
	viral, _ := ec.GetInt("label.bucket.Viral")
	assert.Equal(t, 1, viral)
}

func TestEngine_RunEmpty(t *testing.T) {
	je := batchModel.NewJobExecution(batchModel.NewID(), "job", batchModel.NewJobParameters())
	se := batchModel.NewStepExecution(batchModel.NewID(), je, StepName)
	ec := batchModel.NewExecutionContext()

	_, err := NewEngine(appConfig.DefaultPipelineConfig(), pipeline.NewDataset(), metrics.NewNoOpMetricRecorder()).Run(context.Background(), se, ec)
	require.NoError(t, err)
	_, ok := ec.Get(ThresholdKey)
	assert.False(t, ok)
}
