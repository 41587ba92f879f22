package pipeline

import (
	"context"

	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
)

// RowsMetric counts the rows leaving each stage, tagged by stage.
const RowsMetric = "pipeline_rows_total"

// RowsKey is the ExecutionContext key holding the row count of stage.
func RowsKey(stage string) string {
	return "rows." + stage
}

// RecordRows stores the row count of stage in ec and publishes it as a metric.
func RecordRows(ctx context.Context, recorder metrics.MetricRecorder, ec model.ExecutionContext, stage string, n int) {
	ec.Put(RowsKey(stage), n)
	recorder.RecordCount(ctx, RowsMetric, n, map[string]string{"stage": stage})
}
