package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/trendline/internal/domain/entity"
	"github.com/tigerroll/trendline/internal/domain/model"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
)

func TestDataset_HandOff(t *testing.T) {
	d := NewDataset()
	d.SetJoined([]model.JoinedRow{{Video: entity.Video{VideoID: "v1"}}})
	assert.Len(t, d.Joined(), 1)

	d.SetRows([]model.DatasetRow{{VideoID: "v1"}, {VideoID: "v1"}})
	assert.Nil(t, d.Joined())
	assert.Len(t, d.Rows(), 2)

	d.Reset()
	assert.Nil(t, d.Rows())
}

func TestRecordRows(t *testing.T) {
	ec := batchModel.NewExecutionContext()
	RecordRows(context.Background(), metrics.NewNoOpMetricRecorder(), ec, StageClean, 7)

	n, ok := ec.GetInt("rows.clean")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
}
