// Package feature derives per-row numeric features from cleaned rows.
package feature

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/internal/pipeline"
	"github.com/tigerroll/trendline/pkg/batch/component/tasklet/generic"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// StepName is the name of the feature step.
const StepName = "featureStep"

const day = 24 * time.Hour

// DaysBetween returns the whole days from 'from' to 'to', rounded toward negative infinity.
func DaysBetween(from, to time.Time) int64 {
	d := to.Sub(from)
	days := int64(d / day)
	if d%day < 0 {
		days--
	}
	return days
}

// Derive fills the feature columns of every row in place.
func Derive(rows []model.DatasetRow) {
	for i := range rows {
		r := &rows[i]

		r.DaysSincePublished = max(DaysBetween(r.PublishedAt, r.FetchTimestamp), 0)
		if r.ChannelPublishedAt != nil {
			age := DaysBetween(*r.ChannelPublishedAt, r.PublishedAt)
			r.ChannelAgeDays = &age
		} else {
			r.ChannelAgeDays = nil
		}
		r.ViewsPerDay = float64(r.ViewCount) / float64(r.DaysSincePublished+1)
		r.TitleLength = int64(utf8.RuneCountInString(r.Title))
		r.TagCount = int64(len(strings.Fields(r.Tags)))
	}
}

// Engine is the step that runs Derive over the shared dataset.
type Engine struct {
	dataset  *pipeline.Dataset
	recorder metrics.MetricRecorder
}

// NewEngine creates an Engine.
func NewEngine(dataset *pipeline.Dataset, recorder metrics.MetricRecorder) *Engine {
	return &Engine{dataset: dataset, recorder: recorder}
}

// Tasklet wraps Run as a port.Tasklet.
func (e *Engine) Tasklet() port.Tasklet {
	return generic.NewFuncTasklet(StepName, e.Run)
}

// Run derives features for every row.
func (e *Engine) Run(ctx context.Context, se *batchModel.StepExecution, ec batchModel.ExecutionContext) (batchModel.ExitStatus, error) {
	if err := ctx.Err(); err != nil {
		return batchModel.ExitStatusStopped, err
	}

	rows := e.dataset.Rows()
	Derive(rows)
	e.dataset.SetRows(rows)

	se.ReadCount += len(rows)
	se.WriteCount += len(rows)
	pipeline.RecordRows(ctx, e.recorder, ec, pipeline.StageFeature, len(rows))
	logger.Infof("Derived features for %d rows.", len(rows))
	return batchModel.ExitStatusCompleted, nil
}
