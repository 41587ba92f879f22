package cleaner

import (
	"context"

	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/internal/pipeline"
	"github.com/tigerroll/trendline/pkg/batch/component/tasklet/generic"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const (
	// StepName is the name of the cleaning step.
	StepName = "cleanStep"

	// DroppedMetric counts rows removed by the cleaner, tagged by reason.
	DroppedMetric = "pipeline_dropped_rows_total"
)

// Stats counts what Clean kept and dropped. A row missing both timestamps is
// counted under DroppedPublish only.
type Stats struct {
	In             int
	Out            int
	DroppedPublish int
	DroppedFetch   int
}

// Dropped returns the total number of dropped rows.
func (s Stats) Dropped() int { return s.DroppedPublish + s.DroppedFetch }

// Clean normalizes every joined row and drops the ones without a usable publish
// or fetch timestamp. Input order is preserved.
func Clean(in []model.JoinedRow) ([]model.DatasetRow, Stats) {
	st := Stats{In: len(in)}
	out := make([]model.DatasetRow, 0, len(in))
	for _, jr := range in {
		v, s := jr.Video, jr.Statistic

		published := ParseTimestamp(v.PublishedAt)
		if published == nil {
			st.DroppedPublish++
			continue
		}
		fetched := ParseTimestamp(s.FetchTimestamp)
		if fetched == nil {
			st.DroppedFetch++
			continue
		}

		out = append(out, model.DatasetRow{
			VideoID:            v.VideoID,
			PublishedAt:        *published,
			FetchTimestamp:     *fetched,
			ChannelPublishedAt: ParseTimestamp(v.ChannelPublishedAt),

			Title:           CleanText(v.Title),
			Description:     CleanText(v.Description),
			Tags:            CleanText(v.Tags),
			ChannelKeywords: CleanText(v.ChannelKeywords),
			TopicCategories: CleanText(v.TopicCategories),

			ChannelID:              v.ChannelID,
			ChannelTitle:           v.ChannelTitle,
			ChannelCountry:         v.ChannelCountry,
			ChannelTopicCategories: v.ChannelTopicCategories,
			ThumbnailURL:           v.ThumbnailURL,
			CategoryID:             v.CategoryID,
			License:                v.License,
			LiveBroadcastContent:   v.LiveBroadcastContent,
			DefaultLanguage:        v.DefaultLanguage,
			DefaultAudioLanguage:   v.DefaultAudioLanguage,
			IsEmbeddable:           v.IsEmbeddable,
			MadeForKids:            v.MadeForKids,
			Duration:               v.Duration,
			Definition:             v.Definition,
			Caption:                v.Caption,
			LicensedContent:        v.LicensedContent,
			AddedAt:                v.AddedAt,

			SubscriberCount:      intOrZero(v.SubscriberCount),
			ChannelVideoCount:    intOrZero(v.ChannelVideoCount),
			FavoriteCount:        intOrZero(v.FavoriteCount),
			AvgCommentSentiment:  floatOrZero(v.AvgCommentSentiment),
			CommentSentimentStd:  floatOrZero(v.CommentSentimentStd),
			AvgTopCommentReplies: floatOrZero(v.AvgTopCommentReplies),
			ViewCount:            intOrZero(s.ViewCount),
			LikeCount:            intOrZero(s.LikeCount),
			CommentCount:         intOrZero(s.CommentCount),

			DurationSeconds: ParseDuration(v.Duration),
		})
	}
	st.Out = len(out)
	return out, st
}

func intOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func floatOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Cleaner is the step that runs Clean over the shared dataset.
type Cleaner struct {
	dataset  *pipeline.Dataset
	recorder metrics.MetricRecorder
}

// NewCleaner creates a Cleaner.
func NewCleaner(dataset *pipeline.Dataset, recorder metrics.MetricRecorder) *Cleaner {
	return &Cleaner{dataset: dataset, recorder: recorder}
}

// Tasklet wraps Run as a port.Tasklet.
func (c *Cleaner) Tasklet() port.Tasklet {
	return generic.NewFuncTasklet(StepName, c.Run)
}

// Run cleans the joined rows and hands the result to the next step.
func (c *Cleaner) Run(ctx context.Context, se *batchModel.StepExecution, ec batchModel.ExecutionContext) (batchModel.ExitStatus, error) {
	if err := ctx.Err(); err != nil {
		return batchModel.ExitStatusStopped, err
	}

	rows, st := Clean(c.dataset.Joined())
	c.dataset.SetRows(rows)

	se.ReadCount += st.In
	se.WriteCount += st.Out
	se.FilterCount += st.Dropped()
	ec.Put("clean.dropped_publish", st.DroppedPublish)
	ec.Put("clean.dropped_fetch", st.DroppedFetch)
	c.recorder.RecordCount(ctx, DroppedMetric, st.DroppedPublish, map[string]string{"reason": "published_at"})
	c.recorder.RecordCount(ctx, DroppedMetric, st.DroppedFetch, map[string]string{"reason": "fetch_timestamp"})
	pipeline.RecordRows(ctx, c.recorder, ec, pipeline.StageClean, st.Out)

	if st.Dropped() > 0 {
		logger.Warnf("Dropped %d rows with an unparsable timestamp (published_at: %d, fetch_timestamp: %d).",
			st.Dropped(), st.DroppedPublish, st.DroppedFetch)
	}
	logger.Infof("Cleaned %d of %d joined rows.", st.Out, st.In)
	return batchModel.ExitStatusCompleted, nil
}
