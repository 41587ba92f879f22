package cleaner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/trendline/internal/domain/entity"
	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/internal/pipeline"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
)

func strPtr(s string) *string { return &s }

func TestParseTimestamp(t *testing.T) {
	utc := func(y int, m time.Month, d, h, mi, s, ns int) *time.Time {
		v := time.Date(y, m, d, h, mi, s, ns, time.UTC)
		return &v
	}
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"2024-01-05T10:30:00Z", utc(2024, 1, 5, 10, 30, 0, 0)},
		{"2024-01-05T10:30:00.250Z", utc(2024, 1, 5, 10, 30, 0, 250000000)},
		{"2024-01-05T10:30:00+09:00", utc(2024, 1, 5, 10, 30, 0, 0)},
		{"2024-01-05T10:30:00", utc(2024, 1, 5, 10, 30, 0, 0)},
		{"2024-01-05 10:30:00", utc(2024, 1, 5, 10, 30, 0, 0)},
		{"2024-01-05 10:30:00.5", utc(2024, 1, 5, 10, 30, 0, 500000000)},
		{"2024-01-05 10:30:00-05:00", utc(2024, 1, 5, 10, 30, 0, 0)},
		{"2024-01-05T10:30", utc(2024, 1, 5, 10, 30, 0, 0)},
		{"2024-01-05", utc(2024, 1, 5, 0, 0, 0, 0)},
		{"  2024-01-05  ", utc(2024, 1, 5, 0, 0, 0, 0)},
		{"1704067200", utc(2024, 1, 1, 0, 0, 0, 0)},
		{"2024", utc(2024, 1, 1, 0, 0, 0, 0)},
		{"20240105", utc(2024, 1, 5, 0, 0, 0, 0)},
		{"86400", utc(1970, 1, 2, 0, 0, 0, 0)},
		{"", nil},
		{"yesterday", nil},
		{"2024-13-45", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseTimestamp(strPtr(tt.in))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
	assert.Nil(t, ParseTimestamp(nil))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "", CleanText(nil))
	assert.Equal(t, "cats dogs birds", CleanText(strPtr("Cats|Dogs!|BIRDS")))
	assert.Equal(t, "top 10 hits 2024 ", CleanText(strPtr("Top 10 Hits (2024) 🎵")))
	assert.Equal(t, "caf", CleanText(strPtr("Café")))
	assert.Equal(t, "a\tb\nc", CleanText(strPtr("a\tb\nc")))

	for _, raw := range []string{"Hello|World", "  MIXED case!! | x ", "ünïcödé|123", ""} {
		once := CleanText(strPtr(raw))
		assert.Equal(t, once, CleanText(&once), "cleaning %q twice changed it", raw)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"PT1H30M", 5400},
		{"PT30M1H", 5400},
		{"PT45S", 45},
		{"PT1H2M3S", 3723},
		{"PT", 0},
		{"P1DT2H", 0},
		{"PT9223372036854775807H", 0},
		{"PT2562047788015215H30M", 9223372036854775800},
		{"PT2562047788015215H31M", 0},
		{"PT9223372036854775807S", 9223372036854775807},
		{"PT9223372036854775807S1S", 0},
		{"PT99999999999999999999S", 0},
		{"12345", 12345},
		{" 12.9 ", 12},
		{"-30", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"garbage", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(strPtr(tt.in)))
		})
	}
	assert.Equal(t, int64(0), ParseDuration(nil))
}

func joined(id, published, fetched string) model.JoinedRow {
	views := int64(100)
	return model.JoinedRow{
		Video: entity.Video{
			VideoID:     id,
			PublishedAt: strPtr(published),
			Title:       strPtr("My Video!"),
			Tags:        strPtr("Music|Live"),
			Duration:    strPtr("PT4M"),
		},
		Statistic: entity.Statistic{VideoID: id, FetchTimestamp: strPtr(fetched), ViewCount: &views},
	}
}

func TestClean(t *testing.T) {
	in := []model.JoinedRow{
		joined("a", "2024-01-01T00:00:00Z", "2024-01-02 00:00:00"),
		joined("b", "not a date", "2024-01-02 00:00:00"),
		joined("c", "2024-01-01T00:00:00Z", ""),
		joined("d", "2024-01-01", "2024-01-03"),
	}
	in[3].Video.PublishedAt = nil

	out, st := Clean(in)

	require.Len(t, out, 1)
	assert.Equal(t, Stats{In: 4, Out: 1, DroppedPublish: 2, DroppedFetch: 1}, st)

	row := out[0]
	assert.Equal(t, "a", row.VideoID)
	assert.Equal(t, "my video", row.Title)
	assert.Equal(t, "music live", row.Tags)
	assert.Equal(t, "", row.Description)
	assert.Equal(t, int64(240), row.DurationSeconds)
	assert.Equal(t, int64(100), row.ViewCount)
	assert.Equal(t, int64(0), row.LikeCount)
	assert.Equal(t, 0.0, row.AvgCommentSentiment)
	assert.Nil(t, row.ChannelPublishedAt)
	assert.Equal(t, "PT4M", *row.Duration)
}

func TestCleaner_Run(t *testing.T) {
	dataset := pipeline.NewDataset()
	dataset.SetJoined([]model.JoinedRow{
		joined("a", "2024-01-01", "2024-01-02"),
		joined("a", "2024-01-01", "??"),
	})

	je := batchModel.NewJobExecution(batchModel.NewID(), "job", batchModel.NewJobParameters())
	se := batchModel.NewStepExecution(batchModel.NewID(), je, StepName)
	ec := batchModel.NewExecutionContext()

	status, err := NewCleaner(dataset, metrics.NewNoOpMetricRecorder()).Run(context.Background(), se, ec)
	require.NoError(t, err)
	assert.Equal(t, batchModel.ExitStatusCompleted, status)

	assert.Len(t, dataset.Rows(), 1)
	assert.Nil(t, dataset.Joined())
	assert.Equal(t, 2, se.ReadCount)
	assert.Equal(t, 1, se.WriteCount)
	assert.Equal(t, 1, se.FilterCount)
	dropped, _ := ec.GetInt("clean.dropped_fetch")
	assert.Equal(t, 1, dropped)
}

func TestCleaner_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	je := batchModel.NewJobExecution(batchModel.NewID(), "job", batchModel.NewJobParameters())
	se := batchModel.NewStepExecution(batchModel.NewID(), je, StepName)
	_, err := NewCleaner(pipeline.NewDataset(), metrics.NewNoOpMetricRecorder()).Run(ctx, se, batchModel.NewExecutionContext())
	assert.ErrorIs(t, err, context.Canceled)
}
