// Package model holds the in-memory rows the pipeline stages pass along and the
// Parquet projection written at the end.
package model

import (
	"strings"
	"time"

	"github.com/tigerroll/trendline/internal/domain/entity"
)

// JoinedRow is one video record paired with one of its snapshots.
type JoinedRow struct {
	Video     entity.Video
	Statistic entity.Statistic
}

// DatasetRow is a cleaned JoinedRow plus the derived features and labels.
// Stages fill it progressively: cleaner, feature engine, label engine.
type DatasetRow struct {
	VideoID string

	// Timestamps relabelled as UTC. PublishedAt and FetchTimestamp are always set.
	PublishedAt        time.Time
	FetchTimestamp     time.Time
	ChannelPublishedAt *time.Time

	// Cleaned text; missing becomes "".
	Title           string
	Description     string
	Tags            string
	ChannelKeywords string
	TopicCategories string

	// Passed through unchanged.
	ChannelID              *string
	ChannelTitle           *string
	ChannelCountry         *string
	ChannelTopicCategories *string
	ThumbnailURL           *string
	CategoryID             *string
	License                *string
	LiveBroadcastContent   *string
	DefaultLanguage        *string
	DefaultAudioLanguage   *string
	IsEmbeddable           *bool
	MadeForKids            *bool
	Duration               *string
	Definition             *string
	Caption                *string
	LicensedContent        *bool
	AddedAt                *string

	// Counts and aggregates; missing becomes 0.
	SubscriberCount      int64
	ChannelVideoCount    int64
	FavoriteCount        int64
	AvgCommentSentiment  float64
	CommentSentimentStd  float64
	AvgTopCommentReplies float64
	ViewCount            int64
	LikeCount            int64
	CommentCount         int64

	DurationSeconds int64

	// Features.
	DaysSincePublished int64
	ChannelAgeDays     *int64
	ViewsPerDay        float64
	TitleLength        int64
	TagCount           int64

	// Labels.
	PeakViewCount     int64
	WillTrend         int32
	DaysToPeak        *int64
	PerformanceBucket string
}

// lineBreaks turns every line separator a cleaned text may still hold into a space.
var lineBreaks = strings.NewReplacer(
	"\n", " ", "\r", " ", "\v", " ", "\f", " ",
	"\u0085", " ", "\u2028", " ", "\u2029", " ",
)

// CorpusLine is the text emitted for the row's video: cleaned title, a space, cleaned tags.
// It never contains a line break.
func (r DatasetRow) CorpusLine() string {
	return lineBreaks.Replace(r.Title + " " + r.Tags)
}
