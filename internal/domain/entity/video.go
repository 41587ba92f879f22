// Package entity maps the source relations filled by the upstream poller.
// Every column is nullable at read time; timestamps and duration stay raw strings.
package entity

// Video is one row of the video dimension relation.
type Video struct {
	VideoID                string   `gorm:"column:video_id;primaryKey"`
	PublishedAt            *string  `gorm:"column:published_at"`
	ChannelID              *string  `gorm:"column:channel_id"`
	Title                  *string  `gorm:"column:title"`
	Description            *string  `gorm:"column:description"`
	ChannelTitle           *string  `gorm:"column:channel_title"`
	SubscriberCount        *int64   `gorm:"column:subscriber_count"`
	ChannelPublishedAt     *string  `gorm:"column:channel_published_at"`
	ChannelCountry         *string  `gorm:"column:channel_country"`
	ChannelVideoCount      *int64   `gorm:"column:channel_video_count"`
	ChannelKeywords        *string  `gorm:"column:channel_keywords"`
	ChannelTopicCategories *string  `gorm:"column:channel_topic_categories"`
	AvgCommentSentiment    *float64 `gorm:"column:avg_comment_sentiment"`
	CommentSentimentStd    *float64 `gorm:"column:comment_sentiment_std"`
	AvgTopCommentReplies   *float64 `gorm:"column:avg_top_comment_replies"`
	ThumbnailURL           *string  `gorm:"column:thumbnail_url"`
	Tags                   *string  `gorm:"column:tags"`
	CategoryID             *string  `gorm:"column:category_id"`
	TopicCategories        *string  `gorm:"column:topic_categories"`
	License                *string  `gorm:"column:license"`
	LiveBroadcastContent   *string  `gorm:"column:live_broadcast_content"`
	DefaultLanguage        *string  `gorm:"column:default_language"`
	DefaultAudioLanguage   *string  `gorm:"column:default_audio_language"`
	IsEmbeddable           *bool    `gorm:"column:is_embeddable"`
	MadeForKids            *bool    `gorm:"column:made_for_kids"`
	FavoriteCount          *int64   `gorm:"column:favorite_count"`
	Duration               *string  `gorm:"column:duration"`
	Definition             *string  `gorm:"column:definition"`
	Caption                *string  `gorm:"column:caption"`
	LicensedContent        *bool    `gorm:"column:licensed_content"`
	AddedAt                *string  `gorm:"column:added_at"`
}

// TableName specifies the default table name for Video.
func (Video) TableName() string {
	return "videos"
}

// VideoColumns lists the selected columns in the order ScanDest returns destinations.
var VideoColumns = []string{
	"video_id", "published_at", "channel_id", "title", "description", "channel_title",
	"subscriber_count", "channel_published_at", "channel_country", "channel_video_count",
	"channel_keywords", "channel_topic_categories", "avg_comment_sentiment",
	"comment_sentiment_std", "avg_top_comment_replies", "thumbnail_url", "tags",
	"category_id", "topic_categories", "license", "live_broadcast_content",
	"default_language", "default_audio_language", "is_embeddable", "made_for_kids",
	"favorite_count", "duration", "definition", "caption", "licensed_content", "added_at",
}

// ScanDest returns pointers to v's fields in VideoColumns order.
func (v *Video) ScanDest() []any {
	return []any{
		&v.VideoID, &v.PublishedAt, &v.ChannelID, &v.Title, &v.Description, &v.ChannelTitle,
		&v.SubscriberCount, &v.ChannelPublishedAt, &v.ChannelCountry, &v.ChannelVideoCount,
		&v.ChannelKeywords, &v.ChannelTopicCategories, &v.AvgCommentSentiment,
		&v.CommentSentimentStd, &v.AvgTopCommentReplies, &v.ThumbnailURL, &v.Tags,
		&v.CategoryID, &v.TopicCategories, &v.License, &v.LiveBroadcastContent,
		&v.DefaultLanguage, &v.DefaultAudioLanguage, &v.IsEmbeddable, &v.MadeForKids,
		&v.FavoriteCount, &v.Duration, &v.Definition, &v.Caption, &v.LicensedContent, &v.AddedAt,
	}
}

// Statistic is one snapshot row of the statistics fact relation.
type Statistic struct {
	VideoID        string  `gorm:"column:video_id;index"`
	FetchTimestamp *string `gorm:"column:fetch_timestamp"`
	ViewCount      *int64  `gorm:"column:view_count"`
	LikeCount      *int64  `gorm:"column:like_count"`
	CommentCount   *int64  `gorm:"column:comment_count"`
}

// TableName specifies the default table name for Statistic.
func (Statistic) TableName() string {
	return "statistics"
}

// StatisticColumns lists the selected columns in the order ScanDest returns destinations.
var StatisticColumns = []string{"video_id", "fetch_timestamp", "view_count", "like_count", "comment_count"}

// ScanDest returns pointers to s's fields in StatisticColumns order.
func (s *Statistic) ScanDest() []any {
	return []any{&s.VideoID, &s.FetchTimestamp, &s.ViewCount, &s.LikeCount, &s.CommentCount}
}
