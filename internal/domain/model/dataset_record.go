package model

import "time"

// DatasetRecord is the Parquet projection of a DatasetRow.
// Timestamps are stored as UTC milliseconds; nullable columns are OPTIONAL.
type DatasetRecord struct {
	VideoID                string  `parquet:"name=video_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	PublishedAt            int64   `parquet:"name=published_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ChannelID              *string `parquet:"name=channel_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Title                  string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	Description            string  `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChannelTitle           *string `parquet:"name=channel_title, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SubscriberCount        int64   `parquet:"name=subscriber_count, type=INT64"`
	ChannelPublishedAt     *int64  `parquet:"name=channel_published_at, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	ChannelCountry         *string `parquet:"name=channel_country, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ChannelVideoCount      int64   `parquet:"name=channel_video_count, type=INT64"`
	ChannelKeywords        string  `parquet:"name=channel_keywords, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChannelTopicCategories *string `parquet:"name=channel_topic_categories, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	AvgCommentSentiment    float64 `parquet:"name=avg_comment_sentiment, type=DOUBLE"`
	CommentSentimentStd    float64 `parquet:"name=comment_sentiment_std, type=DOUBLE"`
	AvgTopCommentReplies   float64 `parquet:"name=avg_top_comment_replies, type=DOUBLE"`
	ThumbnailURL           *string `parquet:"name=thumbnail_url, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Tags                   string  `parquet:"name=tags, type=BYTE_ARRAY, convertedtype=UTF8"`
	CategoryID             *string `parquet:"name=category_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	TopicCategories        string  `parquet:"name=topic_categories, type=BYTE_ARRAY, convertedtype=UTF8"`
	License                *string `parquet:"name=license, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LiveBroadcastContent   *string `parquet:"name=live_broadcast_content, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	DefaultLanguage        *string `parquet:"name=default_language, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	DefaultAudioLanguage   *string `parquet:"name=default_audio_language, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	IsEmbeddable           *bool   `parquet:"name=is_embeddable, type=BOOLEAN, repetitiontype=OPTIONAL"`
	MadeForKids            *bool   `parquet:"name=made_for_kids, type=BOOLEAN, repetitiontype=OPTIONAL"`
	FavoriteCount          int64   `parquet:"name=favorite_count, type=INT64"`
	Duration               *string `parquet:"name=duration, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Definition             *string `parquet:"name=definition, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Caption                *string `parquet:"name=caption, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LicensedContent        *bool   `parquet:"name=licensed_content, type=BOOLEAN, repetitiontype=OPTIONAL"`
	AddedAt                *string `parquet:"name=added_at, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	FetchTimestamp         int64   `parquet:"name=fetch_timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ViewCount              int64   `parquet:"name=view_count, type=INT64"`
	LikeCount              int64   `parquet:"name=like_count, type=INT64"`
	CommentCount           int64   `parquet:"name=comment_count, type=INT64"`
	DurationSeconds        int64   `parquet:"name=duration_seconds, type=INT64"`
	DaysSincePublished     int64   `parquet:"name=days_since_published, type=INT64"`
	ChannelAgeDays         *int64  `parquet:"name=channel_age_days, type=INT64, repetitiontype=OPTIONAL"`
	ViewsPerDay            float64 `parquet:"name=views_per_day, type=DOUBLE"`
	TitleLength            int64   `parquet:"name=title_length, type=INT64"`
	TagCount               int64   `parquet:"name=tag_count, type=INT64"`
	PeakViewCount          int64   `parquet:"name=peak_view_count, type=INT64"`
	WillTrend              int32   `parquet:"name=will_trend, type=INT32"`
	DaysToPeak             *int64  `parquet:"name=days_to_peak, type=INT64, repetitiontype=OPTIONAL"`
	PerformanceBucket      *string `parquet:"name=performance_bucket, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// ToRecord projects r onto the Parquet schema. An empty bucket is written as null.
func (r DatasetRow) ToRecord() DatasetRecord {
	rec := DatasetRecord{
		VideoID:                r.VideoID,
		PublishedAt:            millis(r.PublishedAt),
		ChannelID:              r.ChannelID,
		Title:                  r.Title,
		Description:            r.Description,
		ChannelTitle:           r.ChannelTitle,
		SubscriberCount:        r.SubscriberCount,
		ChannelCountry:         r.ChannelCountry,
		ChannelVideoCount:      r.ChannelVideoCount,
		ChannelKeywords:        r.ChannelKeywords,
		ChannelTopicCategories: r.ChannelTopicCategories,
		AvgCommentSentiment:    r.AvgCommentSentiment,
		CommentSentimentStd:    r.CommentSentimentStd,
		AvgTopCommentReplies:   r.AvgTopCommentReplies,
		ThumbnailURL:           r.ThumbnailURL,
		Tags:                   r.Tags,
		CategoryID:             r.CategoryID,
		TopicCategories:        r.TopicCategories,
		License:                r.License,
		LiveBroadcastContent:   r.LiveBroadcastContent,
		DefaultLanguage:        r.DefaultLanguage,
		DefaultAudioLanguage:   r.DefaultAudioLanguage,
		IsEmbeddable:           r.IsEmbeddable,
		MadeForKids:            r.MadeForKids,
		FavoriteCount:          r.FavoriteCount,
		Duration:               r.Duration,
		Definition:             r.Definition,
		Caption:                r.Caption,
		LicensedContent:        r.LicensedContent,
		AddedAt:                r.AddedAt,
		FetchTimestamp:         millis(r.FetchTimestamp),
		ViewCount:              r.ViewCount,
		LikeCount:              r.LikeCount,
		CommentCount:           r.CommentCount,
		DurationSeconds:        r.DurationSeconds,
		DaysSincePublished:     r.DaysSincePublished,
		ChannelAgeDays:         r.ChannelAgeDays,
		ViewsPerDay:            r.ViewsPerDay,
		TitleLength:            r.TitleLength,
		TagCount:               r.TagCount,
		PeakViewCount:          r.PeakViewCount,
		WillTrend:              r.WillTrend,
		DaysToPeak:             r.DaysToPeak,
	}
	if r.ChannelPublishedAt != nil {
		ms := millis(*r.ChannelPublishedAt)
		rec.ChannelPublishedAt = &ms
	}
	if r.PerformanceBucket != "" {
		bucket := r.PerformanceBucket
		rec.PerformanceBucket = &bucket
	}
	return rec
}

func millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}
