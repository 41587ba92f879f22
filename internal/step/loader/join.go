// Package loader reads the video and statistics relations and inner-joins them.
package loader

import (
	"github.com/tigerroll/trendline/internal/domain/entity"
	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// JoinStats describes what the join kept and dropped.
type JoinStats struct {
	Videos                 int
	Snapshots              int
	Joined                 int
	DuplicateVideos        int
	VideosWithoutSnapshots int
	OrphanSnapshots        int
}

// Join pairs every video with each of its snapshots. Rows come out in video order,
// then snapshot order within a video. A duplicated video_id keeps its first record.
func Join(videos []entity.Video, stats []entity.Statistic) ([]model.JoinedRow, JoinStats) {
	js := JoinStats{Videos: len(videos), Snapshots: len(stats)}

	byVideo := make(map[string][]int, len(videos))
	for i, s := range stats {
		byVideo[s.VideoID] = append(byVideo[s.VideoID], i)
	}

	seen := make(map[string]struct{}, len(videos))
	rows := make([]model.JoinedRow, 0, len(stats))
	for _, v := range videos {
		if _, dup := seen[v.VideoID]; dup {
			js.DuplicateVideos++
			logger.Warnf("Duplicate video_id '%s' in the video relation; keeping the first record.", v.VideoID)
			continue
		}
		seen[v.VideoID] = struct{}{}

		idx := byVideo[v.VideoID]
		if len(idx) == 0 {
			js.VideosWithoutSnapshots++
			continue
		}
		for _, i := range idx {
			rows = append(rows, model.JoinedRow{Video: v, Statistic: stats[i]})
		}
	}

	for _, s := range stats {
		if _, ok := seen[s.VideoID]; !ok {
			js.OrphanSnapshots++
		}
	}
	js.Joined = len(rows)
	return rows, js
}
