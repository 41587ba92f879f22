package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	appConfig "github.com/tigerroll/trendline/internal/config"
	"github.com/tigerroll/trendline/internal/domain/entity"
	"github.com/tigerroll/trendline/internal/pipeline"
	"github.com/tigerroll/trendline/pkg/batch/adapter/database"
	"github.com/tigerroll/trendline/pkg/batch/component/step/reader"
	"github.com/tigerroll/trendline/pkg/batch/component/tasklet/generic"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const (
	// StepName is the name of the loading step.
	StepName     = "loadStep"
	loaderModule = "loader"
)

// Loader reads both relations from the configured connection and stores the join.
type Loader struct {
	source   appConfig.SourceConfig
	resolver database.DBConnectionResolver
	dataset  *pipeline.Dataset
	recorder metrics.MetricRecorder
}

// NewLoader creates a Loader.
func NewLoader(cfg *appConfig.PipelineConfig, resolver database.DBConnectionResolver, dataset *pipeline.Dataset, recorder metrics.MetricRecorder) *Loader {
	return &Loader{source: cfg.Source, resolver: resolver, dataset: dataset, recorder: recorder}
}

// Tasklet wraps Run as a port.Tasklet.
func (l *Loader) Tasklet() port.Tasklet {
	return generic.NewFuncTasklet(StepName, l.Run)
}

// Run loads and joins. The connection is closed when Run returns.
func (l *Loader) Run(ctx context.Context, se *model.StepExecution, ec model.ExecutionContext) (model.ExitStatus, error) {
	l.dataset.Reset()

	conn, err := l.resolver.ResolveDBConnection(ctx, l.source.DBRef)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to close DB connection '%s': %v", l.source.DBRef, err)
		}
	}()

	for _, table := range []string{l.source.VideosTable, l.source.StatisticsTable} {
		ok, err := conn.HasTable(ctx, table)
		if err != nil {
			return model.ExitStatusFailed, exception.NewResourceError(loaderModule, fmt.Sprintf("failed to inspect table '%s'", table), err)
		}
		if !ok {
			return model.ExitStatusFailed, exception.NewResourceError(loaderModule, fmt.Sprintf("table '%s' does not exist on '%s'", table, l.source.DBRef), nil)
		}
	}

	db, err := conn.GetSQLDB()
	if err != nil {
		return model.ExitStatusFailed, exception.NewResourceError(loaderModule, "no sql.DB behind connection '"+l.source.DBRef+"'", err)
	}

	videos, err := readAll(ctx, ec, reader.NewSqlCursorReader(db, "videoReader",
		SelectQuery(l.source.VideosTable, entity.VideoColumns), nil, mapVideo))
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stats, err := readAll(ctx, ec, reader.NewSqlCursorReader(db, "statisticsReader",
		SelectQuery(l.source.StatisticsTable, entity.StatisticColumns), nil, mapStatistic))
	if err != nil {
		return model.ExitStatusFailed, err
	}

	rows, js := Join(videos, stats)
	l.dataset.SetJoined(rows)

	se.ReadCount += js.Videos + js.Snapshots
	se.WriteCount += js.Joined
	ec.Put("join.videos", js.Videos)
	ec.Put("join.snapshots", js.Snapshots)
	ec.Put("join.duplicate_videos", js.DuplicateVideos)
	ec.Put("join.videos_without_snapshots", js.VideosWithoutSnapshots)
	ec.Put("join.orphan_snapshots", js.OrphanSnapshots)
	pipeline.RecordRows(ctx, l.recorder, ec, pipeline.StageJoin, js.Joined)

	logger.Debugf("Join dropped %d videos without snapshots and %d orphan snapshots.", js.VideosWithoutSnapshots, js.OrphanSnapshots)
	logger.Infof("Loaded %d videos and %d snapshots from '%s'; %d joined rows.", js.Videos, js.Snapshots, l.source.DBRef, js.Joined)
	return model.ExitStatusCompleted, nil
}

// SelectQuery builds the column-explicit SELECT used for a source relation.
func SelectQuery(table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
}

func readAll[T any](ctx context.Context, ec model.ExecutionContext, r *reader.SqlCursorReader[T]) (items []T, err error) {
	if err := r.Open(ctx, ec); err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := r.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return r.ReadAll(ctx)
}

func mapVideo(rows *sql.Rows) (entity.Video, error) {
	var v entity.Video
	err := rows.Scan(v.ScanDest()...)
	return v, err
}

func mapStatistic(rows *sql.Rows) (entity.Statistic, error) {
	var s entity.Statistic
	err := rows.Scan(s.ScanDest()...)
	return s, err
}
