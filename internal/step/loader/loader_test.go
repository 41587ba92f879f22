package loader

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appConfig "github.com/tigerroll/trendline/internal/config"
	"github.com/tigerroll/trendline/internal/domain/entity"
	"github.com/tigerroll/trendline/internal/pipeline"
	"github.com/tigerroll/trendline/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/trendline/pkg/batch/adapter/database/config"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
)

func strPtr(s string) *string { return &s }

func video(id string) entity.Video {
	return entity.Video{VideoID: id, Title: strPtr("title " + id)}
}

func snapshot(id, fetched string) entity.Statistic {
	return entity.Statistic{VideoID: id, FetchTimestamp: strPtr(fetched)}
}

func TestJoin_InnerJoinOrder(t *testing.T) {
	videos := []entity.Video{video("b"), video("a"), video("lonely"), video("b")}
	stats := []entity.Statistic{
		snapshot("a", "2024-01-01"),
		snapshot("b", "2024-01-01"),
		snapshot("ghost", "2024-01-01"),
		snapshot("a", "2024-01-02"),
		snapshot("b", "2024-01-02"),
	}

	rows, js := Join(videos, stats)

	require.Len(t, rows, 4)
	var got []string
	for _, r := range rows {
		got = append(got, r.Video.VideoID+"@"+*r.Statistic.FetchTimestamp)
	}
	assert.Equal(t, []string{"b@2024-01-01", "b@2024-01-02", "a@2024-01-01", "a@2024-01-02"}, got)
	assert.Equal(t, JoinStats{
		Videos:                 4,
		Snapshots:              5,
		Joined:                 4,
		DuplicateVideos:        1,
		VideosWithoutSnapshots: 1,
		OrphanSnapshots:        1,
	}, js)
}

func TestJoin_EmptyInputs(t *testing.T) {
	rows, js := Join(nil, nil)
	assert.Empty(t, rows)
	assert.Equal(t, 0, js.Joined)

	rows, _ = Join([]entity.Video{video("a")}, nil)
	assert.Empty(t, rows)
}

type fakeConn struct {
	db     *sql.DB
	tables map[string]bool
	closed bool
}

func (c *fakeConn) Close() error { c.closed = true; return nil }
func (c *fakeConn) Type() string  { return "sqlmock" }
func (c *fakeConn) Name() string  { return "source" }

func (c *fakeConn) Config() dbconfig.DatabaseConfig {
	return dbconfig.DatabaseConfig{Type: "sqlmock"}
}

func (c *fakeConn) GetSQLDB() (*sql.DB, error) { return c.db, nil }

func (c *fakeConn) RefreshConnection(context.Context) error { return nil }

func (c *fakeConn) HasTable(ctx context.Context, table string) (bool, error) {
	return c.tables[table], nil
}

func (c *fakeConn) CountRows(ctx context.Context, table string) (int64, error) { return 0, nil }

type fakeResolver struct {
	conn database.DBConnection
	err  error
}

func (r *fakeResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return r.conn, r.err
}

func newStepExecution() *model.StepExecution {
	je := model.NewJobExecution(model.NewID(), "job", model.NewJobParameters())
	return model.NewStepExecution(model.NewID(), je, StepName)
}

func TestLoader_Run(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	videoRows := sqlmock.NewRows(entity.VideoColumns)
	videoValues := make([]driver.Value, len(entity.VideoColumns))
	videoValues[0] = "v1"
	videoValues[1] = "2024-01-01T00:00:00Z"
	videoRows.AddRow(videoValues...)
	mock.ExpectQuery(regexp.QuoteMeta(SelectQuery("videos", entity.VideoColumns))).WillReturnRows(videoRows)
	mock.ExpectQuery(regexp.QuoteMeta(SelectQuery("statistics", entity.StatisticColumns))).
		WillReturnRows(sqlmock.NewRows(entity.StatisticColumns).
			AddRow("v1", "2024-01-01 00:00:00", 100, 1, nil).
			AddRow("v1", "2024-01-05 00:00:00", 500, nil, nil).
			AddRow("v9", "2024-01-05 00:00:00", 1, 1, 1))

	conn := &fakeConn{db: db, tables: map[string]bool{"videos": true, "statistics": true}}
	dataset := pipeline.NewDataset()
	l := NewLoader(appConfig.DefaultPipelineConfig(), &fakeResolver{conn: conn}, dataset, metrics.NewNoOpMetricRecorder())

	se := newStepExecution()
	ec := model.NewExecutionContext()
	status, err := l.Run(context.Background(), se, ec)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	require.NoError(t, mock.ExpectationsWereMet())

	joined := dataset.Joined()
	require.Len(t, joined, 2)
	assert.Nil(t, joined[0].Video.Title)
	assert.Equal(t, int64(500), *joined[1].Statistic.ViewCount)
	assert.Nil(t, joined[1].Statistic.LikeCount)

	assert.True(t, conn.closed)
	assert.Equal(t, 4, se.ReadCount)
	assert.Equal(t, 2, se.WriteCount)
	orphans, _ := ec.GetInt("join.orphan_snapshots")
	assert.Equal(t, 1, orphans)
	rows, _ := ec.GetInt(pipeline.RowsKey(pipeline.StageJoin))
	assert.Equal(t, 2, rows)
}

func TestLoader_MissingTableIsResourceFailure(t *testing.T) {
	conn := &fakeConn{tables: map[string]bool{"videos": true}}
	l := NewLoader(appConfig.DefaultPipelineConfig(), &fakeResolver{conn: conn}, pipeline.NewDataset(), metrics.NewNoOpMetricRecorder())

	_, err := l.Run(context.Background(), newStepExecution(), model.NewExecutionContext())
	require.Error(t, err)
	assert.True(t, exception.IsResourceFailure(err))
	assert.Contains(t, err.Error(), "statistics")
	assert.True(t, conn.closed)
}

func TestLoader_UnresolvableConnection(t *testing.T) {
	cause := exception.NewResourceError("gorm", "connection refused", errors.New("dial tcp"))
	l := NewLoader(appConfig.DefaultPipelineConfig(), &fakeResolver{err: cause}, pipeline.NewDataset(), metrics.NewNoOpMetricRecorder())

	_, err := l.Run(context.Background(), newStepExecution(), model.NewExecutionContext())
	assert.ErrorIs(t, err, cause)
}
