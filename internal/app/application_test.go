package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/tigerroll/trendline/internal/domain/entity"
	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/internal/job"
	usecase "github.com/tigerroll/trendline/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/trendline/pkg/batch/core/config"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	infraMetrics "github.com/tigerroll/trendline/pkg/batch/infrastructure/metrics"
)

func s(v string) *string { return &v }
func i(v int64) *int64   { return &v }

// seed creates the source database. withStatistics=false leaves the statistics table out.
func seed(t *testing.T, path string, withStatistics bool) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, db.AutoMigrate(&entity.Video{}))
	videos := []entity.Video{
		{
			VideoID:            "v1",
			PublishedAt:        s("2024-01-01T00:00:00Z"),
			ChannelPublishedAt: s("2020-01-01T00:00:00Z"),
			Title:              s("Lo-Fi Beats | Study Mix!"),
			Tags:               s("lofi|study|beats"),
			Duration:           s("PT1H30M"),
		},
		{
			VideoID:     "v2",
			PublishedAt: s("2024-01-03 12:00:00"),
			Title:       s("Cooking Pasta"),
			Tags:        s("food"),
			Duration:    s("615"),
		},
		{VideoID: "v3", PublishedAt: s("2024-01-02"), Title: s("No snapshots yet")},
	}
	require.NoError(t, db.Create(&videos).Error)

	if !withStatistics {
		return
	}
	require.NoError(t, db.AutoMigrate(&entity.Statistic{}))
	stats := []entity.Statistic{
		{VideoID: "v1", FetchTimestamp: s("2024-01-01 00:00:00"), ViewCount: i(100)},
		{VideoID: "v1", FetchTimestamp: s("2024-01-05 00:00:00"), ViewCount: i(500)},
		{VideoID: "v1", FetchTimestamp: s("2024-01-10 00:00:00"), ViewCount: i(300)},
		{VideoID: "v2", FetchTimestamp: s("2024-01-04 12:00:00"), ViewCount: i(50)},
		{VideoID: "v2", FetchTimestamp: s("not a timestamp"), ViewCount: i(70)},
		{VideoID: "gone", FetchTimestamp: s("2024-01-04 12:00:00"), ViewCount: i(9)},
	}
	require.NoError(t, db.Create(&stats).Error)
}

func newTestConfig(t *testing.T, dbPath, outDir string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Surfin.System.Logging.Level = "ERROR"
	cfg.Surfin.Batch.JobName = job.JobName
	cfg.Surfin.AdaptorConfigs["source"] = map[string]interface{}{
		"type":     "sqlite",
		"database": dbPath,
	}
	cfg.Surfin.StorageConfigs["output"] = map[string]interface{}{
		"type":     "local",
		"base_dir": outDir,
	}
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) (*usecase.SimpleJobLauncher, metrics.MetricRecorder) {
	t.Helper()
	var launcher *usecase.SimpleJobLauncher
	var recorder metrics.MetricRecorder
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		Module,
		fx.Populate(&launcher, &recorder),
	)
	require.NoError(t, app.Err())
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() { _ = app.Stop(context.Background()) })
	return launcher, recorder
}

func readDataset(t *testing.T, path string) []model.DatasetRecord {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(model.DatasetRecord), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	records := make([]model.DatasetRecord, pr.GetNumRows())
	require.NoError(t, pr.Read(&records))
	sort.SliceStable(records, func(a, b int) bool {
		if records[a].VideoID != records[b].VideoID {
			return records[a].VideoID < records[b].VideoID
		}
		return records[a].FetchTimestamp < records[b].FetchTimestamp
	})
	return records
}

func TestTrendingDatasetJob_EndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "youtube_data.db")
	outDir := t.TempDir()
	seed(t, dbPath, true)

	launcher, recorder := startApp(t, newTestConfig(t, dbPath, outDir))
	je, err := launcher.Launch(context.Background(), job.JobName, batchModel.NewJobParameters())
	require.NoError(t, err)
	require.Equal(t, batchModel.BatchStatusCompleted, je.Status, "failures: %v", je.Failures)
	assert.Len(t, je.StepExecutions, 6)

	records := readDataset(t, filepath.Join(outDir, "final_processed_data.parquet"))
	require.Len(t, records, 4)

	var days []int64
	for _, r := range records[:3] {
		assert.Equal(t, "v1", r.VideoID)
		assert.Equal(t, int64(500), r.PeakViewCount)
		require.NotNil(t, r.DaysToPeak)
		assert.Equal(t, int64(4), *r.DaysToPeak)
		require.NotNil(t, r.ChannelAgeDays)
		assert.Equal(t, int64(1461), *r.ChannelAgeDays)
		assert.Equal(t, "lofi beats   study mix", r.Title)
		assert.Equal(t, int64(3), r.TagCount)
		assert.Equal(t, int64(5400), r.DurationSeconds)
		assert.Equal(t, int32(1), r.WillTrend)
		days = append(days, r.DaysSincePublished)
	}
	assert.Equal(t, []int64{0, 4, 9}, days)

	v2 := records[3]
	assert.Equal(t, "v2", v2.VideoID)
	assert.Equal(t, int64(50), v2.PeakViewCount)
	assert.Equal(t, int32(0), v2.WillTrend)
	assert.Equal(t, int64(615), v2.DurationSeconds)
	assert.Nil(t, v2.ChannelAgeDays)
	require.NotNil(t, v2.PerformanceBucket)
	assert.Equal(t, "Standard", *v2.PerformanceBucket)

	corpus, err := os.ReadFile(filepath.Join(outDir, "corpus.txt"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lofi beats   study mix lofi study beats", "cooking pasta food"},
		strings.Split(strings.TrimSuffix(string(corpus), "\n"), "\n"))

	prom, ok := recorder.(*infraMetrics.PrometheusRecorder)
	require.True(t, ok)
	families, err := prom.GetRegistry().Gather()
	require.NoError(t, err)
	var threshold float64
	for _, mf := range families {
		if mf.GetName() == "trendline_trend_threshold" {
			threshold = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 500.0, threshold)
}

func TestTrendingDatasetJob_MissingTableFails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "youtube_data.db")
	outDir := t.TempDir()
	seed(t, dbPath, false)

	launcher, _ := startApp(t, newTestConfig(t, dbPath, outDir))
	je, err := launcher.Launch(context.Background(), job.JobName, batchModel.NewJobParameters())
	require.NoError(t, err)

	assert.Equal(t, batchModel.BatchStatusFailed, je.Status)
	assert.Equal(t, 1, je.Status.ProcessExitCode())
	require.NotEmpty(t, je.Failures)
	assert.Contains(t, strings.Join(je.Failures, "; "), "statistics")
	assert.NoFileExists(t, filepath.Join(outDir, "final_processed_data.parquet"))
}

func TestRunApplication(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "youtube_data.db")
	outDir := t.TempDir()
	seed(t, dbPath, true)

	yaml := fmt.Sprintf(`
surfin:
  batch:
    job_name: trendingDatasetJob
  system:
    logging:
      level: ERROR
  observability:
    metrics:
      exporter: none
  database:
    source:
      type: sqlite
      database: %q
  storage:
    output:
      type: local
      base_dir: %q
  pipeline:
    output:
      compression: GZIP
      corpus_object: corpus/lines.txt
`, dbPath, outDir)

	code := RunApplication(context.Background(), filepath.Join(t.TempDir(), "missing.env"), config.EmbeddedConfig(yaml))
	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(outDir, "final_processed_data.parquet"))
	assert.FileExists(t, filepath.Join(outDir, "corpus", "lines.txt"))
}

func TestRunApplication_UnknownJob(t *testing.T) {
	yaml := `
surfin:
  batch:
    job_name: noSuchJob
  observability:
    metrics:
      exporter: none
`
	code := RunApplication(context.Background(), "", config.EmbeddedConfig(yaml))
	assert.Equal(t, 1, code)
}
