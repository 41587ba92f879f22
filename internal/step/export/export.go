// Package export writes the labelled dataset and the text corpus to object storage.
package export

import (
	"context"

	"github.com/hashicorp/go-multierror"

	appConfig "github.com/tigerroll/trendline/internal/config"
	"github.com/tigerroll/trendline/internal/domain/model"
	"github.com/tigerroll/trendline/internal/pipeline"
	"github.com/tigerroll/trendline/pkg/batch/adapter/storage"
	"github.com/tigerroll/trendline/pkg/batch/component/step/writer"
	"github.com/tigerroll/trendline/pkg/batch/component/tasklet/generic"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const (
	// DatasetStepName is the name of the dataset export step.
	DatasetStepName = "exportDatasetStep"
	// CorpusStepName is the name of the corpus export step.
	CorpusStepName = "exportCorpusStep"

	datasetWriterName = "datasetWriter"
	corpusWriterName  = "corpusWriter"
)

// CorpusLines returns one line per video, taken from its first row in dataset order.
func CorpusLines(rows []model.DatasetRow) []string {
	seen := make(map[string]struct{})
	lines := make([]string, 0)
	for _, r := range rows {
		if _, ok := seen[r.VideoID]; ok {
			continue
		}
		seen[r.VideoID] = struct{}{}
		lines = append(lines, r.CorpusLine())
	}
	return lines
}

// Records converts every row to its Parquet projection.
func Records(rows []model.DatasetRow) []model.DatasetRecord {
	records := make([]model.DatasetRecord, len(rows))
	for i, r := range rows {
		records[i] = r.ToRecord()
	}
	return records
}

// Exporter owns both export steps.
type Exporter struct {
	output   appConfig.OutputConfig
	resolver storage.StorageConnectionResolver
	dataset  *pipeline.Dataset
	recorder metrics.MetricRecorder
}

// NewExporter creates an Exporter.
func NewExporter(cfg *appConfig.PipelineConfig, resolver storage.StorageConnectionResolver, dataset *pipeline.Dataset, recorder metrics.MetricRecorder) *Exporter {
	return &Exporter{output: cfg.Output, resolver: resolver, dataset: dataset, recorder: recorder}
}

// DatasetTasklet wraps RunDataset as a port.Tasklet.
func (e *Exporter) DatasetTasklet() port.Tasklet {
	return generic.NewFuncTasklet(DatasetStepName, e.RunDataset)
}

// CorpusTasklet wraps RunCorpus as a port.Tasklet.
func (e *Exporter) CorpusTasklet() port.Tasklet {
	return generic.NewFuncTasklet(CorpusStepName, e.RunCorpus)
}

// RunDataset writes every row to the dataset object.
func (e *Exporter) RunDataset(ctx context.Context, se *batchModel.StepExecution, ec batchModel.ExecutionContext) (batchModel.ExitStatus, error) {
	if err := ctx.Err(); err != nil {
		return batchModel.ExitStatusStopped, err
	}

	w, err := writer.NewParquetWriter[model.DatasetRecord](datasetWriterName, writer.ParquetWriterConfig{
		StorageRef:      e.output.StorageRef,
		Bucket:          e.output.Bucket,
		ObjectName:      e.output.DatasetObject,
		CompressionType: e.output.Compression,
	}, e.resolver)
	if err != nil {
		return batchModel.ExitStatusFailed, err
	}

	rows := e.dataset.Rows()
	if err := writeAll[model.DatasetRecord](ctx, ec, w, Records(rows)); err != nil {
		return batchModel.ExitStatusFailed, err
	}

	se.ReadCount += len(rows)
	se.WriteCount += len(rows)
	pipeline.RecordRows(ctx, e.recorder, ec, pipeline.StageExport, len(rows))
	logger.Infof("Wrote %d rows to '%s' on storage '%s'.", len(rows), e.output.DatasetObject, e.output.StorageRef)
	return batchModel.ExitStatusCompleted, nil
}

// RunCorpus writes one text line per unique video to the corpus object.
func (e *Exporter) RunCorpus(ctx context.Context, se *batchModel.StepExecution, ec batchModel.ExecutionContext) (batchModel.ExitStatus, error) {
	if err := ctx.Err(); err != nil {
		return batchModel.ExitStatusStopped, err
	}

	w, err := writer.NewTextLineWriter(corpusWriterName, writer.TextLineWriterConfig{
		StorageRef: e.output.StorageRef,
		Bucket:     e.output.Bucket,
		ObjectName: e.output.CorpusObject,
	}, e.resolver)
	if err != nil {
		return batchModel.ExitStatusFailed, err
	}

	rows := e.dataset.Rows()
	lines := CorpusLines(rows)
	if err := writeAll[string](ctx, ec, w, lines); err != nil {
		return batchModel.ExitStatusFailed, err
	}

	se.ReadCount += len(rows)
	se.WriteCount += len(lines)
	se.FilterCount += len(rows) - len(lines)
	pipeline.RecordRows(ctx, e.recorder, ec, pipeline.StageCorpus, len(lines))
	logger.Infof("Wrote %d corpus lines to '%s' on storage '%s'.", len(lines), e.output.CorpusObject, e.output.StorageRef)
	return batchModel.ExitStatusCompleted, nil
}

// writeAll opens w, writes items and always closes it. Close uploads the object,
// so a failed write and a failed upload are both reported.
func writeAll[T any](ctx context.Context, ec batchModel.ExecutionContext, w port.ItemWriter[T], items []T) error {
	if err := w.Open(ctx, ec); err != nil {
		return err
	}
	var result *multierror.Error
	if err := w.Write(ctx, items); err != nil {
		result = multierror.Append(result, err)
	}
	if err := w.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
