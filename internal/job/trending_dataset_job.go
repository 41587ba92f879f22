// Package job assembles the trending dataset job from the pipeline steps.
package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/trendline/internal/step/cleaner"
	"github.com/tigerroll/trendline/internal/step/export"
	"github.com/tigerroll/trendline/internal/step/feature"
	"github.com/tigerroll/trendline/internal/step/label"
	"github.com/tigerroll/trendline/internal/step/loader"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	repository "github.com/tigerroll/trendline/pkg/batch/core/domain/repository"
	jobRunner "github.com/tigerroll/trendline/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/trendline/pkg/batch/core/metrics"
	"github.com/tigerroll/trendline/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/trendline/pkg/batch/listener/logging"
	listenerMetrics "github.com/tigerroll/trendline/pkg/batch/listener/metrics"
)

// JobName is the name the job is launched by (surfin.batch.job_name).
const JobName = "trendingDatasetJob"

// TrendingDatasetJobParams lists the job's dependencies.
type TrendingDatasetJobParams struct {
	fx.In
	JobRepository repository.JobRepository
	Loader        *loader.Loader
	Cleaner       *cleaner.Cleaner
	Features      *feature.Engine
	Labels        *label.Engine
	Exporter      *export.Exporter

	JobLogger      *logging.LoggingJobListener
	StepLogger     *logging.LoggingStepListener
	StepMetrics    *listenerMetrics.MetricsStepListener
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
}

// NewTrendingDatasetJob builds the job: load, clean, derive features, label,
// then export the dataset and the corpus.
func NewTrendingDatasetJob(p TrendingDatasetJobParams) port.Job {
	stepListeners := []port.StepExecutionListener{p.StepLogger, p.StepMetrics}
	newStep := func(name string, t port.Tasklet) port.Step {
		return tasklet.NewTaskletStep(name, t, p.JobRepository, stepListeners, p.MetricRecorder, p.Tracer)
	}

	steps := []port.Step{
		newStep(loader.StepName, p.Loader.Tasklet()),
		newStep(cleaner.StepName, p.Cleaner.Tasklet()),
		newStep(feature.StepName, p.Features.Tasklet()),
		newStep(label.StepName, p.Labels.Tasklet()),
		newStep(export.DatasetStepName, p.Exporter.DatasetTasklet()),
		newStep(export.CorpusStepName, p.Exporter.CorpusTasklet()),
	}

	return jobRunner.NewSimpleJob(
		JobName,
		steps,
		p.JobRepository,
		[]port.JobExecutionListener{p.JobLogger},
		p.MetricRecorder,
		p.Tracer,
	)
}
