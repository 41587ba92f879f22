// Package step groups the Fx providers of the pipeline steps.
package step

import (
	"go.uber.org/fx"

	"github.com/tigerroll/trendline/internal/pipeline"
	"github.com/tigerroll/trendline/internal/step/cleaner"
	"github.com/tigerroll/trendline/internal/step/export"
	"github.com/tigerroll/trendline/internal/step/feature"
	"github.com/tigerroll/trendline/internal/step/label"
	"github.com/tigerroll/trendline/internal/step/loader"
)

// Module provides the shared dataset and one component per step.
var Module = fx.Options(
	fx.Provide(pipeline.NewDataset),
	fx.Provide(loader.NewLoader),
	fx.Provide(cleaner.NewCleaner),
	fx.Provide(feature.NewEngine),
	fx.Provide(label.NewEngine),
	fx.Provide(export.NewExporter),
)
