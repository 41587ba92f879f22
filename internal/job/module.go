package job

import (
	"go.uber.org/fx"

	usecase "github.com/tigerroll/trendline/pkg/batch/core/application/usecase"
)

// Module registers the trending dataset job with the launcher.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewTrendingDatasetJob,
		fx.ResultTags(`group:"`+usecase.JobGroup+`"`),
	)),
)
