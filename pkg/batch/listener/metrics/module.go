package metrics

import "go.uber.org/fx"

// Module provides the MetricsStepListener.
var Module = fx.Provide(NewMetricsStepListener)
