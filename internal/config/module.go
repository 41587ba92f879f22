package config

import "go.uber.org/fx"

// Module provides *PipelineConfig.
var Module = fx.Provide(NewPipelineConfig)
