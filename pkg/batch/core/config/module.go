package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Surfin.System.Logging
}

// NewObservabilityConfigProvider extracts *ObservabilityConfig from *Config.
func NewObservabilityConfigProvider(cfg *Config) *ObservabilityConfig {
	return &cfg.Surfin.Observability
}

// Module provides configuration-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewObservabilityConfigProvider),
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
