// Package config provides structures and utilities for managing application configuration.
package config

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// BatchConfig holds configuration specific to the batch processing engine.
type BatchConfig struct {
	// JobName is the job launched at startup.
	JobName string `yaml:"job_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// OTLPConfig describes an OTLP exporter endpoint.
type OTLPConfig struct {
	// Endpoint is host:port of the collector.
	Endpoint string `yaml:"endpoint"`
	// Protocol is "http" or "grpc".
	Protocol string `yaml:"protocol"`
	// Insecure disables TLS.
	Insecure bool `yaml:"insecure"`
}

// MetricsConfig selects the metric recorder.
type MetricsConfig struct {
	// Exporter is "prometheus", "otlp" or "none".
	Exporter string `yaml:"exporter"`
	// TextfilePath, when set, receives the Prometheus registry in text format at shutdown
	// (node_exporter textfile collector layout).
	TextfilePath string     `yaml:"textfile_path"`
	OTLP         OTLPConfig `yaml:"otlp"`
}

// TracingConfig selects the tracer.
type TracingConfig struct {
	// Exporter is "otlp" or "none".
	Exporter    string     `yaml:"exporter"`
	ServiceName string     `yaml:"service_name"`
	OTLP        OTLPConfig `yaml:"otlp"`
}

// ObservabilityConfig groups metrics and tracing settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	Batch         BatchConfig         `yaml:"batch"`
	System        SystemConfig        `yaml:"system"`
	Observability ObservabilityConfig `yaml:"observability"`
	// AdaptorConfigs holds named database connection settings, decoded by the database adapter.
	AdaptorConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds named storage connection settings, decoded by the storage adapter.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
	// EmbeddedConfig keeps the raw source so application packages can decode their own sections.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Observability: ObservabilityConfig{
				Metrics: MetricsConfig{
					Exporter: "prometheus",
					OTLP:     OTLPConfig{Protocol: "http", Endpoint: "localhost:4318"},
				},
				Tracing: TracingConfig{
					Exporter:    "none",
					ServiceName: "trendline",
					OTLP:        OTLPConfig{Protocol: "http", Endpoint: "localhost:4318"},
				},
			},
			AdaptorConfigs: map[string]interface{}{},
			StorageConfigs: map[string]interface{}{},
		},
	}
}
