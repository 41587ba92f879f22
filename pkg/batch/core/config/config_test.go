package config

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
surfin:
  batch:
    job_name: trendingDatasetJob
  system:
    logging:
      level: ${TEST_LOG_LEVEL}
  observability:
    metrics:
      exporter: none
  database:
    source:
      type: sqlite
      database: ./youtube.db
  storage:
    output:
      type: local
      base_dir: ./out
  pipeline:
    labels:
      trend_percentile: 0.8
`

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "UTC", cfg.Surfin.System.Timezone)
	assert.Equal(t, "INFO", cfg.Surfin.System.Logging.Level)
	assert.Equal(t, "prometheus", cfg.Surfin.Observability.Metrics.Exporter)
	assert.Equal(t, "none", cfg.Surfin.Observability.Tracing.Exporter)
	assert.NotNil(t, cfg.Surfin.AdaptorConfigs)
	assert.NotNil(t, cfg.Surfin.StorageConfigs)
}

func TestLoadConfig_YAMLThenEnvironment(t *testing.T) {
	t.Setenv("TEST_LOG_LEVEL", "DEBUG")
	t.Setenv("SURFIN_OBSERVABILITY_TRACING_EXPORTER", "otlp")

	cfg, err := LoadConfig("does-not-exist.env", EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "trendingDatasetJob", cfg.Surfin.Batch.JobName)
	assert.Equal(t, "DEBUG", cfg.Surfin.System.Logging.Level)
	assert.Equal(t, "none", cfg.Surfin.Observability.Metrics.Exporter)
	assert.Equal(t, "otlp", cfg.Surfin.Observability.Tracing.Exporter)
	// defaults survive a partial YAML section
	assert.Equal(t, "trendline", cfg.Surfin.Observability.Tracing.ServiceName)
	assert.Contains(t, cfg.Surfin.AdaptorConfigs, "source")
	assert.Contains(t, cfg.Surfin.StorageConfigs, "output")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig("", EmbeddedConfig("surfin: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal embedded config")
}

func TestDecodeSection(t *testing.T) {
	t.Setenv("TEST_LOG_LEVEL", "INFO")
	cfg, err := LoadConfig("", EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	var section struct {
		Labels struct {
			TrendPercentile float64 `yaml:"trend_percentile"`
		} `yaml:"labels"`
	}
	require.NoError(t, cfg.DecodeSection("pipeline", &section))
	assert.InDelta(t, 0.8, section.Labels.TrendPercentile, 1e-9)

	var missing struct {
		Value string `yaml:"value"`
	}
	missing.Value = "kept"
	require.NoError(t, cfg.DecodeSection("absent", &missing))
	assert.Equal(t, "kept", missing.Value)
}

func TestLoadStructFromEnv_Slices(t *testing.T) {
	type labels struct {
		CutPoints []float64 `yaml:"cut_points"`
		Names     []string  `yaml:"bucket_labels"`
		Enabled   bool      `yaml:"enabled"`
	}
	t.Setenv("APP_CUT_POINTS", "0, 0.25,1")
	t.Setenv("APP_BUCKET_LABELS", "low,high")
	t.Setenv("APP_ENABLED", "true")

	var l labels
	require.NoError(t, LoadStructFromEnv(reflect.ValueOf(&l).Elem(), "APP_"))
	assert.Equal(t, []float64{0, 0.25, 1}, l.CutPoints)
	assert.Equal(t, []string{"low", "high"}, l.Names)
	assert.True(t, l.Enabled)

	t.Setenv("APP_CUT_POINTS", "0,x")
	err := LoadStructFromEnv(reflect.ValueOf(&l).Elem(), "APP_")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_CUT_POINTS")
}
