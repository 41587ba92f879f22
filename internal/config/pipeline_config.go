// Package config holds the trending-dataset pipeline settings found under surfin.pipeline.
package config

import (
	"fmt"
	"reflect"
	"strings"

	coreConfig "github.com/tigerroll/trendline/pkg/batch/core/config"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
)

const (
	configModule = "pipeline_config"
	// EnvPrefix prefixes environment overrides, e.g. SURFIN_PIPELINE_LABELS_TREND_PERCENTILE.
	EnvPrefix = "SURFIN_PIPELINE_"
)

// SourceConfig locates the input relations.
type SourceConfig struct {
	// DBRef names the connection under surfin.database.
	DBRef           string `yaml:"db_ref"`
	VideosTable     string `yaml:"videos_table"`
	StatisticsTable string `yaml:"statistics_table"`
}

// OutputConfig locates the output objects.
type OutputConfig struct {
	// StorageRef names the connection under surfin.storage.
	StorageRef    string `yaml:"storage_ref"`
	Bucket        string `yaml:"bucket"`
	DatasetObject string `yaml:"dataset_object"`
	CorpusObject  string `yaml:"corpus_object"`
	Compression   string `yaml:"compression"`
}

// LabelConfig controls the trend threshold and the performance buckets.
type LabelConfig struct {
	// TrendPercentile is the quantile of peak_view_count used as the trend threshold.
	TrendPercentile float64 `yaml:"trend_percentile"`
	// CutPoints are the quantiles that bound the performance buckets, ascending in [0,1].
	CutPoints []float64 `yaml:"cut_points"`
	// BucketLabels names the buckets in ascending order; len(CutPoints)-1 entries.
	BucketLabels []string `yaml:"bucket_labels"`
}

// PipelineConfig is the explicit configuration of one pipeline run.
type PipelineConfig struct {
	Source SourceConfig `yaml:"source"`
	Output OutputConfig `yaml:"output"`
	Labels LabelConfig  `yaml:"labels"`
}

// DefaultPipelineConfig returns the defaults used when a key is absent.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Source: SourceConfig{
			DBRef:           "source",
			VideosTable:     "videos",
			StatisticsTable: "statistics",
		},
		Output: OutputConfig{
			StorageRef:    "output",
			DatasetObject: "final_processed_data.parquet",
			CorpusObject:  "corpus.txt",
			Compression:   "SNAPPY",
		},
		Labels: LabelConfig{
			TrendPercentile: 0.75,
			CutPoints:       []float64{0, 0.5, 0.75, 0.9, 1.0},
			BucketLabels:    []string{"Standard", "Popular", "High-Performing", "Viral"},
		},
	}
}

// NewPipelineConfig builds the pipeline configuration: defaults, then the
// surfin.pipeline YAML section, then SURFIN_PIPELINE_* environment variables.
func NewPipelineConfig(cfg *coreConfig.Config) (*PipelineConfig, error) {
	pc := DefaultPipelineConfig()
	if err := cfg.DecodeSection("pipeline", pc); err != nil {
		return nil, err
	}
	if err := coreConfig.LoadStructFromEnv(reflect.ValueOf(pc).Elem(), EnvPrefix); err != nil {
		return nil, exception.NewConfigurationError(configModule, "failed to apply environment overrides", err)
	}
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	return pc, nil
}

// Validate rejects settings the label engine or the loader cannot work with.
func (c *PipelineConfig) Validate() error {
	var problems []string
	if c.Source.DBRef == "" {
		problems = append(problems, "source.db_ref is empty")
	}
	if !isIdentifier(c.Source.VideosTable) {
		problems = append(problems, fmt.Sprintf("source.videos_table %q is not a valid table name", c.Source.VideosTable))
	}
	if !isIdentifier(c.Source.StatisticsTable) {
		problems = append(problems, fmt.Sprintf("source.statistics_table %q is not a valid table name", c.Source.StatisticsTable))
	}
	if c.Output.StorageRef == "" {
		problems = append(problems, "output.storage_ref is empty")
	}
	if c.Output.DatasetObject == "" || c.Output.CorpusObject == "" {
		problems = append(problems, "output.dataset_object and output.corpus_object are required")
	}

	l := c.Labels
	if l.TrendPercentile < 0 || l.TrendPercentile > 1 {
		problems = append(problems, fmt.Sprintf("labels.trend_percentile %v is outside [0,1]", l.TrendPercentile))
	}
	if len(l.CutPoints) < 2 {
		problems = append(problems, "labels.cut_points needs at least two values")
	}
	for i, p := range l.CutPoints {
		if p < 0 || p > 1 {
			problems = append(problems, fmt.Sprintf("labels.cut_points[%d]=%v is outside [0,1]", i, p))
		}
		if i > 0 && p <= l.CutPoints[i-1] {
			problems = append(problems, "labels.cut_points must be strictly ascending")
			break
		}
	}
	if len(l.CutPoints) >= 2 && len(l.BucketLabels) != len(l.CutPoints)-1 {
		problems = append(problems, fmt.Sprintf("labels.bucket_labels has %d entries, want %d", len(l.BucketLabels), len(l.CutPoints)-1))
	}

	if len(problems) > 0 {
		return exception.NewConfigurationError(configModule, "invalid pipeline configuration: "+strings.Join(problems, "; "), nil)
	}
	return nil
}

// isIdentifier accepts names that are safe to splice into a SELECT.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r == '.' && i > 0:
		default:
			return false
		}
	}
	return true
}
