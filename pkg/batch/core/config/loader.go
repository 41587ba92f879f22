package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const moduleName = "config"

// LoadConfig loads configuration in this order: defaults, embedded YAML (after ${VAR}
// expansion), then environment variables named after the yaml path
// (e.g. SURFIN_SYSTEM_LOGGING_LEVEL).
// The .env file at envFilePath is loaded into the process environment first.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, NewOsEnvironmentExpander())
}

func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	loadEnvFile(envFilePath)

	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to expand environment placeholders", err)
	}

	cfg := NewConfig()
	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to unmarshal embedded config", err)
	}
	mergeConfig(cfg, &yamlConfig)
	cfg.EmbeddedConfig = expanded

	if err := LoadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to load config from environment variables", err)
	}
	return cfg, nil
}

func loadEnvFile(envFilePath string) {
	if envFilePath == "" {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
		return
	}
	if err := godotenv.Load(envFilePath); err != nil {
		logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
	}
}

// DecodeSection decodes the YAML subtree at surfin.<key> into out.
// Missing sections leave out untouched.
func (c *Config) DecodeSection(key string, out interface{}) error {
	if len(c.EmbeddedConfig) == 0 {
		return nil
	}
	var root struct {
		Surfin map[string]yaml.Node `yaml:"surfin"`
	}
	if err := yaml.Unmarshal(c.EmbeddedConfig, &root); err != nil {
		return exception.NewConfigurationError(moduleName, "failed to parse embedded config", err)
	}
	node, ok := root.Surfin[key]
	if !ok {
		return nil
	}
	if err := node.Decode(out); err != nil {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("failed to decode section '%s'", key), err)
	}
	return nil
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	d, s := &dest.Surfin, &source.Surfin

	if s.Batch.JobName != "" {
		d.Batch.JobName = s.Batch.JobName
	}
	if s.System.Timezone != "" {
		d.System.Timezone = s.System.Timezone
	}
	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}

	mergeMetricsConfig(&d.Observability.Metrics, &s.Observability.Metrics)
	mergeTracingConfig(&d.Observability.Tracing, &s.Observability.Tracing)

	for key, value := range s.AdaptorConfigs {
		d.AdaptorConfigs[key] = value
	}
	for key, value := range s.StorageConfigs {
		d.StorageConfigs[key] = value
	}
}

func mergeMetricsConfig(dest, source *MetricsConfig) {
	if source.Exporter != "" {
		dest.Exporter = source.Exporter
	}
	if source.TextfilePath != "" {
		dest.TextfilePath = source.TextfilePath
	}
	mergeOTLPConfig(&dest.OTLP, &source.OTLP)
}

func mergeTracingConfig(dest, source *TracingConfig) {
	if source.Exporter != "" {
		dest.Exporter = source.Exporter
	}
	if source.ServiceName != "" {
		dest.ServiceName = source.ServiceName
	}
	mergeOTLPConfig(&dest.OTLP, &source.OTLP)
}

func mergeOTLPConfig(dest, source *OTLPConfig) {
	if source.Endpoint != "" {
		dest.Endpoint = source.Endpoint
	}
	if source.Protocol != "" {
		dest.Protocol = source.Protocol
	}
	if source.Insecure {
		dest.Insecure = true
	}
}

// LoadStructFromEnv recursively overrides struct fields from environment variables.
// The variable name is prefix + the upper-cased yaml tag; nested structs extend the
// prefix with "<TAG>_". Slices take comma-separated values.
func LoadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		path := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := LoadStructFromEnv(field, path+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(path)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, path, err)
		}
	}
	return nil
}

// setField converts value to the field's kind. Unsupported kinds are left untouched.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		parts := strings.Split(value, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setField(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return err
			}
		}
		field.Set(slice)
	}
	return nil
}
