// Package config holds the settings of one named storage connection.
package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type" mapstructure:"type"`                         // "local" or "gcs".
	BucketName      string `yaml:"bucket_name" mapstructure:"bucket_name"`           // Default bucket for operations.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"` // Service account key for GCS. Empty uses ADC.
	BaseDir         string `yaml:"base_dir" mapstructure:"base_dir"`                 // Root directory for local storage.
	// Endpoint overrides the GCS API endpoint (emulators).
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}
