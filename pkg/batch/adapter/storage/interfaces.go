// Package storage defines the object storage adapter contracts. Buckets map to
// directories for the local backend and to GCS buckets for the gcs backend.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"

	storageConfig "github.com/tigerroll/trendline/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/tigerroll/trendline/pkg/batch/core/adapter"
	coreConfig "github.com/tigerroll/trendline/pkg/batch/core/config"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to bucket/objectName. An empty bucket means the configured default.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens bucket/objectName. The caller closes the reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes bucket/objectName. Missing objects are not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents a named storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor

	// Config returns the settings this connection was opened with.
	Config() storageConfig.StorageConfig
}

// StorageProvider opens and caches connections for one storage type.
type StorageProvider interface {
	GetConnection(name string) (StorageConnection, error)
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "local", "gcs").
	Type() string
	ForceReconnect(name string) (StorageConnection, error)
}

// StorageConnectionResolver resolves a configured connection name to a live connection.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the Fx value group collecting every StorageProvider.
const StorageProviderGroup = "storage_providers"

// DecodeStorageConfig reads surfin.storage.<name> from cfg.
func DecodeStorageConfig(cfg *coreConfig.Config, name string) (storageConfig.StorageConfig, error) {
	var sc storageConfig.StorageConfig
	raw, ok := cfg.Surfin.StorageConfigs[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration '%s' not found under surfin.storage", name)
	}
	if err := mapstructure.Decode(raw, &sc); err != nil {
		return sc, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return sc, nil
}
