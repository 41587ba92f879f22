// Package writer provides ItemWriter implementations that write to object storage.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/trendline/pkg/batch/adapter/storage"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const (
	writerModule = "writer"
	// parquetParallelism is the number of goroutines parquet-go uses to encode a row group.
	parquetParallelism = 4
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef names the storage connection under surfin.storage.
	StorageRef string `mapstructure:"storage_ref"`
	// Bucket overrides the connection's default bucket when set.
	Bucket string `mapstructure:"bucket"`
	// ObjectName is the object the file is uploaded to, e.g. "final_processed_data.parquet".
	ObjectName string `mapstructure:"object_name"`
	// CompressionType is SNAPPY, GZIP, ZSTD or NONE. Defaults to SNAPPY.
	CompressionType string `mapstructure:"compression_type"`
}

// ParquetWriter buffers items and writes them as one Parquet object on Close.
// T must carry parquet struct tags; its schema is reflected from a zero value.
type ParquetWriter[T any] struct {
	name     string
	config   ParquetWriterConfig
	codec    parquet.CompressionCodec
	resolver storage.StorageConnectionResolver

	storageConn storage.StorageConnection
	buffered    []T
	ec          model.ExecutionContext
}

// NewParquetWriter validates cfg and creates a ParquetWriter.
func NewParquetWriter[T any](name string, cfg ParquetWriterConfig, resolver storage.StorageConnectionResolver) (*ParquetWriter[T], error) {
	if cfg.StorageRef == "" {
		return nil, exception.NewConfigurationError(writerModule, fmt.Sprintf("ParquetWriter '%s' requires a storage_ref", name), nil)
	}
	if cfg.ObjectName == "" {
		return nil, exception.NewConfigurationError(writerModule, fmt.Sprintf("ParquetWriter '%s' requires an object_name", name), nil)
	}
	if cfg.CompressionType == "" {
		cfg.CompressionType = "SNAPPY"
	}
	codec, err := CompressionCodec(cfg.CompressionType)
	if err != nil {
		return nil, exception.NewConfigurationError(writerModule, fmt.Sprintf("ParquetWriter '%s'", name), err)
	}
	return &ParquetWriter[T]{
		name:     name,
		config:   cfg,
		codec:    codec,
		resolver: resolver,
		ec:       model.NewExecutionContext(),
	}, nil
}

// Open resolves the storage connection and clears the buffer.
func (w *ParquetWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	conn, err := w.resolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return err
	}
	w.storageConn = conn
	if ec != nil {
		w.ec = ec
	}
	w.buffered = nil
	logger.Debugf("ParquetWriter '%s' opened. Target: %s/%s", w.name, w.config.StorageRef, w.config.ObjectName)
	return nil
}

// Write appends items to the buffer.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	if w.storageConn == nil {
		return exception.NewBatchErrorf(writerModule, "ParquetWriter '%s' is not open", w.name)
	}
	w.buffered = append(w.buffered, items...)
	return nil
}

// Close encodes the buffered items and uploads the file. An empty buffer still
// produces a valid file with zero rows.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	if w.storageConn == nil {
		return nil
	}
	defer func() {
		w.storageConn = nil
		w.buffered = nil
	}()

	buf, err := w.encode()
	if err != nil {
		return err
	}

	size := buf.Len()
	if err := w.storageConn.Upload(ctx, w.config.Bucket, w.config.ObjectName, buf, "application/vnd.apache.parquet"); err != nil {
		return exception.NewResourceError(writerModule, fmt.Sprintf("failed to upload '%s' for ParquetWriter '%s'", w.config.ObjectName, w.name), err)
	}

	w.ec.Put(w.name+".writeCount", len(w.buffered))
	w.ec.Put(w.name+".bytes", size)
	logger.Infof("ParquetWriter '%s': wrote %d rows (%d bytes, %s) to %s/%s",
		w.name, len(w.buffered), size, w.config.CompressionType, w.config.StorageRef, w.config.ObjectName)
	return nil
}

func (w *ParquetWriter[T]) encode() (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(T), parquetParallelism)
	if err != nil {
		return nil, exception.NewBatchError(writerModule, fmt.Sprintf("failed to create Parquet writer for '%s'", w.name), err, false, false)
	}
	pw.CompressionType = w.codec

	for i, item := range w.buffered {
		if err := pw.Write(item); err != nil {
			return nil, exception.NewBatchError(writerModule, fmt.Sprintf("failed to encode row %d for ParquetWriter '%s'", i, w.name), err, false, false)
		}
	}

	// parquet-go panics on some schema errors during flush.
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = exception.NewBatchError(writerModule, fmt.Sprintf("Parquet writer panicked during WriteStop for '%s': %v", w.name, r), nil, false, false)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, exception.NewBatchError(writerModule, fmt.Sprintf("failed to finalize Parquet file for '%s'", w.name), err, false, false)
	}
	return buf, nil
}

// SetExecutionContext sets the execution context for the writer.
func (w *ParquetWriter[T]) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	w.ec = ec
	return nil
}

// GetExecutionContext returns the writer's execution context.
func (w *ParquetWriter[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return w.ec, nil
}

// CompressionCodec maps a compression name to its Parquet codec.
func CompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(strings.TrimSpace(compressionType)) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "ZSTD":
		return parquet.CompressionCodec_ZSTD, nil
	case "NONE", "UNCOMPRESSED", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

var _ port.ItemWriter[struct{}] = (*ParquetWriter[struct{}])(nil)
