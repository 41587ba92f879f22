package writer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/trendline/pkg/batch/adapter/storage"
	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// TextLineWriterConfig holds the configuration for TextLineWriter.
type TextLineWriterConfig struct {
	StorageRef string `mapstructure:"storage_ref"`
	Bucket     string `mapstructure:"bucket"`
	ObjectName string `mapstructure:"object_name"`
}

// TextLineWriter writes one "\n"-terminated line per item and uploads the text
// object on Close. Line breaks inside an item are replaced by spaces so the
// line count always equals the item count.
type TextLineWriter struct {
	name     string
	config   TextLineWriterConfig
	resolver storage.StorageConnectionResolver

	storageConn storage.StorageConnection
	buf         bytes.Buffer
	lines       int
	ec          model.ExecutionContext
}

// NewTextLineWriter creates a TextLineWriter.
func NewTextLineWriter(name string, cfg TextLineWriterConfig, resolver storage.StorageConnectionResolver) (*TextLineWriter, error) {
	if cfg.StorageRef == "" {
		return nil, exception.NewConfigurationError(writerModule, fmt.Sprintf("TextLineWriter '%s' requires a storage_ref", name), nil)
	}
	if cfg.ObjectName == "" {
		return nil, exception.NewConfigurationError(writerModule, fmt.Sprintf("TextLineWriter '%s' requires an object_name", name), nil)
	}
	return &TextLineWriter{
		name:     name,
		config:   cfg,
		resolver: resolver,
		ec:       model.NewExecutionContext(),
	}, nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Open resolves the storage connection.
func (w *TextLineWriter) Open(ctx context.Context, ec model.ExecutionContext) error {
	conn, err := w.resolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return err
	}
	w.storageConn = conn
	if ec != nil {
		w.ec = ec
	}
	w.buf.Reset()
	w.lines = 0
	return nil
}

// Write appends one line per item.
func (w *TextLineWriter) Write(ctx context.Context, items []string) error {
	if w.storageConn == nil {
		return exception.NewBatchErrorf(writerModule, "TextLineWriter '%s' is not open", w.name)
	}
	for _, item := range items {
		w.buf.WriteString(lineBreaks.Replace(item))
		w.buf.WriteByte('\n')
	}
	w.lines += len(items)
	return nil
}

// Close uploads the buffered text.
func (w *TextLineWriter) Close(ctx context.Context) error {
	if w.storageConn == nil {
		return nil
	}
	defer func() {
		w.storageConn = nil
		w.buf.Reset()
	}()

	size := w.buf.Len()
	if err := w.storageConn.Upload(ctx, w.config.Bucket, w.config.ObjectName, &w.buf, "text/plain; charset=utf-8"); err != nil {
		return exception.NewResourceError(writerModule, fmt.Sprintf("failed to upload '%s' for TextLineWriter '%s'", w.config.ObjectName, w.name), err)
	}
	w.ec.Put(w.name+".writeCount", w.lines)
	logger.Infof("TextLineWriter '%s': wrote %d lines (%d bytes) to %s/%s", w.name, w.lines, size, w.config.StorageRef, w.config.ObjectName)
	return nil
}

// SetExecutionContext sets the execution context for the writer.
func (w *TextLineWriter) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	w.ec = ec
	return nil
}

// GetExecutionContext returns the writer's execution context.
func (w *TextLineWriter) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return w.ec, nil
}

var _ port.ItemWriter[string] = (*TextLineWriter)(nil)
