// Package reader provides ItemReader implementations.
package reader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const readerModule = "reader"

// RowMapper maps the current row of rows to an item.
type RowMapper[T any] func(rows *sql.Rows) (T, error)

// SqlCursorReader is an ItemReader that streams the result set of a single query.
// The number of items read is kept in the ExecutionContext under "<name>.readCount".
type SqlCursorReader[T any] struct {
	db     *sql.DB
	name   string
	query  string
	args   []any
	mapper RowMapper[T]

	rows      *sql.Rows
	readCount int
	ec        model.ExecutionContext
}

// NewSqlCursorReader creates a new instance of SqlCursorReader.
func NewSqlCursorReader[T any](db *sql.DB, name string, query string, args []any, mapper RowMapper[T]) *SqlCursorReader[T] {
	return &SqlCursorReader[T]{
		db:     db,
		name:   name,
		query:  query,
		args:   args,
		mapper: mapper,
		ec:     model.NewExecutionContext(),
	}
}

func (r *SqlCursorReader[T]) readCountKey() string {
	return r.name + ".readCount"
}

// Open executes the query.
func (r *SqlCursorReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	if ec != nil {
		r.ec = ec
	}
	r.readCount = 0
	r.ec.Put(r.readCountKey(), 0)

	logger.Debugf("SqlCursorReader '%s': executing query: %s", r.name, r.query)
	rows, err := r.db.QueryContext(ctx, r.query, r.args...)
	if err != nil {
		return exception.NewBatchError(readerModule, fmt.Sprintf("failed to execute query for SqlCursorReader '%s'", r.name), err, false, false)
	}
	r.rows = rows
	return nil
}

// Read returns the next item, or io.EOF once the result set is exhausted.
func (r *SqlCursorReader[T]) Read(ctx context.Context) (T, error) {
	var item T
	if r.rows == nil {
		return item, exception.NewBatchError(readerModule, fmt.Sprintf("SqlCursorReader '%s' is not open", r.name), errors.New("reader not initialized"), false, false)
	}
	if err := ctx.Err(); err != nil {
		return item, err
	}

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return item, exception.NewBatchError(readerModule, fmt.Sprintf("row iteration failed for SqlCursorReader '%s'", r.name), err, false, false)
		}
		return item, io.EOF
	}

	mapped, err := r.mapper(r.rows)
	if err != nil {
		return item, exception.NewBatchError(readerModule, fmt.Sprintf("failed to map row %d for SqlCursorReader '%s'", r.readCount+1, r.name), err, false, false)
	}
	r.readCount++
	r.ec.Put(r.readCountKey(), r.readCount)
	return mapped, nil
}

// ReadAll drains the reader. It does not call Open or Close.
func (r *SqlCursorReader[T]) ReadAll(ctx context.Context) ([]T, error) {
	var items []T
	for {
		item, err := r.Read(ctx)
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

// ReadCount returns the number of items read since Open.
func (r *SqlCursorReader[T]) ReadCount() int {
	return r.readCount
}

// Close releases the cursor.
func (r *SqlCursorReader[T]) Close(ctx context.Context) error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	if err != nil {
		return exception.NewBatchError(readerModule, fmt.Sprintf("failed to close rows for SqlCursorReader '%s'", r.name), err, false, false)
	}
	logger.Debugf("SqlCursorReader '%s': closed after %d rows.", r.name, r.readCount)
	return nil
}

// GetExecutionContext returns the reader's ExecutionContext.
func (r *SqlCursorReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return r.ec, nil
}

// SetExecutionContext replaces the reader's ExecutionContext.
func (r *SqlCursorReader[T]) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	r.ec = ec
	if n, ok := ec.GetInt(r.readCountKey()); ok {
		r.readCount = n
	}
	return nil
}

var _ port.ItemReader[struct{}] = (*SqlCursorReader[struct{}])(nil)
