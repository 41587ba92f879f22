// Package gorm implements the database adapter on top of gorm. Concrete dialects
// register themselves from the sqlite, postgres and mysql subpackages.
package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/trendline/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/trendline/pkg/batch/adapter/database/config"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"

	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// NewGormLogger creates a gorm logger writing through the framework logger.
// level follows the framework names; anything unknown is silent.
func NewGormLogger(level string) gorm_logger.Interface {
	var gormLevel gorm_logger.LogLevel
	switch strings.ToUpper(level) {
	case "DEBUG":
		gormLevel = gorm_logger.Info
	case "INFO", "WARN":
		gormLevel = gorm_logger.Warn
	case "ERROR":
		gormLevel = gorm_logger.Error
	default:
		gormLevel = gorm_logger.Silent
	}

	return gorm_logger.New(
		NewGormWriter(),
		gorm_logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter forwards gorm log lines to the framework logger.
// SQL traces go to DEBUG, everything else to WARN.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gorm_logger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isSQLTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Warnf("[GORM] %s", msg)
}

func isSQLTrace(msg string) bool {
	upper := strings.ToUpper(msg)
	return strings.Contains(msg, "[") && strings.Contains(msg, "]") &&
		(strings.Contains(upper, "SELECT") || strings.Contains(upper, "INSERT") ||
			strings.Contains(upper, "UPDATE") || strings.Contains(upper, "DELETE"))
}

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	db    *gorm.DB
	sqlDB *sql.DB
	cfg   dbconfig.DatabaseConfig
	name  string
}

// NewGormDBAdapter wraps an open gorm session.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB for '%s': %w", name, err)
	}
	return &GormDBAdapter{db: db, sqlDB: sqlDB, cfg: cfg, name: name}, nil
}

// GetGormDB returns the underlying *gorm.DB instance.
func (a *GormDBAdapter) GetGormDB() *gorm.DB {
	return a.db
}

// Close closes the connection pool.
func (a *GormDBAdapter) Close() error {
	if a.sqlDB == nil {
		return nil
	}
	logger.Debugf("Closing database connection '%s'...", a.name)
	return a.sqlDB.Close()
}

// Type returns the configured database type.
func (a *GormDBAdapter) Type() string {
	return a.cfg.Type
}

// Name returns the configured connection name.
func (a *GormDBAdapter) Name() string {
	return a.name
}

// Config returns the connection settings.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// GetSQLDB returns the underlying *sql.DB.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil for connection '%s'", a.name)
	}
	return a.sqlDB, nil
}

// RefreshConnection pings the pool.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection '%s' is not initialized", a.name)
	}
	return a.sqlDB.PingContext(ctx)
}

// HasTable reports whether table exists, using the dialect's migrator.
func (a *GormDBAdapter) HasTable(ctx context.Context, table string) (bool, error) {
	return a.db.WithContext(ctx).Migrator().HasTable(table), nil
}

// CountRows counts the rows of table.
func (a *GormDBAdapter) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := a.db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
