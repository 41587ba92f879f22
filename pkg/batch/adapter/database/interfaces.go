// Package database defines the database adapter contracts.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/trendline/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/trendline/pkg/batch/core/adapter"
)

// DBConnection is a named, pooled database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection

	// Config returns the settings this connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB for raw cursor reads.
	GetSQLDB() (*sql.DB, error)
	// HasTable reports whether the named table exists.
	HasTable(ctx context.Context, table string) (bool, error)
	// CountRows counts the rows of a table.
	CountRows(ctx context.Context, table string) (int64, error)
	// RefreshConnection pings the pool.
	RefreshConnection(ctx context.Context) error
}

// DBProvider opens and caches connections for one database type.
type DBProvider interface {
	// GetConnection returns the cached connection or opens a new one.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and reopens the named connection.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider.
	Type() string
}

// DBConnectionResolver resolves a configured connection name to a live connection.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProviderGroup is the Fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"
