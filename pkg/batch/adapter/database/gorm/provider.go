package gorm

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"

	"github.com/tigerroll/trendline/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/trendline/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/trendline/pkg/batch/core/config"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// DialectorFactory turns a decoded connection config into a gorm.Dialector.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var dialectors sync.Map // database type -> DialectorFactory

// RegisterDialector makes dbType available to every BaseProvider. Dialect packages
// call it from init; a second registration replaces the first.
func RegisterDialector(dbType string, factory DialectorFactory) {
	if _, loaded := dialectors.Swap(dbType, factory); loaded {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
}

// GetDialectorFactory returns the factory registered for dbType.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	f, ok := dialectors.Load(dbType)
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return f.(DialectorFactory), nil
}

// DecodeDatabaseConfig reads surfin.database.<name> from cfg.
func DecodeDatabaseConfig(cfg *config.Config, name string) (dbconfig.DatabaseConfig, error) {
	var out dbconfig.DatabaseConfig
	raw, ok := cfg.Surfin.AdaptorConfigs[name]
	if !ok {
		return out, fmt.Errorf("database configuration '%s' not found under surfin.database", name)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true, // ports and pool sizes may arrive as strings after ${VAR} expansion
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return out, nil
}

// BaseProvider opens and caches the gorm connections of one database type.
// The dialect packages wrap it.
type BaseProvider struct {
	cfg    *config.Config
	dbType string

	mu    sync.Mutex
	conns map[string]database.DBConnection
}

// NewBaseProvider creates a BaseProvider for dbType.
func NewBaseProvider(cfg *config.Config, dbType string) *BaseProvider {
	return &BaseProvider{cfg: cfg, dbType: dbType, conns: make(map[string]database.DBConnection)}
}

func (p *BaseProvider) Type() string {
	return p.dbType
}

// GetConnection returns the cached connection for name, opening it on first use.
func (p *BaseProvider) GetConnection(name string) (database.DBConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[name]; ok {
		return conn, nil
	}
	return p.open(name)
}

// ForceReconnect drops the cached connection for name and opens a fresh one.
func (p *BaseProvider) ForceReconnect(name string) (database.DBConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.conns[name]; ok {
		delete(p.conns, name)
		if err := old.Close(); err != nil {
			logger.Warnf("Failed to close existing connection '%s' before reconnect: %v", name, err)
		}
	}
	conn, err := p.open(name)
	if err != nil {
		return nil, err
	}
	logger.Infof("Re-established DB connection: %s (%s)", name, p.dbType)
	return conn, nil
}

// open must be called with p.mu held.
func (p *BaseProvider) open(name string) (database.DBConnection, error) {
	dbConfig, err := DecodeDatabaseConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if dbConfig.Type != p.dbType {
		return nil, fmt.Errorf("provider type mismatch: expected '%s', got '%s' for connection '%s'", p.dbType, dbConfig.Type, name)
	}

	factory, err := GetDialectorFactory(dbConfig.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", dbConfig.Type, err)
	}

	// The pipeline only reads; no implicit transaction around each statement.
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(p.cfg.Surfin.System.Logging.Level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection '%s': %w", name, err)
	}
	if err := applyPool(gormDB, dbConfig.Pool); err != nil {
		return nil, err
	}

	conn, err := NewGormDBAdapter(gormDB, dbConfig, name)
	if err != nil {
		return nil, err
	}
	p.conns[name] = conn
	logger.Infof("Established new DB connection: %s (%s)", name, p.dbType)
	return conn, nil
}

func applyPool(db *gorm.DB, pool dbconfig.PoolConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return nil
}

// CloseAll closes every cached connection and reports all close failures.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.conns {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close connection '%s': %v", name, err)
			result = multierror.Append(result, fmt.Errorf("connection '%s': %w", name, err))
		}
		delete(p.conns, name)
	}
	return result.ErrorOrNil()
}

var _ database.DBProvider = (*BaseProvider)(nil)
