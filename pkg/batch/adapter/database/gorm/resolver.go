package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/trendline/pkg/batch/adapter/database"
	config "github.com/tigerroll/trendline/pkg/batch/core/config"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const resolverModule = "DBConnectionResolver"

// GormDBConnectionResolver is the gorm implementation of database.DBConnectionResolver.
type GormDBConnectionResolver struct {
	dbProviders map[string]database.DBProvider // keyed by database type
	cfg         *config.Config
}

// GormDBConnectionResolverParams lists the resolver's dependencies.
type GormDBConnectionResolverParams struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"`
	Cfg         *config.Config
}

// NewGormDBConnectionResolver creates a new GormDBConnectionResolver.
func NewGormDBConnectionResolver(p GormDBConnectionResolverParams) *GormDBConnectionResolver {
	providerMap := make(map[string]database.DBProvider)
	for _, provider := range p.DBProviders {
		providerMap[provider.Type()] = provider
	}
	return &GormDBConnectionResolver{dbProviders: providerMap, cfg: p.Cfg}
}

// Providers returns the registered providers.
func (r *GormDBConnectionResolver) Providers() []database.DBProvider {
	providers := make([]database.DBProvider, 0, len(r.dbProviders))
	for _, p := range r.dbProviders {
		providers = append(providers, p)
	}
	return providers
}

// ResolveDBConnection returns a live connection for name, reconnecting once if the
// cached pool no longer answers a ping.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	dbConfig, err := DecodeDatabaseConfig(r.cfg, name)
	if err != nil {
		return nil, exception.NewConfigurationError(resolverModule, "unknown database reference", err)
	}

	provider, ok := r.dbProviders[dbConfig.Type]
	if !ok {
		return nil, exception.NewConfigurationError(resolverModule,
			"no DBProvider for type '"+dbConfig.Type+"' (connection '"+name+"')", nil)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, exception.NewResourceError(resolverModule, "failed to get connection '"+name+"'", err)
	}

	if pingErr := conn.RefreshConnection(ctx); pingErr != nil {
		logger.Warnf("DBConnectionResolver: Connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		reconnected, reconnectErr := provider.ForceReconnect(name)
		if reconnectErr != nil {
			return nil, exception.NewResourceError(resolverModule, "failed to reconnect connection '"+name+"'", reconnectErr)
		}
		logger.Infof("DBConnectionResolver: Successfully reconnected connection '%s'.", name)
		return reconnected, nil
	}
	return conn, nil
}

var _ database.DBConnectionResolver = (*GormDBConnectionResolver)(nil)
