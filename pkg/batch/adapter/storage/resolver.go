package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/trendline/pkg/batch/core/config"
	"github.com/tigerroll/trendline/pkg/batch/support/util/exception"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

const resolverModule = "StorageConnectionResolver"

// ConnectionResolver dispatches a connection name to the provider of its configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// ConnectionResolverParams lists the resolver's dependencies.
type ConnectionResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *coreConfig.Config
}

// NewConnectionResolver creates a new ConnectionResolver.
func NewConnectionResolver(p ConnectionResolverParams) *ConnectionResolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &ConnectionResolver{providers: providers, cfg: p.Cfg}
}

// ResolveStorageConnection returns the connection configured under name.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	sc, err := DecodeStorageConfig(r.cfg, name)
	if err != nil {
		return nil, exception.NewConfigurationError(resolverModule, "unknown storage reference", err)
	}
	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, exception.NewConfigurationError(resolverModule,
			fmt.Sprintf("no storage provider found for type '%s' (connection '%s')", sc.Type, name), nil)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, exception.NewResourceError(resolverModule,
			fmt.Sprintf("failed to get storage connection '%s' from provider '%s'", name, sc.Type), err)
	}
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for typ, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			result = multierror.Append(result, fmt.Errorf("storage provider '%s': %w", typ, err))
		}
	}
	logger.Debugf("Storage providers closed.")
	return result.ErrorOrNil()
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)
