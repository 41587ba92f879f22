package gorm

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/trendline/pkg/batch/adapter/database"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// Module provides the connection resolver. Concrete providers come from the
// dialect subpackages.
var Module = fx.Options(
	fx.Provide(
		NewGormDBConnectionResolver,
		func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r },
	),
	fx.Invoke(registerShutdownHook),
)

func registerShutdownHook(lc fx.Lifecycle, r *GormDBConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			var result *multierror.Error
			for _, p := range r.Providers() {
				if err := p.CloseAll(); err != nil {
					result = multierror.Append(result, err)
				}
			}
			logger.Debugf("Database providers closed.")
			return result.ErrorOrNil()
		},
	})
}
