package logger

import (
	"context"

	"go.uber.org/fx"
)

// Module is an Fx module that routes Fx events through the framework logger
// and flushes buffered entries on application stop.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
	fx.Invoke(func(lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				Sync()
				return nil
			},
		})
	}),
)
