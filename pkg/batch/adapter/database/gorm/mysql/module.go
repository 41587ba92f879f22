package mysql

import "go.uber.org/fx"

// Module exports the MySQL DBProvider into the db_providers group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"db_providers"`),
		),
	),
)
