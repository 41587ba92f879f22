package postgres

import "go.uber.org/fx"

// Module exports the PostgreSQL DBProvider into the db_providers group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"db_providers"`),
		),
	),
)
