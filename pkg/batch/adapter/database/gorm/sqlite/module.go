package sqlite

import (
	"go.uber.org/fx"
)

// Module exports the SQLite DBProvider into the db_providers group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"db_providers"`),
		),
	),
)
