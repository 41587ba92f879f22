package usecase

import (
	"go.uber.org/fx"
)

// Module is the Fx module for the JobLauncher and JobOperator.
var Module = fx.Options(
	fx.Provide(NewSimpleJobLauncher),
	fx.Provide(
		func(launcher *SimpleJobLauncher) JobLauncher { return launcher },
		func(launcher *SimpleJobLauncher) JobOperator { return launcher },
	),
)
