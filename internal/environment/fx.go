package environment

import "go.uber.org/fx"

var Module = fx.Module("environment",
	fx.Provide(NewResolver),
)
