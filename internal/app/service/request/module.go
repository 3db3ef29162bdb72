package request

import "go.uber.org/fx"

// Module exposes the subscription request queue via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
