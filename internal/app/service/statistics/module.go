package statistics

import "go.uber.org/fx"

// Module provides the statistics service and runs the snapshot job.
var Module = fx.Options(
	fx.Provide(New, NewJob),
	fx.Invoke(registerJob),
)
