package warehouse

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the warehouse manager and builds the dataset before
// the HTTP server starts accepting traffic.
var Module = fx.Module("warehouse",
	fx.Provide(NewManager),
	fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return m.EnsureReady(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return m.Close()
			},
		})
	}),
)
