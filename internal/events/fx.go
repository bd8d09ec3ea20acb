package events

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("events.outbox",
	fx.Provide(NewOutbox),
	fx.Provide(DefaultRelayConfig),
	fx.Provide(NewRelay),
	fx.Invoke(runRelay),
)

func runRelay(lc fx.Lifecycle, relay *Relay) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go relay.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
