package metrics

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(NewConfig),
	fx.Provide(DonationWithConfig),
	fx.Provide(func(cfg Config) (*HTTPMetrics, error) {
		return NewHTTPMetrics(cfg, otel.GetMeterProvider())
	}),
)
