package report

import (
	"github.com/smallbiznis/donasi/internal/events"
	"github.com/smallbiznis/donasi/internal/report/repository"
	"github.com/smallbiznis/donasi/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(
		fx.Annotate(
			service.NewCacheInvalidator,
			fx.As(new(events.Handler)),
			fx.ResultTags(`group:"donation_event_handlers"`),
		),
	),
)
