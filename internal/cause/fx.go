package cause

import (
	"github.com/smallbiznis/donasi/internal/cause/repository"
	"github.com/smallbiznis/donasi/internal/cause/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cause.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
