package transparency

import (
	"github.com/smallbiznis/donasi/internal/transparency/repository"
	"github.com/smallbiznis/donasi/internal/transparency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transparency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
