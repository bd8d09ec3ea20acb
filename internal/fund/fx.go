package fund

import (
	"github.com/smallbiznis/donasi/internal/fund/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fund.service",
	fx.Provide(service.NewService),
)
