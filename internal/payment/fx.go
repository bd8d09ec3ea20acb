package payment

import (
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/payment/adapters"
	"github.com/smallbiznis/donasi/internal/payment/adapters/midtrans"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	"github.com/smallbiznis/donasi/internal/payment/repository"
	"github.com/smallbiznis/donasi/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) *adapters.Registry {
		return adapters.NewRegistry(midtrans.NewAdapter(cfg.Midtrans.ServerKey))
	}),
	fx.Provide(func(cfg config.Config, clk clock.Clock) paymentdomain.CheckoutClient {
		return midtrans.NewSnapClient(midtrans.SnapConfig{
			ServerKey:     cfg.Midtrans.ServerKey,
			Production:    cfg.Midtrans.IsProduction,
			BaseURL:       cfg.Midtrans.SnapBaseURL,
			PaymentWindow: cfg.Midtrans.PaymentWindow,
		}, clk, nil)
	}),
	fx.Provide(service.NewService),
)
