package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donasi/internal/audit"
	"github.com/smallbiznis/donasi/internal/cause"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/db"
	"github.com/smallbiznis/donasi/internal/donation"
	"github.com/smallbiznis/donasi/internal/events"
	"github.com/smallbiznis/donasi/internal/fund"
	"github.com/smallbiznis/donasi/internal/migration"
	"github.com/smallbiznis/donasi/internal/observability"
	"github.com/smallbiznis/donasi/internal/payment"
	"github.com/smallbiznis/donasi/internal/report"
	"github.com/smallbiznis/donasi/internal/scheduler"
	"github.com/smallbiznis/donasi/internal/seed"
	"github.com/smallbiznis/donasi/internal/server"
	"github.com/smallbiznis/donasi/internal/transparency"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterSnowflake provides the id generator shared by every service.
func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func baseOptions(path string) fx.Option {
	return fx.Options(
		fx.Supply(config.Path(path)),
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
	)
}

func domainOptions() fx.Option {
	return fx.Options(
		events.Module,
		audit.Module,
		fund.Module,
		cause.Module,
		donation.Module,
		payment.Module,
		transparency.Module,
		report.Module,
	)
}

func runMigrations(conn *gorm.DB, log *zap.Logger) error {
	if err := migration.RunMigrations(conn); err != nil {
		return err
	}
	log.Info("database migrations applied")
	return nil
}

func seedIfEnabled(lc fx.Lifecycle, cfg config.Config, conn *gorm.DB, causes causedomain.Service, clk clock.Clock, log *zap.Logger) {
	if !cfg.Bootstrap.SeedSampleData {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := seed.EnsureSampleCauses(ctx, conn, causes, clk.Now(), log)
			return err
		},
	})
}

func newServeApp(path string) *fx.App {
	return fx.New(
		baseOptions(path),
		fx.Invoke(runMigrations),
		domainOptions(),
		fx.Invoke(seedIfEnabled),
		scheduler.Module,
		server.Module,
	)
}
