package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/seed"
	"github.com/smallbiznis/donasi/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := newServeApp(configPath(cmd))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

// runOnce starts a short-lived app, lets invokes do their work and stops it again.
func runOnce(ctx context.Context, opts ...fx.Option) error {
	app := fx.New(append(opts, fx.NopLogger)...)
	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(ctx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(),
				baseOptions(configPath(cmd)),
				fx.Invoke(runMigrations),
			)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample causes into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(),
				baseOptions(configPath(cmd)),
				fx.Invoke(runMigrations),
				domainOptions(),
				fx.Invoke(func(conn *gorm.DB, causes causedomain.Service, clk clock.Clock, log *zap.Logger) error {
					_, err := seed.EnsureSampleCauses(cmd.Context(), conn, causes, clk.Now(), log)
					return err
				}),
			)
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Sign a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			token, err := server.SignToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, snowflake.ID(id), role, ttl, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", server.RoleDonor, "Role claim (admin, auditor, donatur)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
