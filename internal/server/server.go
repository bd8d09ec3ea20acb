package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	"github.com/smallbiznis/donasi/internal/observability/logger"
	"github.com/smallbiznis/donasi/internal/observability/metrics"
	"github.com/smallbiznis/donasi/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
	transparencydomain "github.com/smallbiznis/donasi/internal/transparency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)

// Server holds the HTTP handlers and the services they call.
type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB

	causeSvc        causedomain.Service
	donationSvc     donationdomain.Service
	paymentSvc      paymentdomain.Service
	transparencySvc transparencydomain.Service
	auditSvc        auditdomain.Service
	reportSvc       reportdomain.Service
	checkout        paymentdomain.CheckoutClient

	webhookLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Engine *gin.Engine
	Config config.Config
	Log    *zap.Logger
	DB     *gorm.DB

	CauseSvc        causedomain.Service
	DonationSvc     donationdomain.Service
	PaymentSvc      paymentdomain.Service
	TransparencySvc transparencydomain.Service
	AuditSvc        auditdomain.Service
	ReportSvc       reportdomain.Service
	Checkout        paymentdomain.CheckoutClient `optional:"true"`
	Clock           clock.Clock                  `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	limit := p.Config.HTTP.WebhookRateLimit
	if limit <= 0 {
		limit = 120
	}
	return &Server{
		engine:          p.Engine,
		cfg:             p.Config,
		log:             p.Log.Named("http"),
		db:              p.DB,
		causeSvc:        p.CauseSvc,
		donationSvc:     p.DonationSvc,
		paymentSvc:      p.PaymentSvc,
		transparencySvc: p.TransparencySvc,
		auditSvc:        p.AuditSvc,
		reportSvc:       p.ReportSvc,
		checkout:        p.Checkout,
		webhookLimiter:  newRateLimiter(limit, time.Minute, defaultLimiterMaxKeys, p.Clock),
	}
}

type EngineParams struct {
	fx.In

	Config      config.Config
	Log         *zap.Logger
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// NewEngine builds the gin engine with the request id, tracing, metrics and access log
// middleware installed. Forwarding headers are only honoured from the configured
// trusted proxies, so the client IP cannot be spoofed by a direct caller.
func NewEngine(p EngineParams) (*gin.Engine, error) {
	if mode := strings.TrimSpace(p.Config.HTTP.Mode); mode != "" {
		gin.SetMode(mode)
	}

	engine := gin.New()
	var proxies []string
	for _, proxy := range p.Config.HTTP.TrustedProxies {
		if proxy = strings.TrimSpace(proxy); proxy != "" {
			proxies = append(proxies, proxy)
		}
	}
	if err := engine.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    p.Log,
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(tracing.GinMiddleware(p.Config.AppName))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	engine.Use(requestContext())
	engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
	return engine, nil
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RunHTTP binds the listener on start and drains in-flight requests on stop.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
