package logger

import (
	"context"
	"strings"

	"github.com/smallbiznis/donasi/internal/config"
	obscontext "github.com/smallbiznis/donasi/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("logger",
	fx.Provide(New),
	fx.Invoke(registerGlobal),
)

// New builds the process logger from the observability config.
func New(cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if strings.EqualFold(cfg.Observability.LogFormat, "console") || !cfg.IsProduction() {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(cfg.Observability.LogLevel); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return log.With(
		zap.String("service", cfg.AppName),
		zap.String("env", cfg.Environment),
	), nil
}

func registerGlobal(lc fx.Lifecycle, log *zap.Logger) {
	restore := zap.ReplaceGlobals(log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			restore()
			return nil
		},
	})
}

// FromContext returns the global logger enriched with trace and request identifiers.
func FromContext(ctx context.Context) *zap.Logger {
	return With(zap.L(), ctx)
}

// With enriches log with the identifiers found in ctx.
func With(log *zap.Logger, ctx context.Context) *zap.Logger {
	if log == nil {
		log = zap.L()
	}
	if ctx == nil {
		return log
	}

	fields := make([]zap.Field, 0, 5)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if _, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		fields = append(fields, zap.String("actor_id", actorID))
	}
	if role := obscontext.RoleFromContext(ctx); role != "" {
		fields = append(fields, zap.String("role", role))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
