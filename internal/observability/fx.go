package observability

import (
	"github.com/smallbiznis/donasi/internal/observability/logger"
	"github.com/smallbiznis/donasi/internal/observability/metrics"
	"github.com/smallbiznis/donasi/internal/observability/tracing"
	"go.uber.org/fx"
)

// Module wires logging first so tracing and metrics can log their setup.
var Module = fx.Module("observability",
	logger.Module,
	tracing.Module,
	metrics.Module,
)
