package metrics

import (
	"github.com/smallbiznis/donasi/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

// Config labels every metric with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

func NewConfig(cfg config.Config) Config {
	return Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	}
}

var highCardinalityKeys = map[attribute.Key]struct{}{
	"order_id":    {},
	"donation_id": {},
	"donor_id":    {},
	"request_id":  {},
}

// FilterAttributes drops attributes whose values are unbounded.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := highCardinalityKeys[attr.Key]; ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
