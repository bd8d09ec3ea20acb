package adapters

import (
	"strings"

	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
)

// Registry resolves notification adapters by provider name.
type Registry struct {
	adapters map[string]paymentdomain.PaymentAdapter
}

func NewRegistry(adapters ...paymentdomain.PaymentAdapter) *Registry {
	registry := &Registry{adapters: make(map[string]paymentdomain.PaymentAdapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry.adapters[normalize(adapter.Provider())] = adapter
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	_, ok := r.Adapter(provider)
	return ok
}

func (r *Registry) Adapter(provider string) (paymentdomain.PaymentAdapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[normalize(provider)]
	return adapter, ok
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
