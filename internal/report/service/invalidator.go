package service

import (
	"context"

	"github.com/smallbiznis/donasi/internal/events"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
)

// CacheInvalidator drops cached dashboard aggregates whenever funds move. Changes that
// do not go through the outbox (distribution status, audit decisions) are bounded by
// the cache TTL.
type CacheInvalidator struct {
	svc reportdomain.Service
}

func NewCacheInvalidator(svc reportdomain.Service) *CacheInvalidator {
	return &CacheInvalidator{svc: svc}
}

func (h *CacheInvalidator) Handle(_ context.Context, event events.DonationEvent) error {
	switch event.EventType {
	case events.EventDonationVerified,
		events.EventDonationFailed,
		events.EventDonationExpired,
		events.EventDisbursementApplied,
		events.EventDisbursementRetracted:
		h.svc.InvalidateStats()
	}
	return nil
}
