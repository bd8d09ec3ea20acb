package events

import (
	"context"
	"time"

	"github.com/smallbiznis/donasi/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler reacts to a published outbox event. Handlers must be idempotent: an event is
// delivered again when marking it published fails.
type Handler interface {
	Handle(ctx context.Context, event DonationEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event DonationEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event DonationEvent) error { return f(ctx, event) }

// RelayConfig controls the outbox relay loop.
type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:    50,
		PollInterval: 2 * time.Second,
	}
}

func (c RelayConfig) withDefaults() RelayConfig {
	defaults := DefaultRelayConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	return c
}

type RelayParams struct {
	fx.In

	Outbox   *Outbox
	Log      *zap.Logger
	Handlers []Handler   `group:"donation_event_handlers"`
	Config   RelayConfig `optional:"true"`
	Clock    clock.Clock `optional:"true"`
}

// Relay drains the outbox and hands each event to the registered handlers.
type Relay struct {
	outbox   *Outbox
	log      *zap.Logger
	handlers []Handler
	cfg      RelayConfig
	clock    clock.Clock
}

func NewRelay(p RelayParams) *Relay {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Relay{
		outbox:   p.Outbox,
		log:      p.Log.Named("events.relay"),
		handlers: p.Handlers,
		cfg:      p.Config.withDefaults(),
		clock:    clk,
	}
}

func (r *Relay) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Warn("outbox relay run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce delivers one batch and returns the number of events marked published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	rows, err := r.outbox.Pending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, row := range rows {
		failed := false
		for _, handler := range r.handlers {
			if err := handler.Handle(ctx, row); err != nil {
				r.log.Warn("outbox handler failed",
					zap.String("event_id", row.ID.String()),
					zap.String("event_type", row.EventType),
					zap.Error(err),
				)
				failed = true
			}
		}
		if failed {
			continue
		}

		ok, err := r.outbox.MarkPublished(ctx, row.ID, r.clock.Now())
		if err != nil {
			return published, err
		}
		if ok {
			published++
		}
	}
	return published, nil
}
