package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	PendingExpiry time.Duration
	Interval      time.Duration
	BatchSize     int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	Donations donationdomain.Service
	Clock     clock.Clock `optional:"true"`
}

// Scheduler expires pending donations whose checkout was abandoned. Gateway notifications
// normally close these out; the sweep only covers ones that never arrive.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	donations donationdomain.Service
	clock     clock.Clock
}

func New(p Params) *Scheduler {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Scheduler{
		db:  p.DB,
		log: p.Log.Named("scheduler"),
		cfg: Config{
			PendingExpiry: p.Cfg.Scheduler.PendingExpiry,
			Interval:      p.Cfg.Scheduler.Interval,
			BatchSize:     p.Cfg.Scheduler.BatchSize,
		}.withDefaults(),
		donations: p.Donations,
		clock:     clk,
	}
}

func (s *Scheduler) Enabled() bool {
	return s.cfg.PendingExpiry > 0
}

func (s *Scheduler) RunForever(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.ExpirePendingDonations(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("expire pending donations failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpirePendingDonations expires one batch of pending donations created before the
// expiry cutoff and returns how many were expired.
func (s *Scheduler) ExpirePendingDonations(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	ids, err := s.fetchStalePending(ctx, s.clock.Now().Add(-s.cfg.PendingExpiry))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		_, err := s.donations.MarkExpired(ctx, id)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, donationdomain.ErrAlreadyVerified),
			errors.Is(err, donationdomain.ErrAlreadyFinalized),
			errors.Is(err, donationdomain.ErrInvalidTransition):
			// settled by a notification between fetch and update
		default:
			return expired, err
		}
	}
	if expired > 0 {
		s.log.Info("expired pending donations", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *Scheduler) fetchStalePending(ctx context.Context, cutoff time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).
		Model(&donationdomain.Donation{}).
		Where("status = ? AND created_at < ?", donationdomain.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(s.cfg.BatchSize).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
