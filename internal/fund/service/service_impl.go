package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donasi/internal/clock"
	funddomain "github.com/smallbiznis/donasi/internal/fund/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const causesTable = "causes"

type Service struct {
	log   *zap.Logger
	clock clock.Clock
}

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock `optional:"true"`
}

func NewService(p ServiceParam) funddomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:   p.Log.Named("fund.service"),
		clock: clk,
	}
}

func (s *Service) ApplyVerifiedDonation(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, amount int64) error {
	if amount <= 0 {
		return funddomain.ErrInvalidAmount
	}

	result := tx.WithContext(ctx).
		Table(causesTable).
		Where("id = ?", causeID).
		Updates(map[string]any{
			"current_amount": gorm.Expr("current_amount + ?", amount),
			"total_donors":   gorm.Expr("total_donors + 1"),
			"updated_at":     s.clock.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("apply verified donation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return funddomain.ErrCauseNotFound
	}

	s.log.Debug("applied verified donation",
		zap.String("cause_id", causeID.String()),
		zap.Int64("amount", amount),
	)
	return nil
}

func (s *Service) ApplyDisbursement(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, amount int64) error {
	if amount < 0 {
		return funddomain.ErrInvalidAmount
	}
	return s.AdjustDisbursement(ctx, tx, causeID, amount)
}

func (s *Service) RetractDisbursement(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, amount int64) error {
	if amount < 0 {
		return funddomain.ErrInvalidAmount
	}
	return s.AdjustDisbursement(ctx, tx, causeID, -amount)
}

// AdjustDisbursement moves disbursed_amount by delta in a single guarded statement.
// The row is only touched when the result stays within [0, current_amount].
func (s *Service) AdjustDisbursement(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, delta int64) error {
	if delta == 0 {
		_, err := s.Balance(ctx, tx, causeID)
		return err
	}

	result := tx.WithContext(ctx).
		Table(causesTable).
		Where("id = ?", causeID).
		Where("disbursed_amount + ? >= 0", delta).
		Where("disbursed_amount + ? <= current_amount", delta).
		Updates(map[string]any{
			"disbursed_amount": gorm.Expr("disbursed_amount + ?", delta),
			"updated_at":       s.clock.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("adjust disbursement: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	balance, err := s.Balance(ctx, tx, causeID)
	if err != nil {
		return err
	}
	err = funddomain.ValidateDisbursementDelta(balance.CurrentAmount, balance.DisbursedAmount, delta)
	if err == nil {
		// The guard rejected the row but the snapshot accepts it: a concurrent writer
		// moved the counters between the two statements.
		err = funddomain.ErrInsufficientFunds
		if delta < 0 {
			err = funddomain.ErrNegativeBalance
		}
	}

	s.log.Info("disbursement rejected",
		zap.String("cause_id", causeID.String()),
		zap.Int64("delta", delta),
		zap.Int64("current_amount", balance.CurrentAmount),
		zap.Int64("disbursed_amount", balance.DisbursedAmount),
		zap.Error(err),
	)
	return err
}

func (s *Service) Balance(ctx context.Context, tx *gorm.DB, causeID snowflake.ID) (funddomain.Balance, error) {
	var row struct {
		ID              snowflake.ID
		CurrentAmount   int64
		DisbursedAmount int64
		TotalDonors     int64
	}
	err := tx.WithContext(ctx).
		Table(causesTable).
		Select("id, current_amount, disbursed_amount, total_donors").
		Where("id = ?", causeID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return funddomain.Balance{}, funddomain.ErrCauseNotFound
		}
		return funddomain.Balance{}, fmt.Errorf("load balance: %w", err)
	}

	return funddomain.Balance{
		CauseID:         row.ID,
		CurrentAmount:   row.CurrentAmount,
		DisbursedAmount: row.DisbursedAmount,
		TotalDonors:     row.TotalDonors,
	}, nil
}

var _ funddomain.Updater = (*Service)(nil)
