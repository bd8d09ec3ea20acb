package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/db"
	funddomain "github.com/smallbiznis/donasi/internal/fund/domain"
	"github.com/smallbiznis/donasi/internal/migration"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyVerifiedDonationIncrementsCounters(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 0, 0)

	ctx := context.Background()
	for _, amount := range []int64{100_000, 25_000} {
		if err := svc.ApplyVerifiedDonation(ctx, conn, causeID, amount); err != nil {
			t.Fatalf("apply donation: %v", err)
		}
	}

	balance, err := svc.Balance(ctx, conn, causeID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.CurrentAmount != 125_000 {
		t.Fatalf("expected current 125000, got %d", balance.CurrentAmount)
	}
	if balance.TotalDonors != 2 {
		t.Fatalf("expected 2 donors, got %d", balance.TotalDonors)
	}
}

func TestApplyVerifiedDonationRejectsUnknownCause(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	err := svc.ApplyVerifiedDonation(context.Background(), conn, snowflake.ID(404), 1000)
	if !errors.Is(err, funddomain.ErrCauseNotFound) {
		t.Fatalf("expected ErrCauseNotFound, got %v", err)
	}
}

func TestApplyVerifiedDonationRejectsNonPositiveAmount(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 0, 0)

	if err := svc.ApplyVerifiedDonation(context.Background(), conn, causeID, 0); !errors.Is(err, funddomain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestApplyDisbursementWithinBalance(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 500_000, 100_000)

	ctx := context.Background()
	if err := svc.ApplyDisbursement(ctx, conn, causeID, 400_000); err != nil {
		t.Fatalf("apply disbursement: %v", err)
	}
	assertBalance(t, svc, conn, causeID, 500_000, 500_000)
}

func TestApplyDisbursementRejectsOverdraw(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 500_000, 0)

	err := svc.ApplyDisbursement(context.Background(), conn, causeID, 600_000)
	if !errors.Is(err, funddomain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	assertBalance(t, svc, conn, causeID, 500_000, 0)
}

func TestRetractDisbursementNeverGoesNegative(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 500_000, 50_000)

	ctx := context.Background()
	err := svc.RetractDisbursement(ctx, conn, causeID, 60_000)
	if !errors.Is(err, funddomain.ErrNegativeBalance) {
		t.Fatalf("expected ErrNegativeBalance, got %v", err)
	}
	assertBalance(t, svc, conn, causeID, 500_000, 50_000)

	if err := svc.RetractDisbursement(ctx, conn, causeID, 50_000); err != nil {
		t.Fatalf("retract disbursement: %v", err)
	}
	assertBalance(t, svc, conn, causeID, 500_000, 0)
}

func TestDisbursementRejectsNegativeAmounts(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 500_000, 0)

	ctx := context.Background()
	if err := svc.ApplyDisbursement(ctx, conn, causeID, -1); !errors.Is(err, funddomain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for apply, got %v", err)
	}
	if err := svc.RetractDisbursement(ctx, conn, causeID, -1); !errors.Is(err, funddomain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for retract, got %v", err)
	}
}

func TestAdjustDisbursementUnknownCause(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})

	err := svc.AdjustDisbursement(context.Background(), conn, snowflake.ID(404), 10)
	if !errors.Is(err, funddomain.ErrCauseNotFound) {
		t.Fatalf("expected ErrCauseNotFound, got %v", err)
	}
}

func TestAdjustDisbursementRollsBackWithTransaction(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 300_000, 0)

	ctx := context.Background()
	sentinel := errors.New("abort")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.ApplyDisbursement(ctx, tx, causeID, 200_000); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	assertBalance(t, svc, conn, causeID, 300_000, 0)
}

func TestBalanceInvariantAfterMixedSequence(t *testing.T) {
	conn := setupFundTestDB(t)
	svc := NewService(ServiceParam{Log: zap.NewNop()})
	causeID := insertCause(t, conn, 0, 0)

	ctx := context.Background()
	steps := []func() error{
		func() error { return svc.ApplyVerifiedDonation(ctx, conn, causeID, 200_000) },
		func() error { return svc.ApplyDisbursement(ctx, conn, causeID, 150_000) },
		func() error { return svc.ApplyDisbursement(ctx, conn, causeID, 100_000) },
		func() error { return svc.AdjustDisbursement(ctx, conn, causeID, -200_000) },
		func() error { return svc.ApplyVerifiedDonation(ctx, conn, causeID, 50_000) },
		func() error { return svc.ApplyDisbursement(ctx, conn, causeID, 100_000) },
	}
	for _, step := range steps {
		_ = step()
		balance, err := svc.Balance(ctx, conn, causeID)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if err := funddomain.ValidateBalance(balance.CurrentAmount, balance.DisbursedAmount); err != nil {
			t.Fatalf("invariant broken: current=%d disbursed=%d", balance.CurrentAmount, balance.DisbursedAmount)
		}
	}
	assertBalance(t, svc, conn, causeID, 250_000, 250_000)
}

func setupFundTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "fund.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.RunMigrations(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

var causeSeq int64

func insertCause(t *testing.T, conn *gorm.DB, current, disbursed int64) snowflake.ID {
	t.Helper()
	causeSeq++
	now := time.Now().UTC()
	cause := causedomain.Cause{
		ID:              snowflake.ID(1000 + causeSeq),
		Title:           "Sumur bersih",
		Description:     "Pembangunan sumur",
		Category:        "infrastruktur",
		TargetAmount:    1_000_000,
		CurrentAmount:   current,
		DisbursedAmount: disbursed,
		Deadline:        now.Add(30 * 24 * time.Hour),
		Status:          causedomain.CauseStatusActive,
		CreatedBy:       1,
		AuditStatus:     causedomain.AuditStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := conn.Create(&cause).Error; err != nil {
		t.Fatalf("insert cause: %v", err)
	}
	return cause.ID
}

func assertBalance(t *testing.T, svc funddomain.Service, conn *gorm.DB, causeID snowflake.ID, current, disbursed int64) {
	t.Helper()
	balance, err := svc.Balance(context.Background(), conn, causeID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.CurrentAmount != current || balance.DisbursedAmount != disbursed {
		t.Fatalf("expected current=%d disbursed=%d, got current=%d disbursed=%d",
			current, disbursed, balance.CurrentAmount, balance.DisbursedAmount)
	}
}
