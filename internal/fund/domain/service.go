package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Updater applies verified donations and disbursements to a cause's running totals.
//
// Every method takes the caller's transaction. ApplyVerifiedDonation does not look at the
// donation at all: the caller must hold the result of a successful pending -> verified
// compare-and-set in the same transaction, otherwise an amount can be counted twice.
type Updater interface {
	ApplyVerifiedDonation(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, amount int64) error
	ApplyDisbursement(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, amount int64) error
	RetractDisbursement(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, amount int64) error
	AdjustDisbursement(ctx context.Context, tx *gorm.DB, causeID snowflake.ID, delta int64) error
	Balance(ctx context.Context, tx *gorm.DB, causeID snowflake.ID) (Balance, error)
}

// Service is the package alias for Updater.
type Service = Updater

// Balance is a snapshot of a cause's fund counters.
type Balance struct {
	CauseID         snowflake.ID
	CurrentAmount   int64
	DisbursedAmount int64
	TotalDonors     int64
}

// Remaining is the amount received but not yet disbursed.
func (b Balance) Remaining() int64 {
	return b.CurrentAmount - b.DisbursedAmount
}

var (
	ErrCauseNotFound     = errors.New("cause_not_found")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrNegativeBalance   = errors.New("negative_balance")
)
