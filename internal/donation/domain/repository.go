package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, donation *Donation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Donation, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Donation, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Donation, int64, error)

	// CompareAndSetStatus moves a donation from one status to another and reports whether
	// this call performed the transition.
	CompareAndSetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, fields map[string]any) (bool, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	UpdatePaymentByOrderID(ctx context.Context, db *gorm.DB, orderID string, fields map[string]any, at time.Time) (bool, error)
}
