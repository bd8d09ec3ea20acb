package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Category    string
	Status      CauseStatus
	AuditStatus AuditStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, cause *Cause) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Cause, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Cause, int64, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	CountDonations(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)

	// CompareAndSetAudit moves audit_status from any of the given states and reports
	// whether this call performed the transition.
	CompareAndSetAudit(ctx context.Context, db *gorm.DB, id snowflake.ID, from []AuditStatus, fields map[string]any) (bool, error)

	InsertProgressUpdate(ctx context.Context, db *gorm.DB, update *ProgressUpdate) error
	ListProgressUpdates(ctx context.Context, db *gorm.DB, causeID snowflake.ID) ([]ProgressUpdate, error)
}
