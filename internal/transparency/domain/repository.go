package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, report *TransparencyReport) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TransparencyReport, error)
	// FindByIDForUpdate locks the row on databases that support row locks.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TransparencyReport, error)
	Save(ctx context.Context, db *gorm.DB, report *TransparencyReport) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]TransparencyReport, int64, error)
	SumPublished(ctx context.Context, db *gorm.DB, filter ListFilter) (int64, error)
}
