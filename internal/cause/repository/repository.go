package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type repo struct{}

func Provide() causedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cause *causedomain.Cause) error {
	return db.WithContext(ctx).Create(cause).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*causedomain.Cause, error) {
	var cause causedomain.Cause
	err := db.WithContext(ctx).Where("id = ?", id).Take(&cause).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cause, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter causedomain.ListFilter) ([]causedomain.Cause, int64, error) {
	query := db.WithContext(ctx).Model(&causedomain.Cause{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AuditStatus != "" {
		query = query.Where("audit_status = ?", filter.AuditStatus)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var items []causedomain.Cause
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(max(0, filter.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (bool, error) {
	result := db.WithContext(ctx).
		Model(&causedomain.Cause{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&causedomain.Cause{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountDonations reads the donations table directly; the donation package depends on
// this one, not the other way around.
func (r *repo) CountDonations(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("donations").
		Where("cause_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repo) CompareAndSetAudit(
	ctx context.Context,
	db *gorm.DB,
	id snowflake.ID,
	from []causedomain.AuditStatus,
	fields map[string]any,
) (bool, error) {
	result := db.WithContext(ctx).
		Model(&causedomain.Cause{}).
		Where("id = ? AND audit_status IN ?", id, from).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertProgressUpdate(ctx context.Context, db *gorm.DB, update *causedomain.ProgressUpdate) error {
	return db.WithContext(ctx).Create(update).Error
}

func (r *repo) ListProgressUpdates(ctx context.Context, db *gorm.DB, causeID snowflake.ID) ([]causedomain.ProgressUpdate, error) {
	var items []causedomain.ProgressUpdate
	err := db.WithContext(ctx).
		Where("cause_id = ?", causeID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	return items, err
}
