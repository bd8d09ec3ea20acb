package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type repo struct{}

func Provide() donationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, donation *donationdomain.Donation) error {
	return db.WithContext(ctx).Create(donation).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*donationdomain.Donation, error) {
	var donation donationdomain.Donation
	err := db.WithContext(ctx).Where("id = ?", id).Take(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*donationdomain.Donation, error) {
	var donation donationdomain.Donation
	err := db.WithContext(ctx).Where("order_id = ?", orderID).Take(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter donationdomain.ListFilter) ([]donationdomain.Donation, int64, error) {
	query := db.WithContext(ctx).Model(&donationdomain.Donation{})
	if filter.CauseID != 0 {
		query = query.Where("cause_id = ?", filter.CauseID)
	}
	if filter.DonorID != 0 {
		query = query.Where("donor_id = ?", filter.DonorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DistributionStatus != "" {
		query = query.Where("distribution_status = ?", filter.DistributionStatus)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
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

	var items []donationdomain.Donation
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

func (r *repo) CompareAndSetStatus(
	ctx context.Context,
	db *gorm.DB,
	id snowflake.ID,
	from, to donationdomain.Status,
	fields map[string]any,
) (bool, error) {
	updates := map[string]any{"status": to}
	for key, value := range fields {
		updates[key] = value
	}

	result := db.WithContext(ctx).
		Model(&donationdomain.Donation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&donationdomain.Donation{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) UpdatePaymentByOrderID(ctx context.Context, db *gorm.DB, orderID string, fields map[string]any, at time.Time) (bool, error) {
	updates := map[string]any{"updated_at": at}
	for key, value := range fields {
		updates[key] = value
	}
	result := db.WithContext(ctx).
		Model(&donationdomain.Donation{}).
		Where("order_id = ? AND status = ?", orderID, donationdomain.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
