package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	transparencydomain "github.com/smallbiznis/donasi/internal/transparency/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type repo struct{}

func Provide() transparencydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, report *transparencydomain.TransparencyReport) error {
	return db.WithContext(ctx).Create(report).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*transparencydomain.TransparencyReport, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*transparencydomain.TransparencyReport, error) {
	query := db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(query, id)
}

func (r *repo) find(query *gorm.DB, id snowflake.ID) (*transparencydomain.TransparencyReport, error) {
	var report transparencydomain.TransparencyReport
	err := query.Where("id = ?", id).Take(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, report *transparencydomain.TransparencyReport) error {
	return db.WithContext(ctx).Save(report).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&transparencydomain.TransparencyReport{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter transparencydomain.ListFilter) ([]transparencydomain.TransparencyReport, int64, error) {
	query := applyFilter(db.WithContext(ctx).Model(&transparencydomain.TransparencyReport{}), filter)

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

	var items []transparencydomain.TransparencyReport
	err := query.
		Order("date DESC, id DESC").
		Limit(limit).
		Offset(max(0, filter.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) SumPublished(ctx context.Context, db *gorm.DB, filter transparencydomain.ListFilter) (int64, error) {
	filter.Status = transparencydomain.StatusPublished
	var total int64
	err := applyFilter(db.WithContext(ctx).Model(&transparencydomain.TransparencyReport{}), filter).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func applyFilter(query *gorm.DB, filter transparencydomain.ListFilter) *gorm.DB {
	if filter.CauseID != 0 {
		query = query.Where("cause_id = ?", filter.CauseID)
	}
	switch {
	case filter.Status != "":
		query = query.Where("status = ?", filter.Status)
	case !filter.IncludeDrafts:
		query = query.Where("status = ?", transparencydomain.StatusPublished)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}
	return query
}
