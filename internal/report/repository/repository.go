package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
	"gorm.io/gorm"
)

const maxRows = 10000

type repo struct{}

func Provide() reportdomain.Repository {
	return &repo{}
}

func (r *repo) DonationTotals(ctx context.Context, db *gorm.DB, q reportdomain.DonationQuery) (reportdomain.Totals, error) {
	var totals reportdomain.Totals
	err := applyDonationQuery(db.WithContext(ctx).Table("donations AS d"), q).
		Select("COUNT(*) AS count, COALESCE(SUM(d.amount), 0) AS amount").
		Scan(&totals).Error
	return totals, err
}

func (r *repo) DistinctDonors(ctx context.Context, db *gorm.DB, q reportdomain.DonationQuery) (int64, error) {
	var count int64
	err := applyDonationQuery(db.WithContext(ctx).Table("donations AS d"), q).
		Select("COUNT(DISTINCT d.donor_id)").
		Scan(&count).Error
	return count, err
}

func (r *repo) DonationRows(ctx context.Context, db *gorm.DB, q reportdomain.DonationQuery, limit int) ([]reportdomain.DonationRow, error) {
	if limit <= 0 || limit > maxRows {
		limit = maxRows
	}

	var rows []struct {
		ID                 snowflake.ID
		OrderID            string
		CreatedAt          time.Time
		DonorID            snowflake.ID
		IsAnonymous        bool
		CauseID            snowflake.ID
		Program            *string
		Category           *string
		Amount             int64
		Status             string
		DistributionStatus string
	}
	err := applyDonationQuery(db.WithContext(ctx).Table("donations AS d"), q).
		Select(`d.id, d.order_id, d.created_at, d.donor_id, d.is_anonymous, d.cause_id,
			c.title AS program, c.category AS category, d.amount, d.status, d.distribution_status`).
		Joins("LEFT JOIN causes c ON c.id = d.cause_id").
		Order("d.created_at DESC, d.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]reportdomain.DonationRow, 0, len(rows))
	for _, row := range rows {
		item := reportdomain.DonationRow{
			ID:                 row.ID,
			OrderID:            row.OrderID,
			Date:               row.CreatedAt,
			DonorID:            row.DonorID,
			IsAnonymous:        row.IsAnonymous,
			CauseID:            row.CauseID,
			Program:            "N/A",
			Category:           "N/A",
			Amount:             row.Amount,
			Status:             donationdomain.Status(row.Status),
			DistributionStatus: donationdomain.DistributionStatus(row.DistributionStatus),
		}
		if row.Program != nil {
			item.Program = *row.Program
		}
		if row.Category != nil {
			item.Category = *row.Category
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *repo) DatedAmounts(ctx context.Context, db *gorm.DB, q reportdomain.DonationQuery) ([]reportdomain.DatedAmount, error) {
	var rows []reportdomain.DatedAmount
	err := applyDonationQuery(db.WithContext(ctx).Table("donations AS d"), q).
		Select("d.amount, d.created_at").
		Order("d.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) CategoryTotals(ctx context.Context, db *gorm.DB, q reportdomain.DonationQuery) ([]reportdomain.CategoryTotal, error) {
	var rows []reportdomain.CategoryTotal
	err := applyDonationQuery(db.WithContext(ctx).Table("donations AS d"), q).
		Select("c.category AS category, COALESCE(SUM(d.amount), 0) AS total, COUNT(*) AS count").
		Joins("JOIN causes c ON c.id = d.cause_id").
		Group("c.category").
		Order("total DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) CauseTotals(ctx context.Context, db *gorm.DB, causeIDs []snowflake.ID) (map[snowflake.ID]reportdomain.CauseTotals, error) {
	out := make(map[snowflake.ID]reportdomain.CauseTotals, len(causeIDs))
	if len(causeIDs) == 0 {
		return out, nil
	}

	var rows []reportdomain.CauseTotals
	err := db.WithContext(ctx).
		Table("donations").
		Select(`cause_id,
			COUNT(*) AS donation_count,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS verified_count,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending_count,
			SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS failed_count,
			COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS total_received,
			COALESCE(SUM(CASE WHEN distribution_status IN ? THEN amount ELSE 0 END), 0) AS total_distributed,
			SUM(CASE WHEN distribution_status IN ? THEN 1 ELSE 0 END) AS distributed_count`,
			donationdomain.StatusVerified,
			donationdomain.StatusPending,
			[]donationdomain.Status{donationdomain.StatusFailed, donationdomain.StatusExpired},
			donationdomain.StatusVerified,
			distributedStatuses,
			distributedStatuses,
		).
		Where("cause_id IN ?", causeIDs).
		Group("cause_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CauseID] = row
	}
	return out, nil
}

func (r *repo) CountCausesByStatus(ctx context.Context, db *gorm.DB) (map[causedomain.CauseStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.WithContext(ctx).
		Table("causes").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[causedomain.CauseStatus]int64, len(rows))
	for _, row := range rows {
		out[causedomain.CauseStatus(row.Status)] = row.Count
	}
	return out, nil
}

func (r *repo) CountCausesByAuditStatus(ctx context.Context, db *gorm.DB) (map[causedomain.AuditStatus]int64, error) {
	var rows []struct {
		AuditStatus string
		Count       int64
	}
	err := db.WithContext(ctx).
		Table("causes").
		Select("audit_status, COUNT(*) AS count").
		Group("audit_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[causedomain.AuditStatus]int64, len(rows))
	for _, row := range rows {
		out[causedomain.AuditStatus(row.AuditStatus)] = row.Count
	}
	return out, nil
}

func (r *repo) TopCauses(ctx context.Context, db *gorm.DB, limit int) ([]causedomain.Cause, error) {
	if limit <= 0 {
		limit = 10
	}
	var causes []causedomain.Cause
	err := db.WithContext(ctx).
		Order("current_amount DESC, id ASC").
		Limit(limit).
		Find(&causes).Error
	return causes, err
}

func (r *repo) DonorIDs(ctx context.Context, db *gorm.DB, q reportdomain.DonationQuery) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := applyDonationQuery(db.WithContext(ctx).Table("donations AS d"), q).
		Distinct().
		Order("d.donor_id ASC").
		Limit(maxRows).
		Pluck("d.donor_id", &ids).Error
	return ids, err
}

func (r *repo) InsertReportLog(ctx context.Context, db *gorm.DB, log *reportdomain.ReportLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) ListReportLogs(ctx context.Context, db *gorm.DB, filter reportdomain.ReportLogFilter) ([]reportdomain.ReportLog, int64, error) {
	query := db.WithContext(ctx).Model(&reportdomain.ReportLog{})
	if filter.ReportType != "" {
		query = query.Where("report_type = ?", filter.ReportType)
	}
	if filter.GeneratedBy != 0 {
		query = query.Where("generated_by = ?", filter.GeneratedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []reportdomain.ReportLog
	err := query.
		Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&items).Error
	return items, total, err
}

var distributedStatuses = []donationdomain.DistributionStatus{
	donationdomain.DistributionDistributed,
	donationdomain.DistributionUsed,
}

func applyDonationQuery(query *gorm.DB, q reportdomain.DonationQuery) *gorm.DB {
	if q.CauseID != 0 {
		query = query.Where("d.cause_id = ?", q.CauseID)
	}
	if q.DonorID != 0 {
		query = query.Where("d.donor_id = ?", q.DonorID)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("d.status IN ?", q.Statuses)
	}
	if len(q.DistributionStatuses) > 0 {
		query = query.Where("d.distribution_status IN ?", q.DistributionStatuses)
	}
	if q.From != nil {
		query = query.Where("d.created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("d.created_at <= ?", *q.To)
	}
	return query
}
