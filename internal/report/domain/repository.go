package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	"gorm.io/gorm"
)

// DonationQuery narrows aggregate queries over the donations table.
type DonationQuery struct {
	CauseID              snowflake.ID
	DonorID              snowflake.ID
	Statuses             []donationdomain.Status
	DistributionStatuses []donationdomain.DistributionStatus
	From                 *time.Time
	To                   *time.Time
}

// DatedAmount is a single verified donation amount with its creation time.
type DatedAmount struct {
	Amount    int64
	CreatedAt time.Time
}

type Repository interface {
	DonationTotals(ctx context.Context, db *gorm.DB, q DonationQuery) (Totals, error)
	DistinctDonors(ctx context.Context, db *gorm.DB, q DonationQuery) (int64, error)
	DonationRows(ctx context.Context, db *gorm.DB, q DonationQuery, limit int) ([]DonationRow, error)
	DatedAmounts(ctx context.Context, db *gorm.DB, q DonationQuery) ([]DatedAmount, error)
	CategoryTotals(ctx context.Context, db *gorm.DB, q DonationQuery) ([]CategoryTotal, error)
	CauseTotals(ctx context.Context, db *gorm.DB, causeIDs []snowflake.ID) (map[snowflake.ID]CauseTotals, error)
	CountCausesByStatus(ctx context.Context, db *gorm.DB) (map[causedomain.CauseStatus]int64, error)
	CountCausesByAuditStatus(ctx context.Context, db *gorm.DB) (map[causedomain.AuditStatus]int64, error)
	TopCauses(ctx context.Context, db *gorm.DB, limit int) ([]causedomain.Cause, error)
	DonorIDs(ctx context.Context, db *gorm.DB, q DonationQuery) ([]snowflake.ID, error)

	InsertReportLog(ctx context.Context, db *gorm.DB, log *ReportLog) error
	ListReportLogs(ctx context.Context, db *gorm.DB, filter ReportLogFilter) ([]ReportLog, int64, error)
}
