package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
)

// DonationsFilter selects donations for the admin and donor reports. An empty Status
// means pending and verified donations, matching what donors see as "their" donations.
type DonationsFilter struct {
	From    *time.Time            `json:"from,omitempty"`
	To      *time.Time            `json:"to,omitempty"`
	CauseID snowflake.ID          `json:"cause_id,omitempty"`
	DonorID snowflake.ID          `json:"donor_id,omitempty"`
	Status  donationdomain.Status `json:"status,omitempty"`
}

type CauseFilter struct {
	Category    string                  `json:"category,omitempty"`
	AuditStatus causedomain.AuditStatus `json:"audit_status,omitempty"`
	From        *time.Time              `json:"from,omitempty"`
	To          *time.Time              `json:"to,omitempty"`
}

// Service builds read-only views over causes and donations. The only rows it writes are
// report_logs entries recording who generated a donations report.
type Service interface {
	DashboardStats(ctx context.Context) (DashboardStats, error)
	AuditorStats(ctx context.Context) (AuditorStats, error)
	CausesForAudit(ctx context.Context, filter CauseFilter) ([]CauseAuditRow, error)
	CauseAuditDetail(ctx context.Context, causeID snowflake.ID) (CauseAuditDetail, error)
	DonationOverview(ctx context.Context) (DonationOverview, error)
	DonationsReport(ctx context.Context, filter DonationsFilter, generatedBy snowflake.ID) (DonationsReport, error)
	DonorReport(ctx context.Context, donorID snowflake.ID, filter DonationsFilter, generatedBy snowflake.ID) (DonorReport, error)
	// Donors returns the distinct donors with at least one verified donation.
	Donors(ctx context.Context) ([]snowflake.ID, error)
	ReportHistory(ctx context.Context, filter ReportLogFilter) (ReportLogList, error)
	AuditReport(ctx context.Context, filter CauseFilter, generatedBy snowflake.ID) (AuditReport, error)
	ExportDonationsXLSX(ctx context.Context, filter DonationsFilter, w io.Writer) error

	// InvalidateStats drops cached dashboard aggregates.
	InvalidateStats()
}

var (
	ErrInvalidDateRange   = errors.New("invalid_date_range")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrInvalidAuditStatus = errors.New("invalid_audit_status")
	ErrCauseNotFound      = errors.New("cause_not_found")
	ErrInvalidDonor       = errors.New("invalid_donor")
	ErrInvalidReportType  = errors.New("invalid_report_type")
	ErrMissingGenerator   = errors.New("missing_generated_by")
)
