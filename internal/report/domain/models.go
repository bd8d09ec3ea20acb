package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
)

// Totals is a count and amount pair over a set of donations.
type Totals struct {
	Count  int64 `json:"count"`
	Amount int64 `json:"amount"`
}

// MonthlyTotal aggregates verified donations created in one calendar month (UTC).
type MonthlyTotal struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Total int64 `json:"total"`
	Count int64 `json:"count"`
}

type CategoryTotal struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
	Count    int64  `json:"count"`
}

// DonationRow is a donation joined with its cause title and category.
type DonationRow struct {
	ID                 snowflake.ID                      `json:"id"`
	OrderID            string                            `json:"order_id"`
	Date               time.Time                         `json:"date"`
	DonorID            snowflake.ID                      `json:"donor_id"`
	IsAnonymous        bool                              `json:"is_anonymous"`
	CauseID            snowflake.ID                      `json:"cause_id"`
	Program            string                            `json:"program"`
	Category           string                            `json:"category"`
	Amount             int64                             `json:"amount"`
	Status             donationdomain.Status             `json:"status"`
	DistributionStatus donationdomain.DistributionStatus `json:"distribution_status"`
}

// CauseTotals is the donation summary of a single cause.
type CauseTotals struct {
	CauseID                snowflake.ID `json:"cause_id"`
	DonationCount          int64        `json:"donation_count"`
	VerifiedCount          int64        `json:"verified_count"`
	PendingCount           int64        `json:"pending_count"`
	FailedCount            int64        `json:"failed_count"`
	TotalReceived          int64        `json:"total_received"`
	TotalDistributed       int64        `json:"total_distributed"`
	DistributedCount       int64        `json:"distributed_count"`
	RemainingFunds         int64        `json:"remaining_funds"`
	DistributionPercentage int64        `json:"distribution_percentage"`
}

type DashboardOverview struct {
	TotalDonations    int64 `json:"total_donations"`
	TotalAmount       int64 `json:"total_amount"`
	DistributedAmount int64 `json:"distributed_amount"`
	PendingAmount     int64 `json:"pending_amount"`
	ActiveCauses      int64 `json:"active_causes"`
	TotalCauses       int64 `json:"total_causes"`
	TotalDonors       int64 `json:"total_donors"`
	PendingDonations  int64 `json:"pending_donations"`
}

// DashboardStats is the admin landing page summary.
type DashboardStats struct {
	Overview         DashboardOverview `json:"overview"`
	RecentDonations  []DonationRow     `json:"recent_donations"`
	DonationsByMonth []MonthlyTotal    `json:"donations_by_month"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

type AuditorOverview struct {
	TotalCauses         int64 `json:"total_causes"`
	ActiveCauses        int64 `json:"active_causes"`
	TotalDonationAmount int64 `json:"total_donation_amount"`
	TotalDonationCount  int64 `json:"total_donation_count"`
	DistributedAmount   int64 `json:"distributed_amount"`
	DistributedCount    int64 `json:"distributed_count"`
	RemainingAmount     int64 `json:"remaining_amount"`
	PendingAudit        int64 `json:"pending_audit"`
	InProgressAudit     int64 `json:"audit_in_progress"`
	VerifiedAudit       int64 `json:"verified_audit"`
	FlaggedAudit        int64 `json:"flagged_audit"`
}

// CauseAuditRow is one cause in auditor listings and the audit report.
type CauseAuditRow struct {
	ID                     snowflake.ID            `json:"id"`
	Title                  string                  `json:"title"`
	Category               string                  `json:"category"`
	Status                 causedomain.CauseStatus `json:"status"`
	CreatedBy              snowflake.ID            `json:"created_by"`
	CurrentAmount          int64                   `json:"current_amount"`
	DisbursedAmount        int64                   `json:"disbursed_amount"`
	RemainingFunds         int64                   `json:"remaining_funds"`
	DisbursementPercentage int64                   `json:"disbursement_percentage"`
	AuditStatus            causedomain.AuditStatus `json:"audit_status"`
	AuditedBy              *snowflake.ID           `json:"audited_by,omitempty"`
	AuditedAt              *time.Time              `json:"audited_at,omitempty"`
	AuditNotes             string                  `json:"audit_notes,omitempty"`
	DonationStats          CauseTotals             `json:"donation_stats"`
	CreatedAt              time.Time               `json:"created_at"`
}

type AuditorStats struct {
	Overview            AuditorOverview `json:"overview"`
	DonationsByMonth    []MonthlyTotal  `json:"donations_by_month"`
	DonationsByCategory []CategoryTotal `json:"donations_by_category"`
	CausesAudit         []CauseAuditRow `json:"causes_audit"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

type CauseAuditDetail struct {
	Cause     causedomain.CauseView     `json:"cause"`
	Donations []donationdomain.Donation `json:"donations"`
	Stats     CauseTotals               `json:"stats"`
}

type DonationsSummary struct {
	TotalTransactions int64            `json:"total_transactions"`
	TotalAmount       int64            `json:"total_amount"`
	ByDistribution    map[string]int64 `json:"by_distribution"`
}

type DonationsReport struct {
	Summary   DonationsSummary `json:"summary"`
	Donations []DonationRow    `json:"donations"`
	Filters   DonationsFilter  `json:"filters"`
}

type DonorReport struct {
	DonorID   snowflake.ID     `json:"donor_id"`
	Summary   DonationsSummary `json:"summary"`
	Donations []DonationRow    `json:"donations"`
	Filters   DonationsFilter  `json:"filters"`
}

type AuditSummary struct {
	TotalPrograms     int64 `json:"total_programs"`
	TotalAmount       int64 `json:"total_amount"`
	DisbursedAmount   int64 `json:"disbursed_amount"`
	DistributedAmount int64 `json:"distributed_amount"`
	RemainingAmount   int64 `json:"remaining_amount"`
	VerifiedCount     int64 `json:"verified_count"`
	FlaggedCount      int64 `json:"flagged_count"`
	PendingCount      int64 `json:"pending_count"`
	InProgressCount   int64 `json:"in_progress_count"`
}

type AuditReport struct {
	Summary     AuditSummary    `json:"summary"`
	Causes      []CauseAuditRow `json:"causes"`
	Filters     CauseFilter     `json:"filters"`
	GeneratedAt time.Time       `json:"generated_at"`
	GeneratedBy snowflake.ID    `json:"generated_by"`
}

// DonationOverview is the donation-only summary shared by admins and auditors.
type DonationOverview struct {
	TotalDonations    int64 `json:"total_donations"`
	VerifiedDonations int64 `json:"verified_donations"`
	TotalAmount       int64 `json:"total_amount"`
	DistributedAmount int64 `json:"distributed_amount"`
	PendingAmount     int64 `json:"pending_amount"`
}

type ReportType string

const (
	ReportTypeDonor ReportType = "donor"
	ReportTypeAll   ReportType = "all"
	ReportTypeCause ReportType = "cause"
)

// ReportLog records a generated donations report and who asked for it.
type ReportLog struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	ReportType        ReportType    `json:"report_type" gorm:"type:text;not null;index"`
	DonorID           *snowflake.ID `json:"donor_id,omitempty" gorm:"index"`
	CauseID           *snowflake.ID `json:"cause_id,omitempty"`
	StartDate         *time.Time    `json:"start_date,omitempty"`
	EndDate           *time.Time    `json:"end_date,omitempty"`
	TotalAmount       int64         `json:"total_amount" gorm:"not null;default:0"`
	TotalTransactions int64         `json:"total_transactions" gorm:"not null;default:0"`
	GeneratedBy       snowflake.ID  `json:"generated_by" gorm:"not null;index"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null;index"`
}

func (ReportLog) TableName() string { return "report_logs" }

type ReportLogFilter struct {
	ReportType  ReportType
	GeneratedBy snowflake.ID
	Limit       int
	Offset      int
}

type ReportLogList struct {
	Items []ReportLog `json:"items"`
	Total int64       `json:"total"`
}
