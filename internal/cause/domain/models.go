package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CauseStatus is the lifecycle status of a fundraising program.
type CauseStatus string

const (
	CauseStatusActive    CauseStatus = "active"
	CauseStatusCompleted CauseStatus = "completed"
	CauseStatusClosed    CauseStatus = "closed"
)

// AuditStatus tracks the auditor review of a cause.
type AuditStatus string

const (
	AuditStatusPending    AuditStatus = "pending_audit"
	AuditStatusInProgress AuditStatus = "audit_in_progress"
	AuditStatusVerified   AuditStatus = "audit_verified"
	AuditStatusFlagged    AuditStatus = "audit_flagged"
)

// IsTerminal reports whether no further audit transition is allowed.
func (s AuditStatus) IsTerminal() bool {
	return s == AuditStatusVerified || s == AuditStatusFlagged
}

var categories = map[string]bool{
	"pendidikan":    true,
	"kesehatan":     true,
	"sosial":        true,
	"bencana":       true,
	"lingkungan":    true,
	"infrastruktur": true,
	"lainnya":       true,
}

// IsValidCategory reports whether category is a known cause category.
func IsValidCategory(category string) bool {
	return categories[category]
}

// IsValidStatus reports whether status is a known cause status.
func IsValidStatus(status CauseStatus) bool {
	switch status {
	case CauseStatusActive, CauseStatusCompleted, CauseStatusClosed:
		return true
	default:
		return false
	}
}

// IsValidAuditStatus reports whether status is a known audit status.
func IsValidAuditStatus(status AuditStatus) bool {
	switch status {
	case AuditStatusPending, AuditStatusInProgress, AuditStatusVerified, AuditStatusFlagged:
		return true
	default:
		return false
	}
}

// Cause is a fundraising program with its fund counters.
type Cause struct {
	ID              snowflake.ID  `json:"id" gorm:"primaryKey"`
	Title           string        `json:"title" gorm:"type:text;not null"`
	Description     string        `json:"description" gorm:"type:text;not null"`
	Category        string        `json:"category" gorm:"type:text;not null;index:ix_causes_category_status,priority:1"`
	TargetAmount    int64         `json:"target_amount" gorm:"not null;default:0"`
	CurrentAmount   int64         `json:"current_amount" gorm:"not null;default:0"`
	DisbursedAmount int64         `json:"disbursed_amount" gorm:"not null;default:0"`
	Image           string        `json:"image" gorm:"type:text"`
	Deadline        time.Time     `json:"deadline" gorm:"not null"`
	Status          CauseStatus   `json:"status" gorm:"type:text;not null;default:active;index:ix_causes_category_status,priority:2"`
	CreatedBy       snowflake.ID  `json:"created_by" gorm:"not null"`
	TotalDonors     int64         `json:"total_donors" gorm:"not null;default:0"`
	AuditStatus     AuditStatus   `json:"audit_status" gorm:"type:text;not null;default:pending_audit;index"`
	AuditedBy       *snowflake.ID `json:"audited_by,omitempty"`
	AuditedAt       *time.Time    `json:"audited_at,omitempty"`
	AuditNotes      string        `json:"audit_notes,omitempty" gorm:"type:text"`
	AuditDocument   string        `json:"audit_document,omitempty" gorm:"type:text"`
	CreatedAt       time.Time     `json:"created_at" gorm:"not null;index"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Cause) TableName() string { return "causes" }

// ProgressPercentage is current over target, rounded.
func (c Cause) ProgressPercentage() int64 {
	if c.TargetAmount == 0 {
		return 0
	}
	return int64(math.Round(float64(c.CurrentAmount) / float64(c.TargetAmount) * 100))
}

// DisbursementPercentage is disbursed over current, rounded.
func (c Cause) DisbursementPercentage() int64 {
	if c.CurrentAmount == 0 {
		return 0
	}
	return int64(math.Round(float64(c.DisbursedAmount) / float64(c.CurrentAmount) * 100))
}

// RemainingAmount is what is still needed to reach the target.
func (c Cause) RemainingAmount() int64 {
	return max(0, c.TargetAmount-c.CurrentAmount)
}

// RemainingDisbursement is what has been received but not yet disbursed.
func (c Cause) RemainingDisbursement() int64 {
	return max(0, c.CurrentAmount-c.DisbursedAmount)
}

// DaysRemaining counts whole days left until the deadline, never negative.
func (c Cause) DaysRemaining(now time.Time) int64 {
	diff := c.Deadline.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int64(math.Ceil(diff.Hours() / 24))
}

// ProgressUpdate is an append-only field report for a cause.
type ProgressUpdate struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	CauseID     snowflake.ID   `json:"cause_id" gorm:"not null;index"`
	Description string         `json:"description" gorm:"type:text;not null"`
	Images      datatypes.JSON `json:"images" gorm:"type:json"`
	UpdatedBy   snowflake.ID   `json:"updated_by" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (ProgressUpdate) TableName() string { return "cause_progress_updates" }

// CauseView is the API representation with derived values.
type CauseView struct {
	Cause
	ProgressPercentage     int64 `json:"progress_percentage"`
	DisbursementPercentage int64 `json:"disbursement_percentage"`
	RemainingAmount        int64 `json:"remaining_amount"`
	RemainingDisbursement  int64 `json:"remaining_disbursement"`
	DaysRemaining          int64 `json:"days_remaining"`
}

// NewCauseView derives the read-only values for c at now.
func NewCauseView(c Cause, now time.Time) CauseView {
	return CauseView{
		Cause:                  c,
		ProgressPercentage:     c.ProgressPercentage(),
		DisbursementPercentage: c.DisbursementPercentage(),
		RemainingAmount:        c.RemainingAmount(),
		RemainingDisbursement:  c.RemainingDisbursement(),
		DaysRemaining:          c.DaysRemaining(now),
	}
}
