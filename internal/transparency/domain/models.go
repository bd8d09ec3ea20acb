package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status controls whether a report counts toward the cause's disbursed amount.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func IsValidStatus(status Status) bool {
	return status == StatusDraft || status == StatusPublished
}

// AttachmentKind selects the photos or documents list of a report.
type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "document"
)

const MaxDescriptionLength = 2000

// Attachment is a reference to a stored file; the file itself lives elsewhere.
type Attachment struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	FileType   string    `json:"file_type,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// TransparencyReport records money disbursed from a cause.
type TransparencyReport struct {
	ID          snowflake.ID                    `json:"id" gorm:"primaryKey"`
	CauseID     snowflake.ID                    `json:"cause_id" gorm:"not null;index:ix_transparency_reports_cause_created,priority:1"`
	Amount      int64                           `json:"amount" gorm:"not null;default:0"`
	Date        time.Time                       `json:"date" gorm:"not null"`
	Description string                          `json:"description" gorm:"type:text;not null"`
	Photos      datatypes.JSONSlice[Attachment] `json:"photos" gorm:"type:json"`
	Documents   datatypes.JSONSlice[Attachment] `json:"documents" gorm:"type:json"`
	Status      Status                          `json:"status" gorm:"type:text;not null;default:draft;index"`
	CreatedBy   snowflake.ID                    `json:"created_by" gorm:"not null"`
	UpdatedBy   *snowflake.ID                   `json:"updated_by,omitempty"`
	CreatedAt   time.Time                       `json:"created_at" gorm:"not null;index:ix_transparency_reports_cause_created,priority:2"`
	UpdatedAt   time.Time                       `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (TransparencyReport) TableName() string { return "transparency_reports" }

// Disbursed is the amount this report contributes to the cause's disbursed total.
func (r TransparencyReport) Disbursed() int64 {
	if r.Status != StatusPublished {
		return 0
	}
	return r.Amount
}
